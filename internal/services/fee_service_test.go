package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"feetax/internal/core"
	"feetax/internal/sheets"
	"feetax/internal/sheets/file"
	"feetax/internal/sheets/memory"
	"feetax/internal/store"
)

const feeCSV = "Reg No,Name,Email,Course Code,Branch Code,Date,Amount\n" +
	"R1,Asha,asha@example.com,BTECH,CSE,2024-01-10,300000\n" +
	"R2,Ravi,ravi@example.com,MBA,FIN,2024-02-11,800000\n" +
	"R3,Bad,bad@example.com,MBA,FIN,2024-02-11,-5\n"

func TestImportFile(t *testing.T) {
	svc := NewFeeService(store.New(), nil, nil, nil)
	res, err := svc.ImportFile(context.Background(), "fees.csv", strings.NewReader(feeCSV))
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if res.Accepted() != 2 || res.Rejected() != 1 {
		t.Fatalf("accepted=%d rejected=%d", res.Accepted(), res.Rejected())
	}
	if res.Errors[0].Row != 4 {
		t.Errorf("error row = %d, want 4", res.Errors[0].Row)
	}

	sum, ok := svc.Summary("")
	if !ok {
		t.Fatal("Summary reported no data")
	}
	if sum.TotalAmount != 1100000 || sum.TotalTax != 20000 {
		t.Errorf("totals = %v / %v", sum.TotalAmount, sum.TotalTax)
	}
}

func TestImportFileUnsupported(t *testing.T) {
	svc := NewFeeService(store.New(), nil, nil, nil)
	_, err := svc.ImportFile(context.Background(), "fees.pdf", strings.NewReader("x"))
	if !errors.Is(err, sheets.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestImportSheets(t *testing.T) {
	ctx := context.Background()
	if _, err := NewFeeService(store.New(), nil, nil, nil).ImportSheets(ctx); !errors.Is(err, ErrSheetsDisabled) {
		t.Fatalf("err = %v, want ErrSheetsDisabled", err)
	}

	src := memory.New([]core.RawRow{{"Reg No": "R1", "Course": "BTECH", "Branch": "CSE", "Date": "2024-03-01", "Amount": 500000.0}})
	svc := NewFeeService(store.New(), src, nil, nil)
	res, err := svc.ImportSheets(ctx)
	if err != nil {
		t.Fatalf("ImportSheets: %v", err)
	}
	if res.Accepted() != 1 {
		t.Fatalf("accepted = %d", res.Accepted())
	}
}

func TestSummaryBucketing(t *testing.T) {
	svc := NewFeeService(store.New(), nil, nil, nil)
	if _, ok := svc.Summary(""); ok {
		t.Fatal("Summary on empty store reported data")
	}
	if _, err := svc.ImportFile(context.Background(), "fees.csv", strings.NewReader(feeCSV)); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	cal, _ := svc.Summary(core.BucketCalendar)
	if len(cal.ByMonth) != 2 || cal.ByMonth[0].Month != "2024-01" {
		t.Fatalf("calendar months = %+v", cal.ByMonth)
	}
	prop, _ := svc.Summary(core.BucketProportional)
	if len(prop.ByMonth) != 6 {
		t.Fatalf("proportional months = %d", len(prop.ByMonth))
	}
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, f := range []ExportFormat{FormatXLSX, FormatCSV} {
		t.Run(string(f), func(t *testing.T) {
			svc := NewFeeService(store.New(), nil, nil, nil)
			if _, err := svc.ImportFile(ctx, "fees.csv", strings.NewReader(feeCSV)); err != nil {
				t.Fatalf("ImportFile: %v", err)
			}
			var buf bytes.Buffer
			n, err := svc.Export(ctx, &buf, f)
			if err != nil || n != 2 {
				t.Fatalf("Export = %d, %v", n, err)
			}

			reader, err := file.NewReader(f.FileName(), &buf)
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			again := store.New()
			res, err := again.Upload(ctx, reader)
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			if res.Accepted() != 2 || res.Rejected() != 0 {
				t.Fatalf("re-import accepted=%d rejected=%d %+v", res.Accepted(), res.Rejected(), res.Errors)
			}
		})
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"", FormatXLSX, false},
		{"XLSX", FormatXLSX, false},
		{"csv", FormatCSV, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseExportFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseExportFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
