package xlsx

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"feetax/internal/core"
	"feetax/internal/ingest"
	ports "feetax/internal/sheets"
)

func workbook(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "" {
		f.SetSheetName(f.GetSheetName(0), sheet)
	} else {
		sheet = f.GetSheetName(0)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestReadRows(t *testing.T) {
	data := workbook(t, "Fees", [][]any{
		{"Reg No", "Name", "Course Code", "Branch Code", "Date", "Amount", "Payment Mode"},
		{"R1", "Asha", "BTECH", "CSE", "2024-03-05", 500000, "UPI"},
		{nil},
		{"R2", "Ravi", "MBA", "FIN", "2024-04-01", 1234.5},
	})
	r, err := NewReader("fees.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	rows, err := r.ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[0]["Amount"] != "500000" || rows[1]["Amount"] != "1234.5" {
		t.Fatalf("unexpected amounts: %v / %v", rows[0]["Amount"], rows[1]["Amount"])
	}
	if r.Name() != "fees.xlsx" {
		t.Fatalf("name = %q", r.Name())
	}
}

func TestReadRowsDateCell(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	f.SetSheetRow(sheet, "A1", &[]any{"Reg No", "Course", "Branch", "Date", "Amount"})
	f.SetSheetRow(sheet, "A2", &[]any{"R1", "BTECH", "CSE", 45356, 100})
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, _ := NewReader("dates.xlsx", &buf)
	rows, err := r.ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	rec, err := ingest.NewValidator().Validate(rows[0], 0)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rec.Date.String() != "2024-03-05" {
		t.Fatalf("date = %s", rec.Date)
	}
}

func TestReadRowsNamedSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetRow("Sheet1", "A1", &[]any{"ignored"})
	if _, err := f.NewSheet("Fees"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	f.SetSheetRow("Fees", "A1", &[]any{"Name"})
	f.SetSheetRow("Fees", "A2", &[]any{"Asha"})
	var buf bytes.Buffer
	f.WriteTo(&buf)

	r, _ := NewReader("multi.xlsx", &buf)
	r.Sheet = "Fees"
	rows, err := r.ReadRows(context.Background())
	if err != nil || len(rows) != 1 || rows[0]["Name"] != "Asha" {
		t.Fatalf("unexpected rows: %v err=%v", rows, err)
	}
}

func TestReadRowsErrors(t *testing.T) {
	r, _ := NewReader("broken.xlsx", bytes.NewReader([]byte("not a zip")))
	if _, err := r.ReadRows(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}

	empty := workbook(t, "", nil)
	r, _ = NewReader("empty.xlsx", bytes.NewReader(empty))
	if _, err := r.ReadRows(context.Background()); !errors.Is(err, ports.ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.ReadRows(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExportReimportRoundTrip(t *testing.T) {
	slabs := core.DefaultSlabs()
	records := []core.StudentRecord{
		core.StudentRecord{ID: "student-000001", RegNo: "R1", Name: "Asha", Email: "asha@example.com", State: "Delhi",
			CourseCode: "BTECH", BranchCode: "CSE", Year: 2, Semester: 3, Date: core.NewDate(2024, 3, 5),
			Amount: 850000, OtherAmount: 1500.25, TotalPaid: 851500.25, PaymentMode: "UPI"}.WithTax(slabs),
		core.StudentRecord{ID: "student-000002", RegNo: "R2", CourseCode: "MBA", BranchCode: "FIN",
			Date: core.NewDate(2024, 4, 1), Amount: 100}.WithTax(slabs),
	}

	dir := t.TempDir()
	exp := &Exporter{Dir: dir}
	path, err := exp.ExportRecords(context.Background(), records)
	if err != nil {
		t.Fatalf("ExportRecords: %v", err)
	}
	if filepath.Base(path) != DefaultExportFile {
		t.Fatalf("path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat export: %v", err)
	}

	r, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	r.Sheet = DefaultExportSheet
	rows, err := r.ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	res := ingest.NewPipeline(slabs, nil).Ingest(rows)
	if res.Rejected() != 0 || res.Accepted() != 2 {
		t.Fatalf("re-import rejected rows: %+v", res.Errors)
	}
	for i, got := range res.Records {
		want := records[i]
		if got.RegNo != want.RegNo || got.CourseCode != want.CourseCode || got.Date.String() != want.Date.String() {
			t.Fatalf("record %d mismatch: %+v vs %+v", i, got, want)
		}
		if got.Year != want.Year || got.Semester != want.Semester || got.PaymentMode != want.PaymentMode {
			t.Fatalf("record %d mismatch: %+v vs %+v", i, got, want)
		}
		if math.Abs(got.GrossAmount-want.GrossAmount) > 1e-9 || math.Abs(got.CalculatedTax-want.CalculatedTax) > 1e-6 {
			t.Fatalf("record %d derived fields differ: %+v vs %+v", i, got, want)
		}
	}
}

func TestExporterHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&Exporter{Dir: t.TempDir()}).ExportRecords(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
