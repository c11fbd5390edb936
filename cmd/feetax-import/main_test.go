package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"feetax/internal/config"
	"feetax/internal/log"
)

const feeCSV = "Reg No,Name,Email,Course Code,Branch Code,State,Date,Amount,Payment Mode\n" +
	"R1,Asha,asha@example.com,BTECH,CSE,Delhi,2024-01-10,300000,UPI\n" +
	"R2,Ravi,ravi@example.com,MBA,FIN,Goa,2024-02-11,800000,Card\n" +
	",,,MBA,FIN,Goa,2024-02-11,100\n"

func testConfig() *config.Config {
	return &config.Config{
		DataBackend:    "memory",
		StoreNamespace: "test",
		TimeBucketing:  "proportional",
	}
}

func TestRunPrintsSummaryAndWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "fees.csv")
	if err := os.WriteFile(in, []byte(feeCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "out")
	if err := os.Mkdir(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), testConfig(), log.Discard(), in, false, outDir, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	report := out.String()
	for _, want := range []string{"3 rows, 2 accepted, 1 rejected", "1,100,000.00", "20,000.00", "student_tax_data.xlsx"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "student_tax_data.xlsx")); err != nil {
		t.Fatalf("workbook not written: %v", err)
	}
}

func TestRunRequiresSource(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(), log.Discard(), "", false, "", &out)
	if err == nil || !strings.Contains(err.Error(), "-file") {
		t.Fatalf("expected missing source error, got %v", err)
	}
}

func TestRunRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fees.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run(context.Background(), testConfig(), log.Discard(), path, false, "", &out); err == nil {
		t.Fatal("expected an error for .txt input")
	}
}
