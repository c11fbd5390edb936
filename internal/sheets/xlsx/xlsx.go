// Package xlsx reads and writes Excel workbooks.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"feetax/internal/core"
	ports "feetax/internal/sheets"
)

const (
	DefaultExportSheet = "Processed Data"
	DefaultExportFile  = "student_tax_data.xlsx"
)

// Reader decodes one worksheet of a workbook. The first worksheet is used
// unless Sheet is set.
type Reader struct {
	name  string
	data  []byte
	Sheet string
}

var _ ports.RowReader = (*Reader)(nil)

// NewReader buffers r so the workbook can be decoded when ReadRows is called.
func NewReader(name string, r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return &Reader{name: name, data: data}, nil
}

// OpenFile is NewReader for a path on disk.
func OpenFile(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return NewReader(filepath.Base(path), f)
}

func (r *Reader) Name() string { return r.name }

// ReadRows returns the data rows keyed by the header row. Cells are read
// unformatted, so numbers keep full precision and dates arrive as serial
// day numbers.
func (r *Reader) ReadRows(ctx context.Context) ([]core.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(r.data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := r.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, ports.ErrNoWorksheet
		}
		sheet = list[0]
	}
	table, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return ports.RowsFromTable(table)
}

// WriteRecords renders records as a single-sheet workbook.
func WriteRecords(w io.Writer, sheet string, records []core.StudentRecord) error {
	if sheet == "" {
		sheet = DefaultExportSheet
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	for i, row := range ports.FlattenRecords(records) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Exporter writes workbooks into a directory.
type Exporter struct {
	Dir      string
	FileName string
	Sheet    string
}

var _ ports.RecordExporter = (*Exporter)(nil)

// ExportRecords writes the workbook and returns its path.
func (e *Exporter) ExportRecords(ctx context.Context, records []core.StudentRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := e.FileName
	if name == "" {
		name = DefaultExportFile
	}
	path := filepath.Join(e.Dir, name)
	var buf bytes.Buffer
	if err := WriteRecords(&buf, e.Sheet, records); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
