// Package csv reads comma-separated fee sheets.
package csv

import (
	"bytes"
	"context"
	encsv "encoding/csv"
	"fmt"
	"io"

	"feetax/internal/core"
	ports "feetax/internal/sheets"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader decodes a CSV document whose first non-blank line is the header.
type Reader struct {
	name  string
	data  []byte
	Comma rune
}

var _ ports.RowReader = (*Reader)(nil)

func NewReader(name string, r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return &Reader{name: name, data: bytes.TrimPrefix(data, utf8BOM), Comma: ','}, nil
}

func (r *Reader) Name() string { return r.name }

func (r *Reader) ReadRows(ctx context.Context) ([]core.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cr := encsv.NewReader(bytes.NewReader(r.data))
	cr.Comma = r.Comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	table, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return ports.RowsFromTable(table)
}

// WriteRecords writes records with the same header as the workbook export.
func WriteRecords(w io.Writer, records []core.StudentRecord) error {
	cw := encsv.NewWriter(w)
	for _, row := range ports.FlattenRecords(records) {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = ports.CellText(v)
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
