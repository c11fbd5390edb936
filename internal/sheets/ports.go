package sheets

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"feetax/internal/core"
)

var (
	ErrNoWorksheet       = errors.New("workbook has no worksheet")
	ErrNoHeader          = errors.New("sheet has no header row")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Ports for inbound and outbound adapters.
type (
	// RowReader decodes a tabular source into rows keyed by header label.
	RowReader interface {
		ReadRows(ctx context.Context) ([]core.RawRow, error)
	}

	// RecordExporter writes processed records somewhere and returns a
	// reference to what it wrote (file name, sheet range, ...).
	RecordExporter interface {
		ExportRecords(ctx context.Context, records []core.StudentRecord) (ref string, err error)
	}
)

// Column labels used on export. Input columns reuse the importer's aliases so
// an exported sheet can be uploaded again.
var ExportHeader = []string{
	"ID",
	"Reg No",
	"Name",
	"Email",
	"State",
	"Course Code",
	"Branch Code",
	"Year",
	"Semester",
	"Date",
	"Amount",
	"Other Amount",
	"Total Paid",
	"Payment Mode",
	"Gross Amount",
	"Calculated Tax",
	"Net Amount",
	"Processed",
}

// FlattenRecords renders records as a header row followed by one row per
// record. Numbers stay numeric; derived money columns are rounded to cents.
func FlattenRecords(records []core.StudentRecord) [][]any {
	out := make([][]any, 0, len(records)+1)
	header := make([]any, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range records {
		out = append(out, []any{
			r.ID,
			r.RegNo,
			r.Name,
			r.Email,
			r.State,
			r.CourseCode,
			r.BranchCode,
			r.Year,
			r.Semester,
			r.Date.String(),
			r.Amount,
			r.OtherAmount,
			r.TotalPaid,
			r.PaymentMode,
			core.RoundMoney(r.GrossAmount),
			core.RoundMoney(r.CalculatedTax),
			core.RoundMoney(r.NetAmount),
			r.Processed,
		})
	}
	return out
}

// RowsFromTable turns a header row plus data rows of strings into RawRows.
// Blank rows are dropped; short rows leave the missing columns absent.
// Adapters that only see text (csv, Sheets API) share it.
func RowsFromTable(table [][]string) ([]core.RawRow, error) {
	start := -1
	for i, row := range table {
		if !blank(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrNoHeader
	}
	header := table[start]
	rows := make([]core.RawRow, 0, len(table)-start-1)
	for _, cells := range table[start+1:] {
		if blank(cells) {
			continue
		}
		row := make(core.RawRow, len(header))
		for i, label := range header {
			label = strings.TrimSpace(label)
			if label == "" || i >= len(cells) {
				continue
			}
			row[label] = cells[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// CellText formats an exported value as a string cell.
func CellText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
