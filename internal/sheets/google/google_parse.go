package google

import (
	"fmt"
	"strings"

	"feetax/internal/core"
	ports "feetax/internal/sheets"
)

// rowsFromValues converts a values matrix (as returned by Sheets API) into
// rows keyed by the first non-blank row's labels. Cell types are preserved.
func rowsFromValues(values [][]interface{}) ([]core.RawRow, error) {
	start := -1
	for i, row := range values {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ports.ErrNoHeader
	}
	headers := toStrings(values[start])
	rows := make([]core.RawRow, 0, len(values)-start-1)
	for _, cells := range values[start+1:] {
		if blankRow(cells) {
			continue
		}
		row := make(core.RawRow, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(cells) {
				continue
			}
			row[h] = cells[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blankRow(row []interface{}) bool {
	for _, v := range row {
		if v != nil && strings.TrimSpace(fmt.Sprint(v)) != "" {
			return false
		}
	}
	return true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
