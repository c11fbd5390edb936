// Package file picks a RowReader for an uploaded file by its extension.
package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	ports "feetax/internal/sheets"
	"feetax/internal/sheets/csv"
	"feetax/internal/sheets/xlsx"
)

// NewReader returns a reader for name's format. Only .xlsx and .csv are
// accepted.
func NewReader(name string, r io.Reader) (ports.RowReader, error) {
	if err := supported(name); err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return csv.NewReader(name, r)
	}
	return xlsx.NewReader(name, r)
}

func supported(name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".csv":
		return nil
	default:
		return fmt.Errorf("%w: %q", ports.ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Open is NewReader for a path on disk.
func Open(path string) (ports.RowReader, error) {
	if err := supported(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return NewReader(filepath.Base(path), f)
}
