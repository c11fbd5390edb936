// Package services wires the store to its import sources and export formats.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"feetax/internal/cache"
	"feetax/internal/core"
	"feetax/internal/ingest"
	"feetax/internal/log"
	"feetax/internal/sheets"
	"feetax/internal/sheets/csv"
	"feetax/internal/sheets/file"
	"feetax/internal/sheets/xlsx"
	"feetax/internal/store"
)

var ErrSheetsDisabled = errors.New("google sheets is not configured")

// ExportFormat selects the download format.
type ExportFormat string

const (
	FormatXLSX ExportFormat = "xlsx"
	FormatCSV  ExportFormat = "csv"
)

// ParseExportFormat accepts "", "xlsx" and "csv".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", sheets.ErrUnsupportedFormat, s)
	}
}

// FileName is the download name for f.
func (f ExportFormat) FileName() string {
	if f == FormatCSV {
		return "student_tax_data.csv"
	}
	return xlsx.DefaultExportFile
}

func (f ExportFormat) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FeeService is the application-facing API over the store.
type FeeService struct {
	store     *store.Store
	source    sheets.RowReader
	summaries *cache.Summaries
	logger    *log.Logger
}

// NewFeeService builds the service. source may be nil when no remote sheet
// is configured.
func NewFeeService(st *store.Store, source sheets.RowReader, summaries *cache.Summaries, logger *log.Logger) *FeeService {
	if logger == nil {
		logger = log.Discard()
	}
	if summaries == nil {
		summaries = cache.NewSummaries(16, 0)
		st.Subscribe(summaries)
	}
	return &FeeService{store: st, source: source, summaries: summaries, logger: logger.WithComponent(log.ComponentIngest)}
}

func (s *FeeService) Store() *store.Store { return s.store }

// ImportFile decodes an uploaded file and replaces the store's data with it.
func (s *FeeService) ImportFile(ctx context.Context, name string, r io.Reader) (ingest.Result, error) {
	reader, err := file.NewReader(name, r)
	if err != nil {
		if errors.Is(err, sheets.ErrUnsupportedFormat) {
			return ingest.Result{}, err
		}
		return ingest.Result{}, &store.SourceDecodeError{Source: name, Err: err}
	}
	return s.store.Upload(ctx, reader)
}

// ImportSheets pulls rows from the configured Google sheet.
func (s *FeeService) ImportSheets(ctx context.Context) (ingest.Result, error) {
	if s.source == nil {
		return ingest.Result{}, ErrSheetsDisabled
	}
	return s.store.Upload(ctx, s.source)
}

// Summary returns the current summary under bucketing b. An empty b means
// the store's configured bucketing. ok is false when no data is loaded.
func (s *FeeService) Summary(b core.TimeBucketing) (core.Summary, bool) {
	st := s.store.Snapshot()
	if st.Summary == nil && len(st.Records) == 0 {
		return core.Summary{}, false
	}
	if b == "" {
		b = s.store.Bucketing()
	}
	return s.summaries.Get(st, b), true
}

// Export writes the current records to w.
func (s *FeeService) Export(ctx context.Context, w io.Writer, f ExportFormat) (int, error) {
	records := s.store.Snapshot().Records
	var err error
	switch f {
	case FormatCSV:
		err = csv.WriteRecords(w, records)
	default:
		err = xlsx.WriteRecords(w, xlsx.DefaultExportSheet, records)
	}
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", f, err)
	}
	s.logger.InfoContext(ctx, "Exported records", log.FieldOperation, log.OpExport, "format", string(f), log.FieldRecords, len(records))
	return len(records), nil
}
