package memory

import (
	"context"
	"fmt"
	"sync"

	"feetax/internal/core"
	ports "feetax/internal/sheets"
)

// Store is an in-process stand-in for a spreadsheet: it serves seeded rows
// and keeps every export it receives.
type Store struct {
	mu      sync.Mutex
	rows    []core.RawRow
	exports [][]core.StudentRecord
}

var (
	_ ports.RowReader      = (*Store)(nil)
	_ ports.RecordExporter = (*Store)(nil)
)

func New(rows []core.RawRow) *Store {
	return &Store{rows: cloneRows(rows)}
}

func (s *Store) Name() string { return "memory" }

// ReadRows returns a copy of the seeded rows.
func (s *Store) ReadRows(_ context.Context) ([]core.RawRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return nil, ports.ErrNoHeader
	}
	return cloneRows(s.rows), nil
}

// SetRows replaces the rows served by ReadRows.
func (s *Store) SetRows(rows []core.RawRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = cloneRows(rows)
}

// ExportRecords stores the records and returns a synthetic reference.
func (s *Store) ExportRecords(_ context.Context, records []core.StudentRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, append([]core.StudentRecord(nil), records...))
	return fmt.Sprintf("mem:%d", len(s.exports)), nil
}

// Exports returns everything exported so far, oldest first.
func (s *Store) Exports() [][]core.StudentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]core.StudentRecord, len(s.exports))
	copy(out, s.exports)
	return out
}

// Last returns the most recent export.
func (s *Store) Last() ([]core.StudentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.exports) == 0 {
		return nil, false
	}
	return s.exports[len(s.exports)-1], true
}

func cloneRows(in []core.RawRow) []core.RawRow {
	out := make([]core.RawRow, 0, len(in))
	for _, r := range in {
		c := make(core.RawRow, len(r))
		for k, v := range r {
			c[k] = v
		}
		out = append(out, c)
	}
	return out
}
