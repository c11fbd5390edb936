package ingest

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"feetax/internal/core"
)

// Sequence hands out record IDs. It is monotonic for the life of the
// process, so two batches ingested back to back never share an ID.
type Sequence struct {
	n atomic.Uint64
}

// Next returns the next record ID, e.g. "student-000042".
func (s *Sequence) Next() string {
	return fmt.Sprintf("student-%06d", s.n.Add(1))
}

// Observe advances the sequence past id if id was issued by a Sequence.
// Used after restoring persisted records.
func (s *Sequence) Observe(id string) {
	var n uint64
	if _, err := fmt.Sscanf(id, "student-%d", &n); err != nil {
		return
	}
	for {
		cur := s.n.Load()
		if n <= cur || s.n.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Result is the outcome of one batch.
type Result struct {
	BatchID   string                 `json:"batchId"`
	TotalRows int                    `json:"totalRows"`
	Records   []core.StudentRecord   `json:"-"`
	Errors    []core.ValidationError `json:"errors"`
}

func (r Result) Accepted() int { return len(r.Records) }
func (r Result) Rejected() int { return len(r.Errors) }

// Pipeline validates rows and computes tax for the accepted ones.
type Pipeline struct {
	Validator *Validator
	Slabs     []core.Slab
	IDs       *Sequence
}

func NewPipeline(slabs []core.Slab, ids *Sequence) *Pipeline {
	if ids == nil {
		ids = &Sequence{}
	}
	return &Pipeline{
		Validator: NewValidator(),
		Slabs:     slabs,
		IDs:       ids,
	}
}

// Ingest processes rows in order. A failing row is recorded and skipped;
// the batch always runs to the end.
func (p *Pipeline) Ingest(rows []core.RawRow) Result {
	res := Result{
		BatchID:   uuid.NewString(),
		TotalRows: len(rows),
		Records:   make([]core.StudentRecord, 0, len(rows)),
		Errors:    []core.ValidationError{},
	}
	for i, row := range rows {
		rec, err := p.validate(row, i)
		if err != nil {
			ve, ok := AsValidationError(err)
			if !ok {
				ve = core.ValidationError{Row: core.DisplayRow(i), Message: err.Error()}
			}
			res.Errors = append(res.Errors, ve)
			continue
		}
		rec = rec.WithTax(p.Slabs)
		rec.ID = p.IDs.Next()
		res.Records = append(res.Records, rec)
	}
	return res
}

func (p *Pipeline) validate(row core.RawRow, index int) (rec core.StudentRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = core.StudentRecord{}
			err = rowError(index, "", fmt.Sprintf("malformed row: %v", r))
		}
	}()
	return p.Validator.Validate(row, index)
}
