// Package store holds the application state: the current record set, its
// summary, user settings and UI flags. All transitions go through Reduce.
package store

import (
	"time"

	"feetax/internal/core"
)

type (
	UIFlags struct {
		Uploading     bool `json:"uploading"`
		Processing    bool `json:"processing"`
		ShowAnalytics bool `json:"showAnalytics"`
		ShowSettings  bool `json:"showSettings"`
	}

	// BatchInfo describes the ingestion that produced the current records.
	BatchInfo struct {
		ID         string                 `json:"id"`
		Source     string                 `json:"source"`
		TotalRows  int                    `json:"totalRows"`
		Accepted   int                    `json:"accepted"`
		Rejected   int                    `json:"rejected"`
		Errors     []core.ValidationError `json:"errors"`
		IngestedAt time.Time              `json:"ingestedAt"`
	}

	// State is an immutable snapshot. Summary is nil until data has been
	// processed. Revision changes whenever records or settings change.
	State struct {
		Records   []core.StudentRecord `json:"records"`
		Summary   *core.Summary        `json:"summary"`
		Settings  core.Settings        `json:"settings"`
		UI        UIFlags              `json:"ui"`
		Revision  uint64               `json:"revision"`
		LastBatch *BatchInfo           `json:"lastBatch,omitempty"`
	}

	// Persisted is the durable part of State. UI flags are never stored.
	Persisted struct {
		Records  []core.StudentRecord `json:"records"`
		Settings core.Settings        `json:"settings"`
	}
)

// Initial returns the state of a fresh application.
func Initial() State {
	return State{
		Records:  []core.StudentRecord{},
		Settings: core.DefaultSettings(),
	}
}

// HasData reports whether any records are loaded.
func (s State) HasData() bool {
	return len(s.Records) > 0
}

func (s State) Persisted() Persisted {
	return Persisted{Records: copyRecords(s.Records), Settings: s.Settings}
}

// clone copies everything s refers to, so the result can be handed out
// without exposing committed state.
func (s State) clone() State {
	out := s
	out.Records = copyRecords(s.Records)
	out.Summary = copySummary(s.Summary)
	if s.LastBatch != nil {
		b := *s.LastBatch
		b.Errors = append([]core.ValidationError(nil), s.LastBatch.Errors...)
		out.LastBatch = &b
	}
	return out
}

func copyRecords(in []core.StudentRecord) []core.StudentRecord {
	out := make([]core.StudentRecord, len(in))
	copy(out, in)
	return out
}

func copySummary(in *core.Summary) *core.Summary {
	if in == nil {
		return nil
	}
	s := *in
	s.ByCourse = append([]core.CourseBreakdown{}, in.ByCourse...)
	s.ByBranch = append([]core.BranchBreakdown{}, in.ByBranch...)
	s.ByState = append([]core.StateBreakdown{}, in.ByState...)
	s.ByPaymentMode = append([]core.PaymentModeBreakdown{}, in.ByPaymentMode...)
	s.ByMonth = append([]core.MonthBreakdown{}, in.ByMonth...)
	return &s
}
