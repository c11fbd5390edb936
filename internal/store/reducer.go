package store

import "feetax/internal/core"

// Action is a state transition. The set is closed; see Reduce.
type Action interface {
	Name() string
	// durable reports whether the action touches persisted state.
	durable() bool
}

type (
	// ReplaceData swaps in a freshly processed record set. A nil Batch keeps
	// the previous batch info (used when reprocessing).
	ReplaceData struct {
		Records []core.StudentRecord
		Summary core.Summary
		Batch   *BatchInfo
	}

	UpdateSettings struct {
		Settings core.Settings
	}

	Clear struct{}

	// Restore hydrates state from storage at start-up. The summary is not
	// stored; it is rebuilt by the next process request.
	Restore struct {
		Records  []core.StudentRecord
		Settings core.Settings
	}

	SetUploading    struct{ On bool }
	SetProcessing   struct{ On bool }
	ToggleAnalytics struct{}
	ToggleSettings  struct{}
)

func (ReplaceData) Name() string     { return "replace_data" }
func (UpdateSettings) Name() string  { return "update_settings" }
func (Clear) Name() string           { return "clear" }
func (Restore) Name() string         { return "restore" }
func (SetUploading) Name() string    { return "set_uploading" }
func (SetProcessing) Name() string   { return "set_processing" }
func (ToggleAnalytics) Name() string { return "toggle_analytics" }
func (ToggleSettings) Name() string  { return "toggle_settings" }

func (ReplaceData) durable() bool     { return true }
func (UpdateSettings) durable() bool  { return true }
func (Clear) durable() bool           { return true }
func (Restore) durable() bool         { return false }
func (SetUploading) durable() bool    { return false }
func (SetProcessing) durable() bool   { return false }
func (ToggleAnalytics) durable() bool { return false }
func (ToggleSettings) durable() bool  { return false }

// Reduce returns the state that follows s after a. It never modifies s or
// anything s points to.
func Reduce(s State, a Action) State {
	next := s
	switch a := a.(type) {
	case ReplaceData:
		next.Records = copyRecords(a.Records)
		sum := a.Summary
		next.Summary = copySummary(&sum)
		if a.Batch != nil {
			b := *a.Batch
			b.Errors = append([]core.ValidationError{}, a.Batch.Errors...)
			next.LastBatch = &b
		}
		next.UI.Uploading = false
		next.UI.Processing = false
		next.Revision++
	case UpdateSettings:
		next.Settings = a.Settings
		next.Revision++
	case Clear:
		next.Records = []core.StudentRecord{}
		next.Summary = nil
		next.LastBatch = nil
		next.Revision++
	case Restore:
		next.Records = copyRecords(a.Records)
		next.Settings = a.Settings
		next.Summary = nil
		next.LastBatch = nil
		next.Revision++
	case SetUploading:
		next.UI.Uploading = a.On
	case SetProcessing:
		next.UI.Processing = a.On
	case ToggleAnalytics:
		next.UI.ShowAnalytics = !s.UI.ShowAnalytics
	case ToggleSettings:
		next.UI.ShowSettings = !s.UI.ShowSettings
	}
	return next
}
