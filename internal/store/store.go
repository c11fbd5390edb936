package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"feetax/internal/analytics"
	"feetax/internal/core"
	"feetax/internal/ingest"
	"feetax/internal/log"
	"feetax/internal/sheets"
)

var ErrIngestInProgress = errors.New("ingestion already in progress")

// SourceDecodeError reports that a whole source could not be decoded. The
// store is left unchanged when it is returned.
type SourceDecodeError struct {
	Source string
	Err    error
}

func (e *SourceDecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *SourceDecodeError) Unwrap() error { return e.Err }

// Persister stores the durable part of the state.
type Persister interface {
	Save(ctx context.Context, p Persisted) error
	// Load returns ok=false when nothing has been stored yet.
	Load(ctx context.Context) (p Persisted, ok bool, err error)
}

// Event is delivered to observers after each transition. State is a copy
// owned by the event.
type Event struct {
	Action string
	// Durable is set when records or settings changed.
	Durable bool
	State   State
	At      time.Time
}

// Observer is notified synchronously, in subscription order.
type Observer interface {
	StateChanged(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) StateChanged(ctx context.Context, ev Event) { f(ctx, ev) }

// Namer is implemented by sources that can describe themselves for logs and
// error messages.
type Namer interface {
	Name() string
}

type Store struct {
	// writeMu serializes transitions so persistence and notification happen
	// in commit order. mu only guards reads and writes of state.
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   State

	ingestMu sync.Mutex

	pipeline  *ingest.Pipeline
	bucketing core.TimeBucketing
	persister Persister
	observers []Observer
	logger    *log.Logger
	now       func() time.Time
}

type Option func(*Store)

func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

func WithBucketing(b core.TimeBucketing) Option {
	return func(s *Store) { s.bucketing = b }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithPipeline(p *ingest.Pipeline) Option {
	return func(s *Store) { s.pipeline = p }
}

// New creates a Store holding the initial state.
func New(opts ...Option) *Store {
	s := &Store{
		state:     Initial(),
		bucketing: core.BucketProportional,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pipeline == nil {
		s.pipeline = ingest.NewPipeline(core.DefaultSlabs(), nil)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentStore)
	return s
}

// Subscribe registers o for all future transitions.
func (s *Store) Subscribe(o Observer) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.observers = append(s.observers, o)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) Bucketing() core.TimeBucketing {
	return s.bucketing
}

// Load hydrates records and settings from the persister. Missing or
// unreadable settings fall back to defaults.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	p, ok, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return nil
	}
	if err := p.Settings.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Stored settings invalid, using defaults", log.FieldError, err)
		p.Settings = core.DefaultSettings()
	}
	for _, r := range p.Records {
		s.pipeline.IDs.Observe(r.ID)
	}
	s.logger.InfoContext(ctx, "State restored", log.FieldOperation, log.OpRestore, log.FieldRecords, len(p.Records))
	return s.commit(ctx, func(State) (Action, error) {
		return Restore{Records: p.Records, Settings: p.Settings}, nil
	})
}

// ReplaceData validates rows, computes tax and summary, and replaces the
// current record set in one transition. Row failures are reported in the
// result and never abort the batch.
func (s *Store) ReplaceData(ctx context.Context, rows []core.RawRow) (ingest.Result, error) {
	if !s.ingestMu.TryLock() {
		return ingest.Result{}, ErrIngestInProgress
	}
	defer s.ingestMu.Unlock()
	return s.replace(ctx, "rows", rows)
}

// Upload decodes src and replaces the current record set with its rows.
func (s *Store) Upload(ctx context.Context, src sheets.RowReader) (ingest.Result, error) {
	if !s.ingestMu.TryLock() {
		return ingest.Result{}, ErrIngestInProgress
	}
	defer s.ingestMu.Unlock()

	name := sourceName(src)
	if err := s.dispatch(ctx, SetUploading{On: true}); err != nil {
		return ingest.Result{}, err
	}
	rows, err := src.ReadRows(ctx)
	if err != nil {
		s.endUpload(ctx)
		s.logger.ErrorContext(ctx, "Failed to decode source", log.FieldSource, name, log.FieldError, err)
		return ingest.Result{}, &SourceDecodeError{Source: name, Err: err}
	}
	res, err := s.replace(ctx, name, rows)
	if err != nil {
		s.endUpload(ctx)
	}
	return res, err
}

// endUpload clears the Uploading flag unless a committed ReplaceData
// already did. It runs after failures, so ctx may be cancelled.
func (s *Store) endUpload(ctx context.Context) {
	s.mu.RLock()
	on := s.state.UI.Uploading
	s.mu.RUnlock()
	if on {
		_ = s.dispatch(context.WithoutCancel(ctx), SetUploading{On: false})
	}
}

func (s *Store) replace(ctx context.Context, source string, rows []core.RawRow) (ingest.Result, error) {
	if err := s.dispatch(ctx, SetProcessing{On: true}); err != nil {
		return ingest.Result{}, err
	}
	res := s.pipeline.Ingest(rows)
	if err := ctx.Err(); err != nil {
		s.dispatch(context.WithoutCancel(ctx), SetProcessing{On: false})
		return ingest.Result{}, fmt.Errorf("ingest %s: %w", source, err)
	}
	sum := analytics.Aggregate(res.Records, analytics.Options{Bucketing: s.bucketing})

	log.NewStructuredLogger(s.logger).LogBatchIngested(ctx, source, res.BatchID, res.TotalRows, res.Accepted(), res.Rejected())
	for _, ve := range res.Errors {
		s.logger.DebugContext(ctx, "Row rejected", log.FieldBatchID, res.BatchID, log.FieldError, ve.Error())
	}

	batch := &BatchInfo{
		ID:         res.BatchID,
		Source:     source,
		TotalRows:  res.TotalRows,
		Accepted:   res.Accepted(),
		Rejected:   res.Rejected(),
		Errors:     res.Errors,
		IngestedAt: s.now().UTC(),
	}
	err := s.dispatch(ctx, ReplaceData{Records: res.Records, Summary: sum, Batch: batch})
	return res, err
}

// Reprocess recomputes tax and the summary for the current records.
func (s *Store) Reprocess(ctx context.Context) (core.Summary, error) {
	if !s.ingestMu.TryLock() {
		return core.Summary{}, ErrIngestInProgress
	}
	defer s.ingestMu.Unlock()

	if err := s.dispatch(ctx, SetProcessing{On: true}); err != nil {
		return core.Summary{}, err
	}
	var sum core.Summary
	err := s.commit(ctx, func(cur State) (Action, error) {
		records := make([]core.StudentRecord, len(cur.Records))
		for i, r := range cur.Records {
			records[i] = r.WithTax(s.pipeline.Slabs)
		}
		sum = analytics.Aggregate(records, analytics.Options{Bucketing: s.bucketing})
		return ReplaceData{Records: records, Summary: sum}, nil
	})
	return sum, err
}

// UpdateSettings validates and merges patch. Records and their tax figures
// are left untouched.
func (s *Store) UpdateSettings(ctx context.Context, patch core.SettingsPatch) (core.Settings, error) {
	var next core.Settings
	err := s.commit(ctx, func(cur State) (Action, error) {
		next = cur.Settings.Apply(patch)
		if err := next.Validate(); err != nil {
			return nil, err
		}
		return UpdateSettings{Settings: next}, nil
	})
	if err != nil {
		return core.Settings{}, err
	}
	return next, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.dispatch(ctx, Clear{})
}

func (s *Store) ToggleAnalytics(ctx context.Context) (UIFlags, error) {
	if err := s.dispatch(ctx, ToggleAnalytics{}); err != nil {
		return UIFlags{}, err
	}
	return s.Snapshot().UI, nil
}

func (s *Store) ToggleSettings(ctx context.Context) (UIFlags, error) {
	if err := s.dispatch(ctx, ToggleSettings{}); err != nil {
		return UIFlags{}, err
	}
	return s.Snapshot().UI, nil
}

func (s *Store) dispatch(ctx context.Context, a Action) error {
	return s.commit(ctx, func(State) (Action, error) { return a, nil })
}

// commit applies the action built from the current state, persists durable
// changes and notifies observers. A persistence failure is returned but the
// in-memory transition stands.
func (s *Store) commit(ctx context.Context, build func(State) (Action, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	cur := s.state
	s.mu.RUnlock()

	a, err := build(cur)
	if err != nil {
		return err
	}
	next := Reduce(cur, a)

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	var persistErr error
	if a.durable() && s.persister != nil {
		if err := s.persister.Save(ctx, next.Persisted()); err != nil {
			persistErr = fmt.Errorf("persist state: %w", err)
			s.logger.ErrorContext(ctx, "Failed to persist state", log.FieldOperation, log.OpPersist,
				log.FieldAction, a.Name(), log.FieldRevision, next.Revision, log.FieldError, err)
		}
	}

	ev := Event{Action: a.Name(), Durable: a.durable(), State: next.clone(), At: s.now().UTC()}
	for _, o := range s.observers {
		o.StateChanged(ctx, ev)
	}
	return persistErr
}

func sourceName(src sheets.RowReader) string {
	if n, ok := src.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", src)
}
