package worker

import (
	"context"
	"fmt"
	"time"

	"feetax/internal/amqp"
	"feetax/internal/core"
	"feetax/internal/log"
	"feetax/internal/sheets"
	"feetax/internal/storage"
	"feetax/internal/store"
)

// RecordSource yields the records that should be on the export sheet.
type RecordSource interface {
	Records(ctx context.Context) ([]core.StudentRecord, error)
}

// ExportLog remembers what the worker has exported.
type ExportLog interface {
	RecordExport(ctx context.Context, e storage.SheetExport) error
	LastSuccessfulExport(ctx context.Context) (storage.SheetExport, bool, error)
}

// ExportObserver is told the status of every export attempt.
type ExportObserver interface {
	ObserveExport(status string)
}

// SyncWorker mirrors the persisted record set to an external sheet. A sync
// is skipped when the record set is identical to the last one exported.
type SyncWorker struct {
	source   RecordSource
	exporter sheets.RecordExporter
	exports  ExportLog
	observer ExportObserver
	logger   *log.Logger

	notify chan string
}

func NewSyncWorker(source RecordSource, exporter sheets.RecordExporter, exportLog ExportLog, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		source:   source,
		exporter: exporter,
		exports:  exportLog,
		logger:   logger.WithComponent(log.ComponentWorker),
		notify:   make(chan string, 1),
	}
}

// SetObserver registers a sink for export outcomes, typically metrics.
func (w *SyncWorker) SetObserver(o ExportObserver) { w.observer = o }

// HandleStateChanged processes a state change announced over AMQP.
func (w *SyncWorker) HandleStateChanged(ctx context.Context, msg *amqp.StateChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing state change",
		log.FieldAction, msg.Action,
		log.FieldRevision, msg.Revision,
		log.FieldRecords, msg.RecordCount)

	if _, err := w.Sync(ctx, "amqp:"+msg.Action); err != nil {
		return fmt.Errorf("sync after %s: %w", msg.Action, err)
	}
	return nil
}

// StateChanged lets the worker run in-process as a store observer. It only
// queues a sync; Run performs it.
func (w *SyncWorker) StateChanged(_ context.Context, ev store.Event) {
	if !ev.Durable {
		return
	}
	select {
	case w.notify <- ev.Action:
	default:
		// a sync is already queued and will see this state too
	}
}

var _ store.Observer = (*SyncWorker)(nil)

// Sync exports the current record set unless it matches the last successful
// export. It reports whether an export happened.
func (w *SyncWorker) Sync(ctx context.Context, reason string) (bool, error) {
	records, err := w.source.Records(ctx)
	if err != nil {
		return false, fmt.Errorf("load records: %w", err)
	}
	fp := storage.Fingerprint(records)

	last, ok, err := w.exports.LastSuccessfulExport(ctx)
	if err != nil {
		return false, fmt.Errorf("read export log: %w", err)
	}
	if ok && last.Fingerprint == fp {
		w.logger.DebugContext(ctx, "Sheet already up to date",
			log.FieldOperation, log.OpSync, "reason", reason, log.FieldRecords, len(records))
		return false, nil
	}

	entry := storage.SheetExport{
		Fingerprint: fp,
		RecordCount: len(records),
		ExportedAt:  time.Now().UTC(),
	}
	ref, exportErr := w.exporter.ExportRecords(ctx, records)
	if exportErr != nil {
		entry.Status = storage.ExportError
		entry.Error = exportErr.Error()
	} else {
		entry.Status = storage.ExportSuccess
		entry.Ref = ref
	}
	w.observe(entry.Status)

	if err := w.exports.RecordExport(ctx, entry); err != nil {
		w.logger.ErrorContext(ctx, "Failed to record export",
			log.FieldOperation, log.OpSync, log.FieldError, err)
		// an untracked success only costs a redundant export next time
	}

	if exportErr != nil {
		w.logger.ErrorContext(ctx, "Failed to export records",
			log.FieldOperation, log.OpExport, "reason", reason,
			log.FieldRecords, len(records), log.FieldError, exportErr)
		return false, fmt.Errorf("export records: %w", exportErr)
	}

	w.logger.InfoContext(ctx, "Exported records",
		log.FieldOperation, log.OpExport, "reason", reason,
		log.FieldRecords, len(records), log.FieldSheetsRef, ref)
	return true, nil
}

// StartupSyncCheck catches up on changes made while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	exported, err := w.Sync(ctx, "startup")
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", log.FieldOperation, log.OpStartup, "exported", exported)
	return nil
}

// Run performs queued syncs and, when interval is positive, a periodic
// fallback sync in case notifications were lost. It returns when ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case action := <-w.notify:
			if _, err := w.Sync(ctx, "store:"+action); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "Queued sync failed", log.FieldError, err)
			}
		case <-tick:
			if _, err := w.Sync(ctx, "periodic"); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "Periodic sync failed", log.FieldError, err)
			}
		}
	}
}

func (w *SyncWorker) observe(status string) {
	if w.observer != nil {
		w.observer.ObserveExport(status)
	}
}
