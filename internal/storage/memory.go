package storage

import (
	"context"
	"sync"
	"time"

	"feetax/internal/core"
	"feetax/internal/store"
)

// MemoryRepository keeps state for the life of the process.
type MemoryRepository struct {
	mu      sync.Mutex
	state   *store.Persisted
	exports []SheetExport
}

var _ store.Persister = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Save(_ context.Context, p store.Persisted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := store.Persisted{
		Records:  append([]core.StudentRecord{}, p.Records...),
		Settings: p.Settings,
	}
	m.state = &cp
	return nil
}

func (m *MemoryRepository) Load(_ context.Context) (store.Persisted, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return store.Persisted{}, false, nil
	}
	return store.Persisted{
		Records:  append([]core.StudentRecord{}, m.state.Records...),
		Settings: m.state.Settings,
	}, true, nil
}

func (m *MemoryRepository) Records(ctx context.Context) ([]core.StudentRecord, error) {
	p, _, err := m.Load(ctx)
	if p.Records == nil {
		p.Records = []core.StudentRecord{}
	}
	return p.Records, err
}

func (m *MemoryRepository) Ping(context.Context) error { return nil }

func (m *MemoryRepository) Close() error { return nil }

func (m *MemoryRepository) RecordExport(_ context.Context, e SheetExport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ExportedAt.IsZero() {
		e.ExportedAt = time.Now()
	}
	e.ID = int64(len(m.exports) + 1)
	m.exports = append(m.exports, e)
	return nil
}

func (m *MemoryRepository) LastSuccessfulExport(_ context.Context) (SheetExport, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.exports) - 1; i >= 0; i-- {
		if m.exports[i].Status == ExportSuccess {
			return m.exports[i], true, nil
		}
	}
	return SheetExport{}, false, nil
}
