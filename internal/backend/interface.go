// Package backend selects and builds the persistence layer behind the store.
package backend

import (
	"context"

	"feetax/internal/core"
	"feetax/internal/storage"
	"feetax/internal/store"
)

// Repository is everything the application needs from persistence: the
// store's Persister plus the worker's record source and export log.
type Repository interface {
	store.Persister
	Records(ctx context.Context) ([]core.StudentRecord, error)
	RecordExport(ctx context.Context, e storage.SheetExport) error
	LastSuccessfulExport(ctx context.Context) (storage.SheetExport, bool, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Repository = (*storage.SQLiteRepository)(nil)
	_ Repository = (*storage.MemoryRepository)(nil)
)

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type         BackendType
	SQLiteDBPath string
	Namespace    string
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return errInvalidType(c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errMissingPath
	}
	return nil
}
