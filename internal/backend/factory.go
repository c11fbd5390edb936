package backend

import (
	"errors"
	"fmt"

	"feetax/internal/config"
	"feetax/internal/log"
	"feetax/internal/storage"
)

var errMissingPath = errors.New("SQLite database path is required for sqlite backend")

func errInvalidType(t BackendType) error {
	return fmt.Errorf("invalid backend type: %s", t)
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Namespace:    appConfig.StoreNamespace,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// New opens the repository described by cfg. The sqlite backend runs
// migrations before returning.
func New(cfg Config, logger *log.Logger) (Repository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentBackend)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, cfg.Namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath, "namespace", cfg.Namespace)
		return repo, nil
	default:
		logger.Info("Initialized memory backend")
		return storage.NewMemoryRepository(), nil
	}
}
