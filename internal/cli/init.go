// Package cli holds the start-up steps shared by the feetax binaries.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"feetax/internal/amqp"
	"feetax/internal/backend"
	"feetax/internal/config"
	"feetax/internal/log"
	"feetax/internal/sheets/google"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile(files ...string) {
	_ = godotenv.Load(files...)
}

// Bootstrap loads .env and the configuration, builds the logger and makes
// it the slog default. It exits the process when the configuration is invalid.
func Bootstrap(name string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	log.SetDefault(logger)
	logger.Info("Starting "+name, log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)
	return cfg, logger
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// OpenRepository builds the configured persistence backend.
func OpenRepository(cfg *config.Config, logger *log.Logger) (backend.Repository, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.New(bcfg, logger)
}

// OpenSheets returns the Google Sheets client, or nil when no spreadsheet
// is configured.
func OpenSheets(ctx context.Context, cfg *config.Config, logger *log.Logger) (*google.Client, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil, nil
	}
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SourceSheet:        cfg.GoogleSourceSheet,
		ExportSheet:        cfg.GoogleExportSheet,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("google sheets: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return cli, nil
}

// OpenAMQP connects to the broker, or returns nil when AMQP is not
// configured.
func OpenAMQP(cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil, nil
	}
	c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("amqp: %w", err)
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return c, nil
}
