package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"feetax/internal/core"
	"feetax/internal/log"
	"feetax/internal/storage"
)

type Config struct {
	// HTTP Server
	Port           string
	MaxUploadBytes int64

	// Persistence
	DataBackend    string
	SQLiteDBPath   string
	StoreNamespace string

	// Analytics
	TimeBucketing string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSourceSheet        string
	GoogleExportSheet        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),

		DataBackend:    getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/feetax.db"),
		StoreNamespace: getEnv("STORE_NAMESPACE", storage.DefaultNamespace),

		TimeBucketing: getEnv("TIME_BUCKETING", string(core.BucketProportional)),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "feetax"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "state_changed"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSourceSheet:        getEnv("GOOGLE_SOURCE_SHEET", "Fees"),
		GoogleExportSheet:        getEnv("GOOGLE_EXPORT_SHEET", "Processed Data"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", string(log.FormatText)),
	}
}

// SheetsEnabled reports whether Google Sheets import/export is configured.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// AMQPEnabled reports whether state-change events should be published.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// Bucketing returns the parsed time bucketing. Call Validate first.
func (c *Config) Bucketing() core.TimeBucketing {
	b, err := core.ParseTimeBucketing(c.TimeBucketing)
	if err != nil {
		return core.BucketProportional
	}
	return b
}

// Logger builds the application logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(c.LogLevel); err == nil {
		cfg.Level = lvl
	}
	if f, err := log.ParseFormat(c.LogFormat); err == nil {
		cfg.Format = f
	}
	return log.New(cfg)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}
	if strings.TrimSpace(c.StoreNamespace) == "" {
		errors = append(errors, "store namespace cannot be empty")
	}

	if _, err := core.ParseTimeBucketing(c.TimeBucketing); err != nil {
		errors = append(errors, fmt.Sprintf("invalid time bucketing '%s': must be one of [%s %s]",
			c.TimeBucketing, core.BucketProportional, core.BucketCalendar))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		if c.GoogleSourceSheet == "" {
			errors = append(errors, "Google source sheet name cannot be empty")
		}
		if c.GoogleExportSheet == "" {
			errors = append(errors, "Google export sheet name cannot be empty")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
