package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"feetax/internal/core"
)

const DefaultNamespace = "student-tax-storage"

const (
	ExportSuccess = "success"
	ExportError   = "error"
)

// SheetExport is one entry of the worker's export log.
type SheetExport struct {
	ID          int64
	Fingerprint string
	RecordCount int
	Ref         string
	Status      string
	Error       string
	ExportedAt  time.Time
}

// Fingerprint identifies a record set by content, so the worker can tell
// whether a sheet already holds it.
func Fingerprint(records []core.StudentRecord) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, r := range records {
		// StudentRecord only holds plain values; encoding cannot fail.
		_ = enc.Encode(r)
	}
	return hex.EncodeToString(h.Sum(nil))
}
