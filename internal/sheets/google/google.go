package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"feetax/internal/core"
	ports "feetax/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sourceSheet   string
	exportSheet   string
}

// Ensure interface conformance
var (
	_ ports.RowReader      = (*Client)(nil)
	_ ports.RecordExporter = (*Client)(nil)
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	SourceSheet        string
	ExportSheet        string
	ServiceAccountJSON string
	ServiceAccountFile string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.SourceSheet) == "" {
		c.SourceSheet = "Fees"
	}
	if strings.TrimSpace(c.ExportSheet) == "" {
		c.ExportSheet = "Processed Data"
	}
	return c
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service. Tests point it at a fake endpoint.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sourceSheet:   strings.TrimSpace(cfg.SourceSheet),
		exportSheet:   strings.TrimSpace(cfg.ExportSheet),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses the configured JSON or file, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) Name() string {
	return "sheets:" + c.sourceSheet
}

// ReadRows reads the whole source sheet. Values are fetched unformatted so
// numbers stay numeric and dates arrive as serial numbers.
func (c *Client) ReadRows(ctx context.Context) ([]core.RawRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := quoteSheet(c.sourceSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return rowsFromValues(resp.Values)
}

// ExportRecords replaces the contents of the export sheet with records and
// returns the written range.
func (c *Client) ExportRecords(ctx context.Context, records []core.StudentRecord) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := quoteSheet(c.exportSheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheet, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", sheet, err)
	}

	values := ports.FlattenRecords(records)
	rng := fmt.Sprintf("%s!A1:%s%d", sheet, columnName(len(ports.ExportHeader)), len(values))
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return rng, nil
}

// quoteSheet returns a sheet name usable in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// columnName converts a 1-based column index to its letter form (1 -> A, 27 -> AA).
func columnName(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}
