package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"feetax/internal/core"
	"feetax/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists application state under a namespace.
type SQLiteRepository struct {
	db        *sql.DB
	namespace string
}

var _ store.Persister = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath, namespace string) (*SQLiteRepository, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, namespace: namespace}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const insertRecord = `INSERT INTO student_records (
	namespace, position, id, reg_no, name, email, state, course_code, branch_code,
	year, semester, payment_date, amount, other_amount, total_paid, payment_mode,
	gross_amount, calculated_tax, net_amount, processed
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertSettings = `INSERT INTO app_settings (
	namespace, currency_symbol, default_tax_rate, institute_name, academic_year, home_state, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(namespace) DO UPDATE SET
	currency_symbol = excluded.currency_symbol,
	default_tax_rate = excluded.default_tax_rate,
	institute_name = excluded.institute_name,
	academic_year = excluded.academic_year,
	home_state = excluded.home_state,
	updated_at = excluded.updated_at`

// Save replaces the stored records and settings in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, p store.Persisted) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM student_records WHERE namespace = ?`, r.namespace); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range p.Records {
		if _, err := stmt.ExecContext(ctx,
			r.namespace, i, rec.ID, rec.RegNo, rec.Name, rec.Email, rec.State, rec.CourseCode, rec.BranchCode,
			rec.Year, rec.Semester, rec.Date.String(), rec.Amount, rec.OtherAmount, rec.TotalPaid, rec.PaymentMode,
			rec.GrossAmount, rec.CalculatedTax, rec.NetAmount, boolToInt(rec.Processed),
		); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	s := p.Settings
	if _, err := tx.ExecContext(ctx, upsertSettings,
		r.namespace, s.CurrencySymbol, s.DefaultTaxRate, s.InstituteName, s.AcademicYear, s.HomeState,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.DebugContext(ctx, "State saved to SQLite", "namespace", r.namespace, "records", len(p.Records))
	return nil
}

// Load returns the stored state. ok is false when nothing was saved yet.
func (r *SQLiteRepository) Load(ctx context.Context) (store.Persisted, bool, error) {
	var p store.Persisted
	err := r.db.QueryRowContext(ctx,
		`SELECT currency_symbol, default_tax_rate, institute_name, academic_year, home_state
		 FROM app_settings WHERE namespace = ?`, r.namespace,
	).Scan(&p.Settings.CurrencySymbol, &p.Settings.DefaultTaxRate, &p.Settings.InstituteName,
		&p.Settings.AcademicYear, &p.Settings.HomeState)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Persisted{}, false, nil
	}
	if err != nil {
		return store.Persisted{}, false, fmt.Errorf("load settings: %w", err)
	}

	records, err := r.records(ctx)
	if err != nil {
		return store.Persisted{}, false, err
	}
	p.Records = records
	return p, true, nil
}

// Records returns the stored records in their original order.
func (r *SQLiteRepository) Records(ctx context.Context) ([]core.StudentRecord, error) {
	return r.records(ctx)
}

func (r *SQLiteRepository) records(ctx context.Context) ([]core.StudentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT
		id, reg_no, name, email, state, course_code, branch_code, year, semester, payment_date,
		amount, other_amount, total_paid, payment_mode, gross_amount, calculated_tax, net_amount, processed
		FROM student_records WHERE namespace = ? ORDER BY position`, r.namespace)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := []core.StudentRecord{}
	for rows.Next() {
		var (
			rec       core.StudentRecord
			date      string
			processed int
		)
		if err := rows.Scan(&rec.ID, &rec.RegNo, &rec.Name, &rec.Email, &rec.State, &rec.CourseCode,
			&rec.BranchCode, &rec.Year, &rec.Semester, &date, &rec.Amount, &rec.OtherAmount, &rec.TotalPaid,
			&rec.PaymentMode, &rec.GrossAmount, &rec.CalculatedTax, &rec.NetAmount, &processed); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if date != "" {
			t, err := time.Parse("2006-01-02", date)
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", rec.ID, core.ErrInvalidDate)
			}
			rec.Date = core.NewDate(t.Year(), int(t.Month()), t.Day())
		}
		rec.Processed = processed != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// RecordExport appends an entry to the export log.
func (r *SQLiteRepository) RecordExport(ctx context.Context, e SheetExport) error {
	if e.ExportedAt.IsZero() {
		e.ExportedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO sheet_exports
		(namespace, fingerprint, record_count, ref, status, error, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.namespace, e.Fingerprint, e.RecordCount, e.Ref, e.Status, e.Error,
		e.ExportedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

// LastSuccessfulExport returns the newest successful export, if any.
func (r *SQLiteRepository) LastSuccessfulExport(ctx context.Context) (SheetExport, bool, error) {
	var (
		e  SheetExport
		at string
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, fingerprint, record_count, ref, status, error, exported_at
		FROM sheet_exports WHERE namespace = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		r.namespace, ExportSuccess,
	).Scan(&e.ID, &e.Fingerprint, &e.RecordCount, &e.Ref, &e.Status, &e.Error, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return SheetExport{}, false, nil
	}
	if err != nil {
		return SheetExport{}, false, fmt.Errorf("last export: %w", err)
	}
	e.ExportedAt, _ = time.Parse(time.RFC3339Nano, at)
	return e, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
