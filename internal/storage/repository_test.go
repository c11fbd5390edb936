package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"feetax/internal/core"
	"feetax/internal/store"
)

func newTestRepo(t *testing.T, namespace string) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "feetax.db")
	repo, err := NewSQLiteRepository(path, namespace)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func sampleState() store.Persisted {
	slabs := core.DefaultSlabs()
	settings := core.DefaultSettings()
	settings.InstituteName = "North Campus"
	return store.Persisted{
		Records: []core.StudentRecord{
			core.StudentRecord{ID: "student-000002", RegNo: "R2", Name: "Ravi", CourseCode: "MBA", BranchCode: "FIN",
				Year: 1, Semester: 2, Date: core.NewDate(2024, 4, 1), Amount: 900000, OtherAmount: 12.5,
				TotalPaid: 900012.5, PaymentMode: "Card"}.WithTax(slabs),
			core.StudentRecord{ID: "student-000001", RegNo: "R1", Name: "Asha", Email: "asha@example.com", State: "Delhi",
				CourseCode: "BTECH", BranchCode: "CSE", Date: core.NewDate(2024, 3, 5), Amount: 100}.WithTax(slabs),
		},
		Settings: settings,
	}
}

func TestSQLiteLoadEmpty(t *testing.T) {
	repo, _ := newTestRepo(t, "")
	_, ok, err := repo.Load(context.Background())
	if err != nil || ok {
		t.Fatalf("expected nothing stored, ok=%v err=%v", ok, err)
	}
	if repo.namespace != DefaultNamespace {
		t.Fatalf("namespace = %q", repo.namespace)
	}
}

func TestSQLiteSaveAndLoad(t *testing.T) {
	repo, _ := newTestRepo(t, "")
	ctx := context.Background()
	want := sampleState()
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := repo.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Settings != want.Settings {
		t.Fatalf("settings = %+v, want %+v", got.Settings, want.Settings)
	}
	if len(got.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got.Records))
	}
	for i := range want.Records {
		if got.Records[i] != want.Records[i] {
			t.Fatalf("record %d = %+v, want %+v", i, got.Records[i], want.Records[i])
		}
	}
}

func TestSQLiteSaveReplaces(t *testing.T) {
	repo, _ := newTestRepo(t, "")
	ctx := context.Background()
	if err := repo.Save(ctx, sampleState()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cleared := store.Persisted{Records: []core.StudentRecord{}, Settings: core.DefaultSettings()}
	if err := repo.Save(ctx, cleared); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := repo.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if len(got.Records) != 0 || got.Records == nil {
		t.Fatalf("expected empty record set, got %v", got.Records)
	}
	if got.Settings != core.DefaultSettings() {
		t.Fatalf("settings not replaced: %+v", got.Settings)
	}
}

func TestSQLiteNamespacesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := NewSQLiteRepository(path, "a")
	if err != nil {
		t.Fatalf("repo a: %v", err)
	}
	defer a.Close()
	b, err := NewSQLiteRepository(path, "b")
	if err != nil {
		t.Fatalf("repo b: %v", err)
	}
	defer b.Close()

	if err := a.Save(context.Background(), sampleState()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok, _ := b.Load(context.Background()); ok {
		t.Fatalf("namespace b should be empty")
	}
}

func TestSQLiteExportLog(t *testing.T) {
	repo, path := newTestRepo(t, "")
	ctx := context.Background()

	if _, ok, err := repo.LastSuccessfulExport(ctx); err != nil || ok {
		t.Fatalf("expected no exports, ok=%v err=%v", ok, err)
	}
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.RecordExport(ctx, SheetExport{Fingerprint: "f1", RecordCount: 2, Ref: "A1:R3", Status: ExportSuccess, ExportedAt: at}); err != nil {
		t.Fatalf("RecordExport: %v", err)
	}
	if err := repo.RecordExport(ctx, SheetExport{Fingerprint: "f2", Status: ExportError, Error: "quota"}); err != nil {
		t.Fatalf("RecordExport: %v", err)
	}
	last, ok, err := repo.LastSuccessfulExport(ctx)
	if err != nil || !ok {
		t.Fatalf("LastSuccessfulExport: ok=%v err=%v", ok, err)
	}
	if last.Fingerprint != "f1" || last.RecordCount != 2 || !last.ExportedAt.Equal(at) {
		t.Fatalf("unexpected export: %+v", last)
	}

	v, err := SchemaVersion(path)
	if err != nil || v != 2 {
		t.Fatalf("schema version = %d, err=%v", v, err)
	}
}

func TestStoreRoundTripThroughSQLite(t *testing.T) {
	repo, _ := newTestRepo(t, "")
	ctx := context.Background()

	s := store.New(store.WithPersister(repo))
	rows := []core.RawRow{
		{"Reg No": "R1", "Course": "BTECH", "Branch": "CSE", "Date": "2024-03-05", "Amount": "5,00,000"},
		{"Reg No": "R2", "Course": "MBA", "Branch": "FIN", "Date": "2024-03-06", "Amount": -5.0},
	}
	if _, err := s.ReplaceData(ctx, rows); err != nil {
		t.Fatalf("ReplaceData: %v", err)
	}

	restored := store.New(store.WithPersister(repo))
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := restored.Snapshot()
	if len(got.Records) != 1 || got.Records[0].Amount != 500000 {
		t.Fatalf("unexpected restored records: %+v", got.Records)
	}
}

func TestFingerprint(t *testing.T) {
	a := sampleState().Records
	b := sampleState().Records
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("equal record sets should share a fingerprint")
	}
	b[0].Amount++
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatalf("different record sets should not share a fingerprint")
	}
	if Fingerprint(nil) != Fingerprint([]core.StudentRecord{}) {
		t.Fatalf("nil and empty should match")
	}
}
