package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateDirAcceptsRepoMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("expected repo migrations to validate: %v", err)
	}
}

func TestLedgerMigrationDeclaresPartialUniqueIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_payment_ledger_entries.sql"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one ledger migration, got %v err=%v", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_external_ref",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_paid_booking",
		"WHERE status = 'paid'",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("missing expected statement %q", want)
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Booking Notes!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_booking_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bookings.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestDialectFor(t *testing.T) {
	if d, err := dialectFor("sqlite"); err != nil || d != "sqlite3" {
		t.Fatalf("unexpected sqlite dialect %q err=%v", d, err)
	}
	if d, err := dialectFor(""); err != nil || d != "postgres" {
		t.Fatalf("unexpected default dialect %q err=%v", d, err)
	}
	if _, err := dialectFor("oracle"); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestCreateSQLMigrationRefusesExistingVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	path, err := createSQLMigration(dir, "add_reviews", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260301120000_add_reviews.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if _, err := createSQLMigration(dir, "add_reviews", now); err == nil {
		t.Fatal("expected duplicate migration error")
	}
	if _, err := createSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected empty slug error")
	}
}

func TestValidateDirRejectsMisorderedSections(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x (id int);\n"
	if err := os.WriteFile(filepath.Join(dir, "20260301120000_x.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil || !strings.Contains(err.Error(), "must follow") {
		t.Fatalf("expected ordering error, got %v", err)
	}
}

func TestValidateDirRejectsUnbalancedBlocks(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	if err := os.WriteFile(filepath.Join(dir, "20260301120000_x.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil || !strings.Contains(err.Error(), "unbalanced") {
		t.Fatalf("expected unbalanced error, got %v", err)
	}
}
