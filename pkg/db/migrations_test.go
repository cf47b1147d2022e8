package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Logf("Warning: failed to close database: %v", err)
		}
	})
	return conn
}

func TestEmbeddedMigrationsSorted(t *testing.T) {
	migrations, err := GetEmbeddedMigrations()
	if err != nil {
		t.Fatalf("GetEmbeddedMigrations failed: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "initial" {
		t.Errorf("unexpected first migration: %d %s", migrations[0].Version, migrations[0].Name)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Errorf("migrations not sorted: %d after %d", migrations[i].Version, migrations[i-1].Version)
		}
	}
}

func TestInitializeDatabase(t *testing.T) {
	conn := openTestDB(t)

	if err := InitializeDatabase(conn); err != nil {
		t.Fatalf("InitializeDatabase failed: %v", err)
	}

	for _, table := range []string{"pages", "annotations", "pages_fts", "schema_migrations"} {
		var name string
		err := conn.QueryRow("SELECT name FROM sqlite_master WHERE name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	manager := NewMigrationManager(conn)
	pending, err := manager.GetPendingMigrations()
	if err != nil {
		t.Fatalf("GetPendingMigrations failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending migrations, got %d", len(pending))
	}

	// applying again is a no-op
	n, err := manager.ApplyPendingMigrations()
	if err != nil || n != 0 {
		t.Errorf("expected nothing to apply, got %d, %v", n, err)
	}
}

func TestMigrationsFromPath(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"001_first.sql":  "CREATE TABLE first (id INTEGER);",
		"002_second.sql": "CREATE TABLE second (id INTEGER);",
		"notes.txt":      "ignored",
		"bad_name.sql":   "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	conn := openTestDB(t)
	manager := NewMigrationManagerFromPath(conn, dir)

	status, err := manager.GetMigrationStatus()
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if len(status.Pending) != 2 || len(status.Applied) != 0 {
		t.Fatalf("expected 2 pending, got %d pending %d applied", len(status.Pending), len(status.Applied))
	}

	if err := manager.ApplyMigration(status.Pending[0]); err != nil {
		t.Fatalf("ApplyMigration failed: %v", err)
	}
	status, err = manager.GetMigrationStatus()
	if err != nil {
		t.Fatalf("GetMigrationStatus failed: %v", err)
	}
	if len(status.Applied) != 1 || status.Applied[0].AppliedAt == nil {
		t.Fatalf("expected first migration applied with a timestamp, got %+v", status.Applied)
	}

	n, err := manager.ApplyPendingMigrations()
	if err != nil {
		t.Fatalf("ApplyPendingMigrations failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 migration applied, got %d", n)
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_broken.sql"), []byte("CREATE TABLE ok (id INTEGER); NOT SQL;"), 0644); err != nil {
		t.Fatal(err)
	}

	conn := openTestDB(t)
	manager := NewMigrationManagerFromPath(conn, dir)
	if _, err := manager.ApplyPendingMigrations(); err == nil {
		t.Fatal("expected broken migration to fail")
	}

	pending, err := manager.GetPendingMigrations()
	if err != nil {
		t.Fatalf("GetPendingMigrations failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("failed migration must stay pending, got %d", len(pending))
	}
}
