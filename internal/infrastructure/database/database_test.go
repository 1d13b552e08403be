package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}
}

func TestOpen(t *testing.T) {
	cfg := testConfig(t)

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Path() != cfg.Path {
		t.Errorf("Path() = %q, want %q", db.Path(), cfg.Path)
	}

	if _, err := os.Stat(cfg.Path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	cfg := Config{
		Path:        filepath.Join(t.TempDir(), "nested", "dir", "test.db"),
		WALMode:     false,
		BusyTimeout: 5,
	}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
}

func TestOpen_ForeignKeysEnabled(t *testing.T) {
	db, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("querying foreign_keys pragma: %v", err)
	}
	if enabled != 1 {
		t.Error("foreign keys should be enabled")
	}
}

func TestHealthCheck(t *testing.T) {
	db, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_ClosedDB(t *testing.T) {
	db, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	db.Close()

	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() on closed database should fail")
	}
}

func TestClose_Idempotent(t *testing.T) {
	db, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
