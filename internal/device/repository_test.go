package device

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the controller schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "device-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE controller_record (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			address TEXT NOT NULL,
			mode TEXT NOT NULL DEFAULT 'normal',
			updated_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying controller migration: %v", err)
	}

	return db
}

func TestControllerRepository_GetBeforeHeartbeat(t *testing.T) {
	repo := NewControllerRepository(testDB(t))

	if _, err := repo.Get(context.Background()); !errors.Is(err, ErrControllerUnavailable) {
		t.Errorf("Get() before heartbeat error = %v, want ErrControllerUnavailable", err)
	}
}

func TestControllerRepository_SetAddress(t *testing.T) {
	repo := NewControllerRepository(testDB(t))

	if err := repo.SetAddress(context.Background(), "192.168.1.50"); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}

	rec, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Address != "192.168.1.50" {
		t.Errorf("Address = %q, want %q", rec.Address, "192.168.1.50")
	}
	if rec.Mode != ModeNormal {
		t.Errorf("first heartbeat Mode = %q, want %q", rec.Mode, ModeNormal)
	}
}

func TestControllerRepository_SetAddress_SingletonAndModePreserved(t *testing.T) {
	db := testDB(t)
	repo := NewControllerRepository(db)

	if err := repo.SetAddress(context.Background(), "192.168.1.50"); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}
	if err := repo.SetMode(context.Background(), ModeOpen); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if err := repo.SetAddress(context.Background(), "192.168.1.99"); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM controller_record").Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Errorf("controller_record rows = %d, want 1", count)
	}

	rec, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Address != "192.168.1.99" {
		t.Errorf("Address = %q, want updated address", rec.Address)
	}
	if rec.Mode != ModeOpen {
		t.Errorf("Mode = %q, address update must not reset mode", rec.Mode)
	}
}

func TestControllerRepository_SetMode(t *testing.T) {
	repo := NewControllerRepository(testDB(t))

	// No heartbeat yet: nothing to set the mode on.
	if err := repo.SetMode(context.Background(), ModeOpen); !errors.Is(err, ErrControllerUnavailable) {
		t.Errorf("SetMode() before heartbeat error = %v, want ErrControllerUnavailable", err)
	}

	if err := repo.SetAddress(context.Background(), "10.0.0.2"); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}
	if err := repo.SetMode(context.Background(), ModeOpen); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if err := repo.SetMode(context.Background(), "party"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("SetMode(invalid) error = %v, want ErrInvalidMode", err)
	}

	rec, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Mode != ModeOpen {
		t.Errorf("Mode = %q, want %q", rec.Mode, ModeOpen)
	}
}
