package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ControllerRepository defines the interface for the controller record.
type ControllerRepository interface {
	Get(ctx context.Context) (*ControllerRecord, error)
	SetAddress(ctx context.Context, address string) error
	SetMode(ctx context.Context, mode Mode) error
}

// SQLiteControllerRepository implements ControllerRepository using SQLite.
// The table holds at most one row (id fixed to 1).
type SQLiteControllerRepository struct {
	db *sql.DB
}

// NewControllerRepository creates a new SQLite-backed controller repository.
func NewControllerRepository(db *sql.DB) *SQLiteControllerRepository {
	return &SQLiteControllerRepository{db: db}
}

// Get returns the controller record, or ErrControllerUnavailable when the
// controller has never reported in.
func (r *SQLiteControllerRepository) Get(ctx context.Context) (*ControllerRecord, error) {
	var rec ControllerRecord
	var mode, updatedAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT address, mode, updated_at FROM controller_record WHERE id = 1",
	).Scan(&rec.Address, &mode, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrControllerUnavailable
		}
		return nil, fmt.Errorf("reading controller record: %w", err)
	}

	rec.Mode = Mode(mode)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &rec, nil
}

// SetAddress records the controller's reported address, creating the
// singleton row on first heartbeat. Mode is preserved.
func (r *SQLiteControllerRepository) SetAddress(ctx context.Context, address string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO controller_record (id, address, mode, updated_at)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   address = excluded.address,
		   updated_at = excluded.updated_at`,
		address, string(ModeNormal), now,
	)
	if err != nil {
		return fmt.Errorf("recording controller address: %w", err)
	}
	return nil
}

// SetMode records the controller's operating mode.
// ErrControllerUnavailable when the controller has never reported in.
func (r *SQLiteControllerRepository) SetMode(ctx context.Context, mode Mode) error {
	if !IsValidMode(mode) {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"UPDATE controller_record SET mode = ?, updated_at = ? WHERE id = 1",
		string(mode), now,
	)
	if err != nil {
		return fmt.Errorf("recording controller mode: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrControllerUnavailable
	}
	return nil
}
