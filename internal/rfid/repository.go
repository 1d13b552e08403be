package rfid

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TagRepository defines the interface for RFID tag persistence.
type TagRepository interface {
	Scan(ctx context.Context, rfid string) (*Tag, bool, error)
	GetByRFID(ctx context.Context, rfid string) (*Tag, error)
	Assign(ctx context.Context, rfid, userID string) error
	SetValid(ctx context.Context, rfid string, valid bool) error
	Delete(ctx context.Context, rfid string) error
	List(ctx context.Context) ([]Tag, error)
	ListByUser(ctx context.Context, userID string) ([]Tag, error)
}

// SQLiteTagRepository implements TagRepository using SQLite.
type SQLiteTagRepository struct {
	db *sql.DB
}

// NewTagRepository creates a new SQLite-backed tag repository.
func NewTagRepository(db *sql.DB) *SQLiteTagRepository {
	return &SQLiteTagRepository{db: db}
}

const tagColumns = "id, rfid, user_id, valid, used_times, last_time_used, created_at"

// Scan records a tag presentation in a single upsert: an unknown tag is
// created invalid with used_times=1, a known tag gets its counter bumped and
// last_time_used stamped. The returned bool reports whether the tag was
// newly created by this scan.
func (r *SQLiteTagRepository) Scan(ctx context.Context, rfid string) (*Tag, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rfid_tags (id, rfid, valid, used_times, last_time_used, created_at)
		 VALUES (?, ?, 0, 1, ?, ?)
		 ON CONFLICT(rfid) DO UPDATE SET
		   used_times = used_times + 1,
		   last_time_used = excluded.last_time_used`,
		"tag-"+uuid.NewString()[:8], rfid, now, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("recording scan: %w", err)
	}

	tag, err := r.GetByRFID(ctx, rfid)
	if err != nil {
		return nil, false, err
	}

	// A tag only enters the table through Scan, so a count of one means
	// this scan created it.
	return tag, tag.UsedTimes == 1, nil
}

// GetByRFID retrieves a tag by its identifier.
func (r *SQLiteTagRepository) GetByRFID(ctx context.Context, rfid string) (*Tag, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+tagColumns+" FROM rfid_tags WHERE rfid = ?", rfid)
	return scanTagFrom(row)
}

// Assign links a tag to a user and marks it valid.
// A missing tag returns ErrTagNotFound; a missing user ErrOwnerMissing
// (surfaced via the foreign key constraint).
func (r *SQLiteTagRepository) Assign(ctx context.Context, rfid, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE rfid_tags SET user_id = ?, valid = 1 WHERE rfid = ?",
		userID, rfid,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrOwnerMissing
		}
		return fmt.Errorf("assigning tag: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTagNotFound
	}
	return nil
}

// SetValid flips a tag's valid flag without touching its ownership.
func (r *SQLiteTagRepository) SetValid(ctx context.Context, rfid string, valid bool) error {
	v := 0
	if valid {
		v = 1
	}
	result, err := r.db.ExecContext(ctx,
		"UPDATE rfid_tags SET valid = ? WHERE rfid = ?", v, rfid)
	if err != nil {
		return fmt.Errorf("setting tag permission: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTagNotFound
	}
	return nil
}

// Delete removes a tag by its identifier.
func (r *SQLiteTagRepository) Delete(ctx context.Context, rfid string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM rfid_tags WHERE rfid = ?", rfid)
	if err != nil {
		return fmt.Errorf("deleting tag: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTagNotFound
	}
	return nil
}

// List returns all tags ordered by creation date.
func (r *SQLiteTagRepository) List(ctx context.Context) ([]Tag, error) {
	return r.listTags(ctx, "SELECT "+tagColumns+" FROM rfid_tags ORDER BY created_at ASC")
}

// ListByUser returns all tags assigned to a user.
func (r *SQLiteTagRepository) ListByUser(ctx context.Context, userID string) ([]Tag, error) {
	return r.listTags(ctx,
		"SELECT "+tagColumns+" FROM rfid_tags WHERE user_id = ? ORDER BY created_at ASC", userID)
}

func (r *SQLiteTagRepository) listTags(ctx context.Context, query string, args ...any) ([]Tag, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		t, err := scanTagFrom(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}

	if tags == nil {
		tags = []Tag{}
	}
	return tags, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanTagFrom scans a tag from any scanner (Row or Rows).
func scanTagFrom(s scanner) (*Tag, error) {
	var t Tag
	var userID, lastUsed sql.NullString
	var valid int
	var createdAt string

	err := s.Scan(&t.ID, &t.RFID, &userID, &valid, &t.UsedTimes, &lastUsed, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("scanning tag: %w", err)
	}

	t.Valid = valid != 0
	if userID.Valid {
		t.UserID = userID.String
	}
	if lastUsed.Valid {
		ts, _ := time.Parse(time.RFC3339, lastUsed.String) //nolint:errcheck // format is controlled
		t.LastTimeUsed = &ts
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &t, nil
}

// isForeignKeyViolation checks if a SQLite error is a FOREIGN KEY constraint violation.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
