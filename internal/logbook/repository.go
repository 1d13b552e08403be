// Package logbook provides the append-only event log: door commands, tag
// scans, auth events. Entries are written once and queried with pagination
// and date filters; nothing is ever updated or deleted.
package logbook

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry types written by the gateway.
const (
	TypeDoor = "door"
	TypeScan = "scan"
	TypeTag  = "tag"
	TypeAuth = "auth"
	TypeMode = "mode"
)

// Entry represents a single log entry.
type Entry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Pagination defaults and bounds.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// Filter controls which log entries to return.
type Filter struct {
	Type      string    // optional: filter by entry type
	UserID    string    // optional: filter by user
	StartDate time.Time // optional: entries at or after this instant
	EndDate   time.Time // optional: entries before this instant
	Page      int       // 1-based page number, default 1
	Limit     int       // default 50, max 200
}

// ListResult contains the paginated log results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
}

// Repository defines the interface for log entry operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores log entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed log repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new log entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "log-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO log_entries (id, type, message, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Type, entry.Message,
		nullableString(entry.UserID),
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}

	return nil
}

// List returns log entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if !filter.StartDate.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.StartDate.UTC().Format(time.RFC3339))
	}
	if !filter.EndDate.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, filter.EndDate.UTC().Format(time.RFC3339))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE clause is built from parameterised conditions (? placeholders) — no user input in SQL string.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM log_entries %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting log entries: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, type, message, user_id, created_at FROM log_entries %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying log entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var userID sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Type, &e.Message, &userID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}

		if userID.Valid {
			e.UserID = userID.String
		}
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing log timestamp %q: %w", createdAt, err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating log entries: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Page:    filter.Page,
		Limit:   filter.Limit,
	}, nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
