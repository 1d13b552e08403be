package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResetTokenRepository defines the interface for password reset token persistence.
type ResetTokenRepository interface {
	Create(ctx context.Context, token *ResetToken) error
	Consume(ctx context.Context, tokenHash string) (*ResetToken, error)
	DeleteForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int, error)
}

// SQLiteResetTokenRepository implements ResetTokenRepository using SQLite.
type SQLiteResetTokenRepository struct {
	db *sql.DB
}

// NewResetTokenRepository creates a new SQLite-backed reset token repository.
func NewResetTokenRepository(db *sql.DB) *SQLiteResetTokenRepository {
	return &SQLiteResetTokenRepository{db: db}
}

// Create stores a reset token. Any previous tokens for the same user are
// removed first, so only the most recently requested token works.
func (r *SQLiteResetTokenRepository) Create(ctx context.Context, token *ResetToken) error {
	if token.ID == "" {
		token.ID = "rst-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	token.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM reset_tokens WHERE user_id = ?", token.UserID); err != nil {
		return fmt.Errorf("clearing previous reset tokens: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reset_tokens (id, user_id, token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		token.ID, token.UserID, token.TokenHash,
		token.ExpiresAt.UTC().Format(time.RFC3339), now,
	); err != nil {
		return fmt.Errorf("creating reset token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset token: %w", err)
	}
	return nil
}

// Consume looks up a token by hash and deletes it, making it single-use.
// Returns ErrResetTokenInvalid when absent and ErrResetTokenExpired when the
// deadline has passed (the expired row is deleted too).
func (r *SQLiteResetTokenRepository) Consume(ctx context.Context, tokenHash string) (*ResetToken, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var t ResetToken
	var expiresAt, createdAt string
	err = tx.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, created_at FROM reset_tokens WHERE token_hash = ?",
		tokenHash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("looking up reset token: %w", err)
	}

	t.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	if _, err := tx.ExecContext(ctx, "DELETE FROM reset_tokens WHERE id = ?", t.ID); err != nil {
		return nil, fmt.Errorf("consuming reset token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reset token consumption: %w", err)
	}

	if time.Now().After(t.ExpiresAt) {
		return nil, ErrResetTokenExpired
	}
	return &t, nil
}

// DeleteForUser removes all reset tokens belonging to a user.
// Called after a successful password change.
func (r *SQLiteResetTokenRepository) DeleteForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM reset_tokens WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("deleting reset tokens: %w", err)
	}
	return nil
}

// DeleteExpired removes all tokens past their deadline and reports how many.
func (r *SQLiteResetTokenRepository) DeleteExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, "DELETE FROM reset_tokens WHERE expires_at < ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired reset tokens: %w", err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return int(n), nil
}
