package auth

import (
	"errors"
	"regexp"
	"time"
)

// emailPattern is a deliberately loose format check. Real validation happens
// when the recovery mail bounces.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxEmailLength is the maximum allowed email address length.
const maxEmailLength = 254

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialised
	IsVerified   bool      `json:"is_verified"`
	IsSuper      bool      `json:"is_super"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the authenticated caller resolved from a bearer credential.
// Exactly one of the two shapes occurs: a user identity (UserID set) or the
// shared device identity (Device true, UserID empty).
type Identity struct {
	UserID string
	Device bool
}

// UserIdentity returns the identity for a user account.
func UserIdentity(userID string) Identity {
	return Identity{UserID: userID}
}

// DeviceIdentity returns the shared controller identity.
func DeviceIdentity() Identity {
	return Identity{Device: true}
}

// Authorization holds the cached authorization flags for an identity.
type Authorization struct {
	IsVerified bool `json:"is_verified"`
	IsSuper    bool `json:"is_super"`
}

// ResetToken represents a stored one-time password reset token.
// Only the hash is persisted; the raw token goes out by mail.
type ResetToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // never serialised
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenMalformed     = errors.New("invalid token")
	ErrNotVerified        = errors.New("account is not verified")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrResetTokenInvalid  = errors.New("invalid reset token")
	ErrResetTokenExpired  = errors.New("reset token has expired")
)
