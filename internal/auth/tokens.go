package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and verifies bearer credentials. Two credential shapes
// are accepted: signed JWT access tokens for user accounts, and the static
// device key presented verbatim by the door controller and scan readers.
type TokenService struct {
	secret    []byte
	deviceKey []byte
	ttl       time.Duration
}

// NewTokenService creates a token service.
// ttl is the lifetime of issued access tokens.
func NewTokenService(secret, deviceKey string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		deviceKey: []byte(deviceKey),
		ttl:       ttl,
	}
}

// Issue creates a signed HS256 access token for a user.
// Tokens are validated by signature only (no DB hit).
func (s *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// Verify resolves a bearer credential to an identity.
//
// The device key is checked first with a constant-time compare; a match is
// the device identity and skips JWT parsing entirely. Anything else must be
// a valid signed token. Expired tokens return ErrTokenExpired; everything
// else that fails returns ErrTokenMalformed. Verify never touches the store.
func (s *TokenService) Verify(credential string) (Identity, error) {
	if len(s.deviceKey) > 0 && subtle.ConstantTimeCompare([]byte(credential), s.deviceKey) == 1 {
		return DeviceIdentity(), nil
	}

	token, err := jwt.ParseWithClaims(credential, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrTokenMalformed
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}

	return UserIdentity(claims.Subject), nil
}

// resetTokenBytes is the entropy of a raw reset token (256-bit).
const resetTokenBytes = 32

// GenerateResetToken creates a cryptographically random password reset token.
// The raw token is mailed to the user; only its hash is stored.
func GenerateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashResetToken returns the storage form of a raw reset token.
// SHA-256 is enough here: the input is 256-bit random, not a password.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
