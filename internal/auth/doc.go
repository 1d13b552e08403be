// Package auth provides accounts, credentials, and authorization for
// Latchwork Core.
//
// It covers user persistence, Argon2id password hashing, JWT access tokens
// (plus the static device key used by the door controller), TTL-cached
// verification flags, and one-time password reset tokens.
package auth
