package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Password hashing uses Argon2id in PHC string form. Every stored hash
// carries its own cost parameters, so hashes created under earlier defaults
// keep verifying after the defaults change.
//
// The defaults are the low-memory Argon2id configuration: the gateway shares
// a small single-board host with the SQLite store, and 19 MiB per login
// bounds what concurrent attempts can pin.
const (
	hashMemory  = 19 * 1024 // KiB
	hashPasses  = 2
	hashLanes   = 1
	hashSaltLen = 16
	hashKeyLen  = 32
)

// minPasswordLength is the minimum accepted password length at registration.
const minPasswordLength = 8

// IsValidPassword checks a plaintext password against the length policy.
// Length is the only gate; there are no composition rules.
func IsValidPassword(password string) bool {
	return len(password) >= minPasswordLength
}

// HashPassword derives an Argon2id key from a plaintext password and encodes
// it as a PHC string: $argon2id$v=19$m=...,t=...,p=...$<salt>$<key>
func HashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, hashPasses, hashMemory, hashLanes, hashKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		hashMemory, hashPasses, hashLanes,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the stored PHC hash.
// Costs are read from the hash itself, not from the current defaults.
func VerifyPassword(password, stored string) (bool, error) {
	salt, key, p, err := parsePasswordHash(stored)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.lanes, uint32(len(key)))

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// hashParams are the Argon2id costs recorded in a stored hash.
type hashParams struct {
	memory uint32
	passes uint32
	lanes  uint8
}

// parsePasswordHash splits a PHC string into salt, derived key and costs.
// Only argon2id hashes at the library's current version are accepted.
func parsePasswordHash(stored string) (salt, key []byte, p hashParams, err error) {
	fields := strings.Split(stored, "$")
	if len(fields) != 6 || fields[0] != "" {
		return nil, nil, p, fmt.Errorf("malformed password hash")
	}
	if fields[1] != "argon2id" {
		return nil, nil, p, fmt.Errorf("unsupported hash algorithm %q", fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return nil, nil, p, fmt.Errorf("parsing hash version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, p, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.passes, &p.lanes); err != nil {
		return nil, nil, p, fmt.Errorf("parsing hash costs: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return nil, nil, p, fmt.Errorf("decoding salt: %w", err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return nil, nil, p, fmt.Errorf("decoding key: %w", err)
	}

	return salt, key, p, nil
}
