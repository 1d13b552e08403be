package rfid

import (
	"errors"
	"time"
)

// Tag represents a stored RFID tag and its access policy.
type Tag struct {
	ID           string     `json:"id"`
	RFID         string     `json:"rfid"`
	UserID       string     `json:"user_id,omitempty"`
	Valid        bool       `json:"valid"`
	UsedTimes    int        `json:"used_times"`
	LastTimeUsed *time.Time `json:"last_time_used,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ScanResult is the outcome of presenting a tag at the reader.
type ScanResult struct {
	Tag *Tag `json:"tag"`

	// Granted reports whether access was allowed.
	Granted bool `json:"granted"`

	// Registered is true when this scan auto-registered a previously
	// unknown tag (always denied on that first scan).
	Registered bool `json:"registered"`
}

// Sentinel errors for tag operations.
var (
	ErrTagNotFound  = errors.New("tag not found")
	ErrOwnerMissing = errors.New("tag owner not found")
	ErrValidation   = errors.New("invalid input")
)
