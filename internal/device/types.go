package device

import (
	"errors"
	"time"
)

// Mode is the door controller's operating mode.
type Mode string

const (
	// ModeNormal requires a trusted tag to open the door.
	ModeNormal Mode = "normal"

	// ModeOpen holds the door unlocked until toggled back.
	ModeOpen Mode = "open"
)

// IsValidMode reports whether m is a known operating mode.
func IsValidMode(m Mode) bool {
	return m == ModeNormal || m == ModeOpen
}

// ControllerRecord is the singleton record describing the door controller's
// last reported network address and operating mode. Written by the heartbeat
// path, read by the locator.
type ControllerRecord struct {
	Address   string    `json:"address"`
	Mode      Mode      `json:"mode"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToggleResult is the outcome of a mode-change request.
type ToggleResult struct {
	// Applied is false when the controller was already in the requested
	// mode and no hardware call was made.
	Applied bool `json:"applied"`

	// Mode is the controller's mode after the request.
	Mode Mode `json:"mode"`
}

// Sentinel errors for device operations.
var (
	ErrControllerUnavailable = errors.New("controller address unknown")
	ErrControllerUnreachable = errors.New("controller unreachable")
	ErrControllerRejected    = errors.New("controller rejected command")
	ErrInvalidMode           = errors.New("invalid mode")
)
