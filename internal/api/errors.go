package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/latchwork/latchwork-core/internal/auth"
	"github.com/latchwork/latchwork-core/internal/device"
	"github.com/latchwork/latchwork-core/internal/rfid"
)

// response is the envelope for every API response body.
// Exactly one of Data and Error is populated.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeSuccess writes a success envelope with the given payload.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, response{Success: true, Data: data})
}

// writeError writes an error envelope with the given message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: false, Error: message})
}

// writeDomainError maps a domain error to its HTTP status and writes it.
//
// The mapping is deliberate: an expired token is 403 while a malformed one is
// 400, so clients can distinguish "log in again" from "fix your request". A
// rejected controller command is the caller's problem (400); an unreachable
// controller is a gateway failure (502).
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrResetTokenExpired):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrResetTokenInvalid),
		errors.Is(err, rfid.ErrValidation),
		errors.Is(err, device.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrNotVerified),
		errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, rfid.ErrTagNotFound),
		errors.Is(err, rfid.ErrOwnerMissing),
		errors.Is(err, device.ErrControllerUnavailable):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, device.ErrControllerUnreachable):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, device.ErrControllerRejected):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
