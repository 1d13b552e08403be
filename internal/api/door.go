package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/latchwork/latchwork-core/internal/device"
	"github.com/latchwork/latchwork-core/internal/logbook"
)

// handleOpenDoor commands the controller to open the door.
func (s *Server) handleOpenDoor(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireVerified(w, r)
	if !ok {
		return
	}

	address, err := s.locator.ResolveAddress(r.Context(), callerKey(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.dispatcher.Open(r.Context(), address); err != nil {
		if s.influx != nil {
			s.influx.WriteDoorCommand("open", "failed")
		}
		writeDomainError(w, err)
		return
	}

	s.record(r.Context(), logbook.TypeDoor, "door opened", id.UserID)
	s.hub.Broadcast(ChannelDoor, map[string]any{
		"action":  "open",
		"user_id": id.UserID,
	})
	if s.influx != nil {
		s.influx.WriteDoorCommand("open", "ok")
	}

	writeSuccess(w, http.StatusOK, map[string]any{"opened": true})
}

// handleGetMode returns the controller's current operating mode.
// Any authenticated identity may query the mode.
func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.authorize(w, r); !ok {
		return
	}

	mode, err := s.locator.ResolveMode(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"mode": mode})
}

// modeRequest is the request body for POST /door/mode.
type modeRequest struct {
	Mode device.Mode `json:"mode"`
}

// handleSetMode toggles the controller's operating mode.
// Changing the mode leaves the door unlocked in open mode, so it is gated
// on the super flag in addition to isVerified.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireSuper(w, r)
	if !ok {
		return
	}

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	address, err := s.locator.ResolveAddress(r.Context(), callerKey(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.dispatcher.ToggleMode(r.Context(), address, req.Mode)
	if err != nil {
		if s.influx != nil {
			s.influx.WriteDoorCommand("toggle-mode", "failed")
		}
		writeDomainError(w, err)
		return
	}

	if result.Applied {
		s.record(r.Context(), logbook.TypeMode,
			fmt.Sprintf("mode changed to %s", result.Mode), id.UserID)
		s.hub.Broadcast(ChannelDoor, map[string]any{
			"action":  "mode",
			"mode":    result.Mode,
			"user_id": id.UserID,
		})
		if s.influx != nil {
			s.influx.WriteDoorCommand("toggle-mode", "ok")
		}
	}

	writeSuccess(w, http.StatusOK, result)
}

// handleDoorCache retrieves the controller's on-device cache contents.
func (s *Server) handleDoorCache(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireVerified(w, r)
	if !ok {
		return
	}

	address, err := s.locator.ResolveAddress(r.Context(), callerKey(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	payload, err := s.dispatcher.FetchCache(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"cache": json.RawMessage(payload)})
}

// heartbeatRequest is the request body for POST /health/heartbeat.
type heartbeatRequest struct {
	Address string `json:"address"`
}

// handleHeartbeat records the controller's reported network address.
// Restricted to the device identity by requireDeviceMiddleware.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	if err := s.recordHeartbeat(r.Context(), req.Address); err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"recorded": true})
}
