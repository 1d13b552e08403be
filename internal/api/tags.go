package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/latchwork/latchwork-core/internal/logbook"
	"github.com/latchwork/latchwork-core/internal/rfid"
)

// handleListTags returns all stored tags, or one user's tags when the
// user_id query parameter is set.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireVerified(w, r); !ok {
		return
	}

	var (
		tags []rfid.Tag
		err  error
	)
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		tags, err = s.engine.ListByUser(r.Context(), userID)
	} else {
		tags, err = s.engine.List(r.Context())
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"tags": tags})
}

// scanRequest is the request body for POST /tags.
type scanRequest struct {
	RFID string `json:"rfid"`
}

// handleScanTagBody processes a scan with the tag ID in the request body.
func (s *Server) handleScanTagBody(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.scanTag(w, r, req.RFID)
}

// handleScanTag processes a scan with the tag ID in the URL path.
// This is the route the door reader calls with the device key.
func (s *Server) handleScanTag(w http.ResponseWriter, r *http.Request) {
	s.scanTag(w, r, chi.URLParam(r, "rfid"))
}

// scanTag runs the tag policy and fans the outcome out: a scan log entry,
// a door event for subscribers, and a telemetry point.
func (s *Server) scanTag(w http.ResponseWriter, r *http.Request, tagID string) {
	id, ok := s.requireVerified(w, r)
	if !ok {
		return
	}

	result, err := s.engine.Scan(r.Context(), tagID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var message string
	switch {
	case result.Registered:
		message = fmt.Sprintf("unknown tag %s registered, access denied", tagID)
	case result.Granted:
		message = fmt.Sprintf("tag %s granted access", tagID)
	default:
		message = fmt.Sprintf("tag %s denied access", tagID)
	}
	s.record(r.Context(), logbook.TypeScan, message, result.Tag.UserID)

	s.hub.Broadcast(ChannelDoor, map[string]any{
		"action":     "scan",
		"rfid":       tagID,
		"granted":    result.Granted,
		"registered": result.Registered,
		"scanned_by": callerKey(id),
	})

	if s.influx != nil {
		s.influx.WriteScan(tagID, result.Granted, result.Registered)
	}

	writeSuccess(w, http.StatusOK, result)
}

// assignRequest is the request body for POST /tags/assign.
type assignRequest struct {
	RFID   string `json:"rfid"`
	UserID string `json:"user_id"`
}

// handleAssignTag links a tag to a user and marks it trusted.
func (s *Server) handleAssignTag(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireVerified(w, r); !ok {
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tag, err := s.engine.Assign(r.Context(), req.RFID, req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.record(r.Context(), logbook.TypeTag,
		fmt.Sprintf("tag %s assigned", req.RFID), req.UserID)

	writeSuccess(w, http.StatusOK, tag)
}

// permissionRequest is the request body for POST /tags/permission.
type permissionRequest struct {
	RFID  string `json:"rfid"`
	Valid bool   `json:"valid"`
}

// handleTagPermission flips a tag's trust flag without changing ownership.
func (s *Server) handleTagPermission(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireVerified(w, r); !ok {
		return
	}

	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tag, err := s.engine.SetPermission(r.Context(), req.RFID, req.Valid)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.record(r.Context(), logbook.TypeTag,
		fmt.Sprintf("tag %s permission set to %t", req.RFID, req.Valid), tag.UserID)

	writeSuccess(w, http.StatusOK, tag)
}

// handleDeleteTag removes a tag entirely.
func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireVerified(w, r); !ok {
		return
	}

	tagID := chi.URLParam(r, "rfid")
	if err := s.engine.Remove(r.Context(), tagID); err != nil {
		writeDomainError(w, err)
		return
	}

	s.record(r.Context(), logbook.TypeTag, fmt.Sprintf("tag %s removed", tagID), "")

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": tagID})
}
