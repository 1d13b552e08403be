package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/latchwork/latchwork-core/internal/logbook"
)

// handleListLogs returns log entries, newest first, with pagination and
// optional type/user/date filters.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.authorize(w, r); !ok {
		return
	}

	filter, err := parseLogFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.logs.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// handleListUserLogs returns one user's log entries.
func (s *Server) handleListUserLogs(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.authorize(w, r); !ok {
		return
	}

	filter, err := parseLogFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.UserID = chi.URLParam(r, "id")

	result, err := s.logs.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// createLogRequest is the request body for POST /logs.
type createLogRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// knownLogTypes are the entry types accepted on explicit log submission.
var knownLogTypes = map[string]struct{}{
	logbook.TypeDoor: {},
	logbook.TypeScan: {},
	logbook.TypeTag:  {},
	logbook.TypeAuth: {},
	logbook.TypeMode: {},
}

// handleCreateLog appends an explicit log entry attributed to the caller.
func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.authorize(w, r)
	if !ok {
		return
	}

	var req createLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if _, known := knownLogTypes[req.Type]; !known {
		writeError(w, http.StatusBadRequest, "unknown log type: "+req.Type)
		return
	}

	entry := &logbook.Entry{
		Type:    req.Type,
		Message: req.Message,
		UserID:  id.UserID,
	}
	if err := s.logs.Create(r.Context(), entry); err != nil {
		writeDomainError(w, err)
		return
	}
	s.hub.Broadcast(ChannelLogs, entry)

	writeSuccess(w, http.StatusCreated, entry)
}

// parseLogFilter builds a logbook filter from query parameters.
// Dates accept RFC 3339 or plain YYYY-MM-DD.
func parseLogFilter(r *http.Request) (logbook.Filter, error) {
	q := r.URL.Query()
	filter := logbook.Filter{
		Type:   q.Get("type"),
		UserID: q.Get("user_id"),
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return logbook.Filter{}, errInvalidQuery("page", v)
		}
		filter.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return logbook.Filter{}, errInvalidQuery("limit", v)
		}
		filter.Limit = limit
	}
	if v := q.Get("start"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return logbook.Filter{}, errInvalidQuery("start", v)
		}
		filter.StartDate = t
	}
	if v := q.Get("end"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return logbook.Filter{}, errInvalidQuery("end", v)
		}
		filter.EndDate = t
	}

	return filter, nil
}

// parseDate parses an RFC 3339 timestamp or a bare date.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

// queryError is a bad query parameter with its offending value.
type queryError struct {
	param string
	value string
}

func (e *queryError) Error() string {
	return "invalid " + e.param + " parameter: " + e.value
}

func errInvalidQuery(param, value string) error {
	return &queryError{param: param, value: value}
}
