package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/latchwork/latchwork-core/internal/logbook"
)

// handleListUsers returns every account with the total count.
// Password hashes never serialise.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireSuper(w, r); !ok {
		return
	}

	users, err := s.users.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	count, err := s.users.Count(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"users": users,
		"count": count,
	})
}

// updateUserRequest carries the account fields an administrator may change.
// Absent fields keep their stored value.
type updateUserRequest struct {
	Name       *string `json:"name"`
	IsVerified *bool   `json:"is_verified"`
	IsSuper    *bool   `json:"is_super"`
}

// handleUpdateUser flips an account's flags or renames it. Cached
// authorization for the account is dropped so the change takes effect on the
// next request.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireSuper(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.IsVerified != nil {
		user.IsVerified = *req.IsVerified
	}
	if req.IsSuper != nil {
		user.IsSuper = *req.IsSuper
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}
	s.verifier.Invalidate(user.ID)

	s.record(r.Context(), logbook.TypeAuth,
		fmt.Sprintf("account %s updated", user.Email), callerKey(caller))

	writeSuccess(w, http.StatusOK, user)
}

// handleDeleteUser removes an account. Administrators cannot delete their
// own account; someone with the super flag must always remain reachable.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireSuper(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if !caller.Device && caller.UserID == id {
		writeError(w, http.StatusBadRequest, "cannot delete own account")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Stored reset tokens go with the account via the schema's cascade.
	if err := s.users.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.verifier.Invalidate(id)

	s.record(r.Context(), logbook.TypeAuth,
		fmt.Sprintf("account %s removed", user.Email), callerKey(caller))

	writeSuccess(w, http.StatusOK, map[string]any{"id": id})
}
