package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/latchwork/latchwork-core/internal/auth"
	"github.com/latchwork/latchwork-core/internal/logbook"
	"github.com/latchwork/latchwork-core/internal/notify"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// tokenResponse is the success payload for login and register.
type tokenResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	User      *auth.User `json:"user"`
}

// handleLogin authenticates a user and returns a signed access token.
//
// A missing account and a wrong password produce the same 401 so the
// response never reveals which credential failed.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeDomainError(w, auth.ErrInvalidCredentials)
			return
		}
		writeDomainError(w, err)
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		writeDomainError(w, auth.ErrInvalidCredentials)
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("failed to issue access token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.record(r.Context(), logbook.TypeAuth, "user logged in", user.ID)

	writeSuccess(w, http.StatusOK, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		User:      user,
	})
}

// handleRegister creates a new account. New accounts start unverified; an
// operator flips the flag before the account can drive the door.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !auth.IsValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if !auth.IsValidPassword(req.Password) {
		writeError(w, http.StatusBadRequest, "password does not meet the length requirement")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &auth.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("failed to issue access token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.record(r.Context(), logbook.TypeAuth, "user registered", user.ID)

	writeSuccess(w, http.StatusCreated, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		User:      user,
	})
}

// handleAuthVerify reports the caller's identity and authorization flags.
func (s *Server) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	id, authz, ok := s.authorize(w, r)
	if !ok {
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"user_id":     id.UserID,
		"device":      id.Device,
		"is_verified": authz.IsVerified,
		"is_super":    authz.IsSuper,
	})
}

// forgetRequest is the request body for POST /auth/forget.
type forgetRequest struct {
	Email string `json:"email"`
}

// handleForget starts the password recovery flow.
//
// The response is the same whether or not the address belongs to an account,
// so the endpoint cannot be used to enumerate users. The raw token goes out
// by mail; only its hash is stored.
func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	var req forgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !auth.IsValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	accepted := func() {
		writeSuccess(w, http.StatusOK, map[string]any{
			"message": "if the address is registered, a reset token has been sent",
		})
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			s.logger.Error("password recovery lookup failed", "error", err)
		}
		accepted()
		return
	}

	raw, err := auth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", "error", err)
		accepted()
		return
	}

	token := &auth.ResetToken{
		UserID:    user.ID,
		TokenHash: auth.HashResetToken(raw),
		ExpiresAt: time.Now().UTC().Add(s.resetTTL),
	}
	if err := s.resets.Create(r.Context(), token); err != nil {
		s.logger.Error("failed to store reset token", "user_id", user.ID, "error", err)
		accepted()
		return
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(user.Email, raw); err != nil && !errors.Is(err, notify.ErrDisabled) {
			s.logger.Error("failed to send reset mail", "user_id", user.ID, "error", err)
		}
	}

	s.record(r.Context(), logbook.TypeAuth, "password reset requested", user.ID)
	accepted()
}

// resetRequest is the request body for POST /auth/reset.
type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// handleReset consumes a reset token and sets a new password.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeDomainError(w, auth.ErrResetTokenInvalid)
		return
	}
	if !auth.IsValidPassword(req.Password) {
		writeError(w, http.StatusBadRequest, "password does not meet the length requirement")
		return
	}

	token, err := s.resets.Consume(r.Context(), auth.HashResetToken(req.Token))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := s.users.UpdatePassword(r.Context(), token.UserID, hash); err != nil {
		writeDomainError(w, err)
		return
	}

	// Consume deleted the used token; drop any older tokens still stored
	// for the user.
	if err := s.resets.DeleteForUser(r.Context(), token.UserID); err != nil {
		s.logger.Warn("failed to clear reset tokens", "user_id", token.UserID, "error", err)
	}
	s.verifier.Invalidate(token.UserID)

	s.record(r.Context(), logbook.TypeAuth, "password reset completed", token.UserID)

	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "password updated",
	})
}
