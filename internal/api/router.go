package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/forget", s.handleForget)
		r.Post("/auth/reset", s.handleReset)

		// Heartbeat: only the controller's device key is accepted
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.requireDeviceMiddleware)
			r.Post("/health/heartbeat", s.handleHeartbeat)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/verify", s.handleAuthVerify)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Tag endpoints
			r.Route("/tags", func(r chi.Router) {
				r.Get("/", s.handleListTags)
				r.Post("/", s.handleScanTagBody)
				r.Post("/door/{rfid}", s.handleScanTag)
				r.Post("/assign", s.handleAssignTag)
				r.Post("/permission", s.handleTagPermission)
				r.Delete("/delete/{rfid}", s.handleDeleteTag)
			})

			// Door endpoints
			r.Route("/door", func(r chi.Router) {
				r.Get("/open", s.handleOpenDoor)
				r.Get("/mode", s.handleGetMode)
				r.Post("/mode", s.handleSetMode)
				r.Get("/cache", s.handleDoorCache)
			})

			// Account administration (super only, gated in handlers)
			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleListUsers)
				r.Patch("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})

			// Log endpoints
			r.Route("/logs", func(r chi.Router) {
				r.Get("/", s.handleListLogs)
				r.Post("/", s.handleCreateLog)
				r.Get("/user/{id}", s.handleListUserLogs)
			})

			// WebSocket (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
