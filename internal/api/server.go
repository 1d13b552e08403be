// Package api provides the HTTP REST API and WebSocket server for Latchwork Core.
//
// It exposes authentication, tag management, door commands, and the append-only
// log to user interfaces, and a real-time event channel to subscribers. The
// door controller itself talks to the same surface: it scans tags and reports
// its address using the shared device key.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/latchwork/latchwork-core/internal/auth"
	"github.com/latchwork/latchwork-core/internal/device"
	"github.com/latchwork/latchwork-core/internal/infrastructure/config"
	"github.com/latchwork/latchwork-core/internal/infrastructure/influxdb"
	"github.com/latchwork/latchwork-core/internal/infrastructure/logging"
	"github.com/latchwork/latchwork-core/internal/infrastructure/mqtt"
	"github.com/latchwork/latchwork-core/internal/logbook"
	"github.com/latchwork/latchwork-core/internal/notify"
	"github.com/latchwork/latchwork-core/internal/rfid"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// heartbeatQoS is the MQTT QoS level for heartbeat subscriptions.
const heartbeatQoS = 1

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Users       auth.UserRepository
	Resets      auth.ResetTokenRepository
	Tokens      *auth.TokenService
	Verifier    *auth.Verifier
	Engine      *rfid.Engine
	Locator     *device.Locator
	Dispatcher  *device.Dispatcher
	Controllers device.ControllerRepository
	Logs        logbook.Repository
	Mailer      *notify.Mailer
	MQTT        *mqtt.Client     // optional: heartbeat over MQTT when set
	Influx      *influxdb.Client // optional: telemetry when set
	ResetTTL    time.Duration    // lifetime of password reset tokens
	Version     string
}

// Server is the HTTP API server for Latchwork Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	users       auth.UserRepository
	resets      auth.ResetTokenRepository
	tokens      *auth.TokenService
	verifier    *auth.Verifier
	engine      *rfid.Engine
	locator     *device.Locator
	dispatcher  *device.Dispatcher
	controllers device.ControllerRepository
	logs        logbook.Repository
	mailer      *notify.Mailer
	mqtt        *mqtt.Client
	influx      *influxdb.Client
	resetTTL    time.Duration
	version     string
	server      *http.Server
	hub         *Hub
	tickets     *ticketStore
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil || deps.Resets == nil {
		return nil, fmt.Errorf("user and reset-token repositories are required")
	}
	if deps.Tokens == nil || deps.Verifier == nil {
		return nil, fmt.Errorf("token service and verifier are required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("rfid engine is required")
	}
	if deps.Locator == nil || deps.Dispatcher == nil || deps.Controllers == nil {
		return nil, fmt.Errorf("device locator, dispatcher and controller repository are required")
	}
	if deps.Logs == nil {
		return nil, fmt.Errorf("log repository is required")
	}
	// MQTT, InfluxDB and mail are optional integrations.

	resetTTL := deps.ResetTTL
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}

	return &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		logger:      deps.Logger,
		users:       deps.Users,
		resets:      deps.Resets,
		tokens:      deps.Tokens,
		verifier:    deps.Verifier,
		engine:      deps.Engine,
		locator:     deps.Locator,
		dispatcher:  deps.Dispatcher,
		controllers: deps.Controllers,
		logs:        deps.Logs,
		mailer:      deps.Mailer,
		mqtt:        deps.MQTT,
		influx:      deps.Influx,
		resetTTL:    resetTTL,
		version:     deps.Version,
		tickets:     newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and ticket cleanup,
// subscribes to the MQTT heartbeat topic when a broker is configured, and
// launches the HTTP listener in a background goroutine. The server is
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	go s.cleanTicketsLoop(srvCtx)

	if err := s.subscribeHeartbeat(); err != nil {
		s.logger.Warn("failed to subscribe to heartbeat topic", "error", err)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// heartbeatMessage is the payload of an MQTT heartbeat announcement.
type heartbeatMessage struct {
	Address string `json:"address"`
}

// subscribeHeartbeat listens for controller heartbeat announcements on MQTT.
// The HTTP heartbeat endpoint remains the primary path; the MQTT route exists
// for controllers that already hold a broker connection.
func (s *Server) subscribeHeartbeat() error {
	if s.mqtt == nil {
		return nil
	}

	return s.mqtt.Subscribe(mqtt.TopicControllerHeartbeat, heartbeatQoS, func(topic string, payload []byte) error {
		var msg heartbeatMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("parsing heartbeat payload: %w", err)
		}
		if msg.Address == "" {
			return fmt.Errorf("heartbeat payload missing address")
		}
		return s.recordHeartbeat(context.Background(), msg.Address)
	})
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, ticket cleanup)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// authorize resolves the caller's identity and authorization flags.
// Writes the error response and returns ok=false when either step fails.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (auth.Identity, auth.Authorization, bool) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return auth.Identity{}, auth.Authorization{}, false
	}

	authz, err := s.verifier.Authorization(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return auth.Identity{}, auth.Authorization{}, false
	}

	return id, authz, true
}

// requireVerified is authorize plus the isVerified gate shared by every
// door and tag mutation.
func (s *Server) requireVerified(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, authz, ok := s.authorize(w, r)
	if !ok {
		return auth.Identity{}, false
	}
	if !authz.IsVerified {
		writeDomainError(w, auth.ErrNotVerified)
		return auth.Identity{}, false
	}
	return id, true
}

// requireSuper is authorize plus the isSuper gate on operations that change
// who may pass the door: account administration and mode toggling.
func (s *Server) requireSuper(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, authz, ok := s.authorize(w, r)
	if !ok {
		return auth.Identity{}, false
	}
	if !authz.IsVerified {
		writeDomainError(w, auth.ErrNotVerified)
		return auth.Identity{}, false
	}
	if !authz.IsSuper {
		writeDomainError(w, auth.ErrForbidden)
		return auth.Identity{}, false
	}
	return id, true
}

// recordHeartbeat stores the controller's reported address and drops every
// cached address so subsequent commands dispatch to the new one.
func (s *Server) recordHeartbeat(ctx context.Context, address string) error {
	if err := s.controllers.SetAddress(ctx, address); err != nil {
		return fmt.Errorf("recording heartbeat: %w", err)
	}
	s.locator.InvalidateAddresses()
	s.logger.Info("controller heartbeat", "address", address)
	return nil
}

// record appends a log entry and fans it out to subscribers. Persistence
// failures are logged and swallowed: the operation that produced the event
// has already succeeded.
func (s *Server) record(ctx context.Context, entryType, message, userID string) {
	entry := &logbook.Entry{
		Type:    entryType,
		Message: message,
		UserID:  userID,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Error("failed to record log entry", "type", entryType, "error", err)
		return
	}
	s.hub.Broadcast(ChannelLogs, entry)
}
