package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/latchwork/latchwork-core/internal/infrastructure/logging"
)

// Controller endpoint paths.
const (
	pathOpenDoor   = "/open-door"
	pathToggleMode = "/toggle-mode"
	pathCache      = "/cache"
)

// maxResponseBytes bounds how much of a controller response is read.
const maxResponseBytes = 64 * 1024

// Dispatcher issues commands to the door controller over HTTP.
//
// Every call is a GET to http://<address>:<port><path> carrying the device
// key as a bearer token. Calls are bounded by the client timeout and never
// retried; the door hardware must not receive duplicate commands.
type Dispatcher struct {
	client      *http.Client
	port        int
	deviceKey   string
	controllers ControllerRepository
	logger      *logging.Logger
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(port int, deviceKey string, timeout time.Duration, controllers ControllerRepository, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		client:      &http.Client{Timeout: timeout},
		port:        port,
		deviceKey:   deviceKey,
		controllers: controllers,
		logger:      logger.With("component", "dispatcher"),
	}
}

// Open commands the controller to open the door.
func (d *Dispatcher) Open(ctx context.Context, address string) error {
	if _, err := d.do(ctx, address, pathOpenDoor); err != nil {
		return err
	}
	d.logger.Info("door opened", "address", address)
	return nil
}

// ToggleMode switches the controller to the requested mode.
//
// The current mode is read fresh from the store first; when it already
// matches, no hardware call is made and Applied is false. A successful
// toggle records the new mode.
func (d *Dispatcher) ToggleMode(ctx context.Context, address string, requested Mode) (*ToggleResult, error) {
	if !IsValidMode(requested) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, requested)
	}

	rec, err := d.controllers.Get(ctx)
	if err != nil {
		return nil, err
	}
	if rec.Mode == requested {
		return &ToggleResult{Applied: false, Mode: rec.Mode}, nil
	}

	if _, err := d.do(ctx, address, pathToggleMode); err != nil {
		return nil, err
	}
	if err := d.controllers.SetMode(ctx, requested); err != nil {
		return nil, err
	}

	d.logger.Info("mode toggled", "address", address, "mode", requested)
	return &ToggleResult{Applied: true, Mode: requested}, nil
}

// FetchCache retrieves the controller's on-device cache contents.
func (d *Dispatcher) FetchCache(ctx context.Context, address string) (json.RawMessage, error) {
	body, err := d.do(ctx, address, pathCache)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		// Some firmware revisions answer plain text; pass it through as a string.
		body, _ = json.Marshal(string(body)) //nolint:errcheck // marshalling a string cannot fail
	}
	return body, nil
}

// do performs a single controller call and returns the response body.
// Transport failures map to ErrControllerUnreachable, non-2xx responses to
// ErrControllerRejected.
func (d *Dispatcher) do(ctx context.Context, address, path string) ([]byte, error) {
	url := fmt.Sprintf("http://%s:%d%s", address, d.port, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building controller request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.deviceKey)

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("controller call failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrControllerUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrControllerUnreachable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		d.logger.Warn("controller rejected command", "url", url, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrControllerRejected, resp.StatusCode)
	}

	return body, nil
}
