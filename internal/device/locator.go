package device

import (
	"context"
	"time"

	"github.com/latchwork/latchwork-core/internal/cache"
)

// Locator resolves the controller's network address and operating mode.
//
// Addresses are cached per caller key with a fixed TTL; concurrent misses
// share a single store load. Mode is never cached: mode-change idempotence
// depends on reading the freshest value.
type Locator struct {
	controllers ControllerRepository
	addresses   *cache.Cache[string]
}

// NewLocator creates a locator with the given address cache TTL.
func NewLocator(controllers ControllerRepository, ttl time.Duration) *Locator {
	return &Locator{
		controllers: controllers,
		addresses:   cache.New[string](ttl),
	}
}

// ResolveAddress returns the controller's address for a caller.
// callerKey scopes the cache entry (one per authenticated caller).
// ErrControllerUnavailable when no controller has reported in.
func (l *Locator) ResolveAddress(ctx context.Context, callerKey string) (string, error) {
	return l.addresses.GetOrLoad(ctx, "ip_"+callerKey, func(ctx context.Context) (string, error) {
		rec, err := l.controllers.Get(ctx)
		if err != nil {
			return "", err
		}
		return rec.Address, nil
	})
}

// ResolveMode returns the controller's current operating mode, always read
// from the store.
func (l *Locator) ResolveMode(ctx context.Context) (Mode, error) {
	rec, err := l.controllers.Get(ctx)
	if err != nil {
		return "", err
	}
	return rec.Mode, nil
}

// InvalidateAddresses drops every cached address. Called when a heartbeat
// reports a new address so callers stop dispatching to the old one.
func (l *Locator) InvalidateAddresses() {
	l.addresses.Flush()
}
