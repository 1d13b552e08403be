package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/latchwork/latchwork-core/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// ticketEntry binds a pending ticket to the identity that requested it.
type ticketEntry struct {
	identity  auth.Identity
	expiresAt time.Time
}

// ticketStore holds one server's pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// issue creates a ticket bound to the given identity.
func (ts *ticketStore) issue(id auth.Identity) string {
	ticket := generateTicket()

	ts.mu.Lock()
	ts.tickets[ticket] = ticketEntry{
		identity:  id,
		expiresAt: time.Now().Add(ticketTTL),
	}
	ts.mu.Unlock()

	return ticket
}

// consume validates a ticket and removes it (single-use).
// Returns the identity the ticket was issued to.
func (ts *ticketStore) consume(ticket string) (auth.Identity, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return auth.Identity{}, false
	}

	// Remove ticket (single-use)
	delete(ts.tickets, ticket)

	if time.Now().After(entry.expiresAt) {
		return auth.Identity{}, false
	}
	return entry.identity, true
}

// sweep removes expired tickets from the store.
func (ts *ticketStore) sweep() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	for ticket, entry := range ts.tickets {
		if now.After(entry.expiresAt) {
			delete(ts.tickets, ticket)
		}
	}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the bearer token in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	ticket := s.tickets.issue(id)

	writeSuccess(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}

// cleanTicketsLoop sweeps expired tickets periodically until the context is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickets.sweep()
		}
	}
}
