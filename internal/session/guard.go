// Package session is the boundary to authentication: an explicit guard whose
// expiry signal tells consumers to invalidate cached queries, a bearer token
// accessor, and a Redis bridge for out-of-band expiry events.
package session

import (
	"sync"
	"time"
)

// State reports whether the caller is currently authenticated.
type State interface {
	Authenticated() bool
}

// Signal is delivered to subscribers when the session expires.
type Signal struct {
	Reason string
	At     time.Time
}

const signalBuffer = 1

// Guard holds the authentication flag and fans expiry signals out to
// subscribers. The zero value is not usable; use NewGuard.
type Guard struct {
	mu            sync.RWMutex
	authenticated bool
	subscribers   map[uint64]chan Signal
	nextID        uint64
	now           func() time.Time
}

// NewGuard returns a Guard in the given state.
func NewGuard(authenticated bool) *Guard {
	return &Guard{
		authenticated: authenticated,
		subscribers:   make(map[uint64]chan Signal),
		now:           time.Now,
	}
}

// Authenticated implements State.
func (g *Guard) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authenticated
}

// Authenticate marks the session as valid again.
func (g *Guard) Authenticate() {
	g.mu.Lock()
	g.authenticated = true
	g.mu.Unlock()
}

// Expire marks the session as expired and signals subscribers. Repeated calls
// while already expired are ignored. Slow subscribers miss signals rather than
// block the caller.
func (g *Guard) Expire(reason string) bool {
	g.mu.Lock()
	if !g.authenticated {
		g.mu.Unlock()
		return false
	}
	g.authenticated = false
	sig := Signal{Reason: reason, At: g.now()}
	subs := make([]chan Signal, 0, len(g.subscribers))
	for _, ch := range g.subscribers {
		subs = append(subs, ch)
	}

	for _, ch := range subs {
		select {
		case ch <- sig:
		default:
		}
	}
	g.mu.Unlock()

	return true
}

// Subscribe returns a channel of expiry signals and a cancel func that closes it.
func (g *Guard) Subscribe() (<-chan Signal, func()) {
	ch := make(chan Signal, signalBuffer)

	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.subscribers[id] = ch
	g.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subscribers, id)
			g.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}
