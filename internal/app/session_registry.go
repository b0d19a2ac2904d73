package app

import (
	"sync"
	"time"

	"github.com/avgystin/practicalwork/internal/clock"
	"github.com/avgystin/practicalwork/internal/domain"
)

const defaultSessionTimeout = 30 * time.Minute

// SessionRegistry tracks active session tokens. Expiry is enforced lazily on
// IsValid; only the creation time counts.
type SessionRegistry struct {
	clock    clock.Clock
	timeout  time.Duration
	sessions sync.Map // token -> domain.Session
}

type SessionRegistryOption func(*SessionRegistry)

// WithSessionTimeout overrides the default 30 minute session lifetime.
func WithSessionTimeout(d time.Duration) SessionRegistryOption {
	return func(r *SessionRegistry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewSessionRegistry(clk clock.Clock, opts ...SessionRegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		clock:   clk,
		timeout: defaultSessionTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create records a new session and returns its token.
func (r *SessionRegistry) Create() string {
	session := domain.Session{
		Token:     newUUID(),
		CreatedAt: r.clock.Now(),
	}
	r.sessions.Store(session.Token, session)
	return session.Token
}

// IsValid reports whether token names a live session, evicting it when expired.
func (r *SessionRegistry) IsValid(token string) bool {
	if token == "" {
		return false
	}
	value, ok := r.sessions.Load(token)
	if !ok {
		return false
	}
	session := value.(domain.Session)
	if r.clock.Now().Sub(session.CreatedAt) > r.timeout {
		// Only evict the entry we observed; a concurrent check may already have.
		r.sessions.CompareAndDelete(token, session)
		return false
	}
	return true
}

// Delete removes the session and reports whether it existed.
func (r *SessionRegistry) Delete(token string) bool {
	if token == "" {
		return false
	}
	_, loaded := r.sessions.LoadAndDelete(token)
	return loaded
}

// Len returns the number of stored sessions, including expired ones not yet evicted.
func (r *SessionRegistry) Len() int {
	n := 0
	r.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
