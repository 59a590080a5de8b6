package chat

import (
	"chatchat/errors"
	"sync"
)

type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticated
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// Session is the per-connection state attached after authentication.
// Transitions: Unauthenticated -> Authenticated -> Closed, and Unauthenticated -> Closed.
type Session struct {
	mu       sync.RWMutex
	id       string
	state    SessionState
	identity Identity
}

func NewSession(id string) *Session {
	return &Session{id: id, state: Unauthenticated}
}

func (s *Session) ID() string {
	return s.id
}

// Authenticate attaches the verified identity. It only succeeds once, from Unauthenticated.
func (s *Session) Authenticate(identity Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Unauthenticated || identity.UserID == "" {
		return errors.ErrSessionState
	}
	s.identity = identity
	s.state = Authenticated
	return nil
}

// Close is idempotent and reports whether this call performed the transition.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return false
	}
	s.state = Closed
	return true
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns the verified identity and whether the session is ready.
func (s *Session) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.state == Authenticated
}
