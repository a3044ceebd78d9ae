package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	role      Role
	expiresAt time.Time
}

// SessionStore maps opaque bearer tokens to roles. In-memory: a restart
// logs everyone out, which is acceptable for this deployment.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration

	now func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue creates a session for the role and returns its token.
func (s *SessionStore) Issue(role Role) string {
	token := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{
		role:      role,
		expiresAt: s.now().Add(s.ttl),
	}
	return token
}

// Role resolves a token to its role. Expired or unknown tokens resolve to
// RoleUnauthenticated.
func (s *SessionStore) Role(token string) Role {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return RoleUnauthenticated
	}
	if s.now().After(sess.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return RoleUnauthenticated
	}
	return sess.role
}

func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}
