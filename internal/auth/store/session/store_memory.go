package session

import (
	"context"
	"sync"
	"time"

	"auditflow/internal/auth/models"
	"auditflow/pkg/platform/sentinel"
)

// InMemorySessionStore keeps sessions in process memory.
// Sessions are lost on restart.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	now      func() time.Time
}

// New constructs an in-memory session store.
func New() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]*models.Session),
		now:      time.Now,
	}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	s.sessions[TokenKey(session.Token)] = &stored
	return nil
}

// Find returns the session for token. Expired sessions are evicted and
// reported as sentinel.ErrExpired.
func (s *InMemorySessionStore) Find(_ context.Context, token string) (*models.Session, error) {
	key := TokenKey(token)

	s.mu.RLock()
	session, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if session.IsExpired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, key)
		s.mu.Unlock()
		return nil, sentinel.ErrExpired
	}
	found := *session
	found.Token = token
	return &found, nil
}

// Delete removes the session. Deleting an unknown token is not an error.
func (s *InMemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, TokenKey(token))
	return nil
}

// Sweep drops every session expired at now and returns how many were removed.
func (s *InMemorySessionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (s *InMemorySessionStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}
