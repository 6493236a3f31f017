package memory

import (
	"context"
	"sync"

	"mindmaze-client/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore, used
// when no external store is configured. The identity does not survive a
// process restart.
type SessionStore struct {
	mu       sync.RWMutex
	identity *domain.Identity
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

func (s *SessionStore) Load(context.Context) (domain.Identity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return domain.Identity{}, false, nil
	}
	return *s.identity, true, nil
}

func (s *SessionStore) Save(_ context.Context, identity domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &identity
	return nil
}

func (s *SessionStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	return nil
}
