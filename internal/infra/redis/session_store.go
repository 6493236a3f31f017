package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mindmaze-client/internal/domain"
)

const sessionKey = "mindmaze:session"

// SessionStore persists the single Identity record in Redis so a session
// survives process restarts. The record is written whenever the identity is
// set and removed when it becomes absent; a corrupt record is deleted and
// reported via domain.ErrSessionCorrupt so callers treat it as absent.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context) (domain.Identity, bool, error) {
	data, err := s.client.Get(ctx, sessionKey).Bytes()
	if err == redis.Nil {
		return domain.Identity{}, false, nil
	}
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("load session: %w", err)
	}

	var identity domain.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		// Unparsable record: drop it rather than loop on it forever.
		_ = s.client.Del(ctx, sessionKey).Err()
		return domain.Identity{}, false, domain.ErrSessionCorrupt
	}
	return identity, true, nil
}

func (s *SessionStore) Save(ctx context.Context, identity domain.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, sessionKey).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
