package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mindmaze-client/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestSessionStoreRoundTrip(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	identity := domain.Identity{UserID: "u1", Username: "alice", Score: 140}
	if err := store.Save(ctx, identity); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.Username != "alice" || loaded.Score != 140 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("expected record removed after clear")
	}
}

func TestSessionStoreRemovesCorruptRecord(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	if err := mr.Set(sessionKey, "{not json"); err != nil {
		t.Fatalf("seed corrupt record: %v", err)
	}

	_, ok, err := store.Load(ctx)
	if ok {
		t.Fatalf("corrupt record must be treated as absent")
	}
	if !errors.Is(err, domain.ErrSessionCorrupt) {
		t.Fatalf("expected ErrSessionCorrupt, got %v", err)
	}
	if mr.Exists(sessionKey) {
		t.Fatalf("corrupt record must be removed")
	}
}
