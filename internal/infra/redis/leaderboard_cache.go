package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mindmaze-client/internal/domain"
)

const leaderboardKey = "mindmaze:leaderboard"

// BoardSource is the upstream pull endpoint the cache falls back to.
type BoardSource interface {
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// LeaderboardCache mirrors the fetched scoreboard into a Redis sorted set
// so repeated reads (and other local tooling) don't hammer the API.
// Members are usernames scored by their cumulative score.
type LeaderboardCache struct {
	client *redis.Client
	source BoardSource
	ttl    time.Duration
	sf     singleflight.Group
}

func NewLeaderboardCache(client *redis.Client, source BoardSource, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, source: source, ttl: ttl}
}

func (c *LeaderboardCache) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	cached, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, -1).Result()
	if err == nil && len(cached) > 0 {
		return entriesFromZSet(cached), nil
	}

	result, err, _ := c.sf.Do(leaderboardKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		cached, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, -1).Result()
		if err == nil && len(cached) > 0 {
			return entriesFromZSet(cached), nil
		}

		board, err := c.source.Leaderboard(ctx)
		if err != nil {
			return nil, err
		}

		pipe := c.client.Pipeline()
		pipe.Del(ctx, leaderboardKey)
		for _, entry := range board {
			pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(entry.Score), Member: entry.Username})
		}
		if c.ttl > 0 {
			pipe.Expire(ctx, leaderboardKey, c.ttl)
		}
		// Best-effort mirror; a pipeline failure still serves the fetched board.
		_, _ = pipe.Exec(ctx)

		return board, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

// Invalidate drops the mirrored scoreboard, forcing the next read upstream.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, leaderboardKey).Err()
}

func entriesFromZSet(zs []redis.Z) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		username, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{Username: username, Score: int(z.Score)})
	}
	return entries
}
