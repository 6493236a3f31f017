package httpapi

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mindmaze-client/internal/domain"
)

// Source is the uncached pull API the fetcher sits in front of.
type Source interface {
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// CachedFetcher caches leaderboard and stats pulls with a TTL so repeated
// on-demand refreshes collapse into one request. Concurrent misses are
// deduplicated through singleflight.
type CachedFetcher struct {
	source Source
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu      sync.RWMutex
	board   []domain.LeaderboardEntry
	boardAt time.Time
	stats   domain.Stats
	statsAt time.Time
}

func NewCachedFetcher(source Source, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (f *CachedFetcher) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	now := f.clock()

	f.mu.RLock()
	if f.board != nil && f.boardAt.After(now) {
		board := f.board
		f.mu.RUnlock()
		return board, nil
	}
	f.mu.RUnlock()

	result, err, _ := f.sf.Do("leaderboard", func() (interface{}, error) {
		f.mu.RLock()
		if f.board != nil && f.boardAt.After(f.clock()) {
			board := f.board
			f.mu.RUnlock()
			return board, nil
		}
		f.mu.RUnlock()

		board, err := f.source.Leaderboard(ctx)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.board = board
		f.boardAt = f.clock().Add(f.ttlWithJitter())
		f.mu.Unlock()
		return board, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

func (f *CachedFetcher) Stats(ctx context.Context) (domain.Stats, error) {
	now := f.clock()

	f.mu.RLock()
	if !f.statsAt.IsZero() && f.statsAt.After(now) {
		stats := f.stats
		f.mu.RUnlock()
		return stats, nil
	}
	f.mu.RUnlock()

	result, err, _ := f.sf.Do("stats", func() (interface{}, error) {
		stats, err := f.source.Stats(ctx)
		if err != nil {
			return domain.Stats{}, err
		}
		f.mu.Lock()
		f.stats = stats
		f.statsAt = f.clock().Add(f.ttlWithJitter())
		f.mu.Unlock()
		return stats, nil
	})
	if err != nil {
		return domain.Stats{}, err
	}
	return result.(domain.Stats), nil
}

// Invalidate drops cached data so the next pull goes to the source, used
// after a round ends when scores just changed.
func (f *CachedFetcher) Invalidate() {
	f.mu.Lock()
	f.boardAt = time.Time{}
	f.statsAt = time.Time{}
	f.mu.Unlock()
}

func (f *CachedFetcher) ttlWithJitter() time.Duration {
	if f.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(f.ttl) / 10
	return f.ttl + time.Duration(f.rnd.Int63n(jitterMax+1))
}
