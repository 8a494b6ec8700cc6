package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"unicorn-math-bot/internal/domain"
)

// LeaderboardSource computes a leaderboard from the backing store.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error)
}

// LeaderboardCache keeps the rendered leaderboard in Redis so every /leaderboard
// tap does not rescan the whole game history. Entries are stored as:
// SET leaderboard:{limit} {json} with a TTL, and dropped wholesale whenever a
// game finishes.
type LeaderboardCache struct {
	client *redis.Client
	source LeaderboardSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rnd *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, source LeaderboardSource, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	key := c.key(limit)

	if lb, ok := c.cached(ctx, key); ok {
		return lb, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if lb, ok := c.cached(ctx, key); ok {
			return lb, nil
		}

		lb, err := c.source.Leaderboard(ctx, limit)
		if err != nil {
			return domain.Leaderboard{}, err
		}

		if data, err := json.Marshal(lb); err == nil {
			// best-effort: a failed write just means the next call recomputes
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return lb, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

// Invalidate drops every cached leaderboard. Wired to the game service's
// finish hook so rankings never lag behind a freshly saved result for long.
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	keys, err := c.client.Keys(ctx, "leaderboard:*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	_ = c.client.Del(ctx, keys...).Err()
}

func (c *LeaderboardCache) cached(ctx context.Context, key string) (domain.Leaderboard, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Leaderboard{}, false
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(data, &lb); err != nil {
		return domain.Leaderboard{}, false
	}
	return lb, true
}

func (c *LeaderboardCache) key(limit int) string {
	return "leaderboard:" + strconv.Itoa(limit)
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
