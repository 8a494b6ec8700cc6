package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"unicorn-math-bot/internal/domain"
)

func TestLeaderboardCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingSource{}
	cache := NewLeaderboardCache(client, source, time.Minute)

	lb, err := cache.Leaderboard(context.Background(), 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected source called once, got %d", source.calls)
	}
	if len(lb.Rows) != 1 || lb.Rows[0].BestScore != 7 {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}

	// Second call should hit cache, source not incremented.
	if _, err := cache.Leaderboard(context.Background(), 10); err != nil {
		t.Fatalf("leaderboard 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.calls)
	}
	if !mr.Exists("leaderboard:10") {
		t.Fatalf("expected redis key to be set")
	}
}

func TestInvalidateForcesRecompute(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingSource{}
	cache := NewLeaderboardCache(client, source, time.Minute)

	if _, err := cache.Leaderboard(context.Background(), 10); err != nil {
		t.Fatalf("leaderboard: %v", err)
	}

	cache.Invalidate(context.Background())
	if mr.Exists("leaderboard:10") {
		t.Fatalf("expected redis key removed")
	}

	if _, err := cache.Leaderboard(context.Background(), 10); err != nil {
		t.Fatalf("leaderboard after invalidate: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected recompute after invalidate, source calls=%d", source.calls)
	}
}

type countingSource struct {
	calls int
}

func (s *countingSource) Leaderboard(_ context.Context, limit int) (domain.Leaderboard, error) {
	s.calls++
	rows := []domain.LeaderboardRow{{UserID: 1, DisplayName: "alice", BestScore: 7, GamesPlayed: 2}}
	if limit == 0 {
		rows = nil
	}
	return domain.Leaderboard{Rows: rows, UpdatedAt: time.Now()}, nil
}
