package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"unicorn-math-bot/internal/domain"
)

// Aggregator derives leaderboards and per-user statistics from the persisted
// game history. It only ever reads finished results, never live sessions, and
// recomputes on every call; the data set is expected to stay small.
type Aggregator struct {
	users   UserRepository
	results ResultRepository
	now     func() time.Time
}

func NewAggregator(users UserRepository, results ResultRepository) *Aggregator {
	return NewAggregatorWithClock(users, results, time.Now)
}

// NewAggregatorWithClock allows deterministic timestamps in tests.
func NewAggregatorWithClock(users UserRepository, results ResultRepository, now func() time.Time) *Aggregator {
	return &Aggregator{users: users, results: results, now: now}
}

// Leaderboard ranks users by best historical score, then by games played.
// The sort is stable, so repeated calls on identical input agree on ties.
func (a *Aggregator) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	results, err := a.results.All(ctx)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load results: %w", err)
	}
	users, err := a.users.All(ctx)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load users: %w", err)
	}

	profiles := make(map[int64]domain.UserProfile, len(users))
	for _, u := range users {
		profiles[u.TelegramID] = u
	}

	rowIndex := make(map[int64]int)
	rows := make([]domain.LeaderboardRow, 0)
	for _, r := range results {
		i, ok := rowIndex[r.UserID]
		if !ok {
			i = len(rows)
			rowIndex[r.UserID] = i
			rows = append(rows, domain.LeaderboardRow{
				UserID:      r.UserID,
				DisplayName: profiles[r.UserID].DisplayName(),
			})
		}
		if r.Score > rows[i].BestScore || rows[i].GamesPlayed == 0 {
			rows[i].BestScore = r.Score
		}
		rows[i].GamesPlayed++
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].BestScore != rows[j].BestScore {
			return rows[i].BestScore > rows[j].BestScore
		}
		return rows[i].GamesPlayed > rows[j].GamesPlayed
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return domain.Leaderboard{Rows: rows, UpdatedAt: a.now()}, nil
}

// Users lists every known profile, for the admin roster view.
func (a *Aggregator) Users(ctx context.Context) ([]domain.UserProfile, error) {
	return a.users.All(ctx)
}

// Overview reports the global counters shown to the admin.
func (a *Aggregator) Overview(ctx context.Context) (totalUsers, totalGames int, err error) {
	users, err := a.users.All(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load users: %w", err)
	}
	results, err := a.results.All(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load results: %w", err)
	}
	return len(users), len(results), nil
}

// UserStats summarizes one user's finished games. A user with no games gets
// all-zero stats; Accuracy is only meaningful when TotalQuestions > 0.
func (a *Aggregator) UserStats(ctx context.Context, userID int64) (domain.UserStats, error) {
	results, err := a.results.All(ctx)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("load results: %w", err)
	}

	var stats domain.UserStats
	scoreSum := 0
	for _, r := range results {
		if r.UserID != userID {
			continue
		}
		stats.TotalGames++
		scoreSum += r.Score
		if r.Score > stats.BestScore {
			stats.BestScore = r.Score
		}
		stats.TotalQuestions += r.TotalQuestions
		stats.TotalCorrect += r.CorrectAnswers
	}
	if stats.TotalGames > 0 {
		stats.AvgScore = float64(scoreSum) / float64(stats.TotalGames)
	}
	if stats.TotalQuestions > 0 {
		stats.Accuracy = float64(stats.TotalCorrect) / float64(stats.TotalQuestions)
	}
	return stats, nil
}
