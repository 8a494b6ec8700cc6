package memory

import (
	"context"
	"sync"
	"time"

	"unicorn-math-bot/internal/domain"
)

// UserRepository is an in-memory implementation of app.UserRepository,
// used in tests and for running the bot without a database.
type UserRepository struct {
	mu    sync.RWMutex
	clock func() time.Time
	users map[int64]domain.UserProfile
	order []int64
}

func NewUserRepository() *UserRepository {
	return NewUserRepositoryWithClock(time.Now)
}

// NewUserRepositoryWithClock allows deterministic CreatedAt stamps in tests.
func NewUserRepositoryWithClock(clock func() time.Time) *UserRepository {
	return &UserRepository{
		clock: clock,
		users: make(map[int64]domain.UserProfile),
	}
}

func (r *UserRepository) GetOrCreate(_ context.Context, telegramID int64, username, firstName, lastName string) (domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[telegramID]; ok {
		return u, nil
	}
	u := domain.UserProfile{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		CreatedAt:  r.clock(),
	}
	r.users[telegramID] = u
	r.order = append(r.order, telegramID)
	return u, nil
}

func (r *UserRepository) All(_ context.Context) ([]domain.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]domain.UserProfile, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.users[id])
	}
	return users, nil
}

// ResultRepository is an in-memory, append-only implementation of
// app.ResultRepository. Results keep insertion order.
type ResultRepository struct {
	mu      sync.RWMutex
	results []domain.GameResult
}

func NewResultRepository() *ResultRepository {
	return &ResultRepository{}
}

func (r *ResultRepository) Save(_ context.Context, result domain.GameResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func (r *ResultRepository) All(_ context.Context) ([]domain.GameResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]domain.GameResult, len(r.results))
	copy(results, r.results)
	return results, nil
}
