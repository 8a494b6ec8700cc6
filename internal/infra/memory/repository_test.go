package memory

import (
	"context"
	"testing"
	"time"

	"unicorn-math-bot/internal/domain"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, 1, "X", "Xenia", "")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	second, err := repo.GetOrCreate(ctx, 1, "Y", "Yuri", "")
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if second.Username != "X" || second.FirstName != "Xenia" {
		t.Fatalf("expected original names preserved, got %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected CreatedAt unchanged")
	}

	users, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
}

func TestResultRepositoryAppendsInOrder(t *testing.T) {
	repo := NewResultRepository()
	ctx := context.Background()

	for _, score := range []int{3, 7, 5} {
		if err := repo.Save(ctx, domain.GameResult{UserID: 1, Score: score, FinishedAt: time.Now()}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	results, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Score != 3 || results[2].Score != 5 {
		t.Fatalf("expected insertion order preserved, got %+v", results)
	}

	// Mutating the returned slice must not affect the stored history.
	results[0].Score = 99
	again, _ := repo.All(ctx)
	if again[0].Score != 3 {
		t.Fatalf("stored results mutated through returned slice")
	}
}
