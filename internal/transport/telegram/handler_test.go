package telegram

import (
	"strings"
	"testing"

	"unicorn-math-bot/internal/domain"
)

func TestFormatLeaderboard(t *testing.T) {
	lb := domain.Leaderboard{Rows: []domain.LeaderboardRow{
		{DisplayName: "alice", BestScore: 7, GamesPlayed: 2},
		{DisplayName: "a-very-long-username-indeed", BestScore: 5, GamesPlayed: 1},
	}}

	text := formatLeaderboard(lb)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected title, blank, 2 rows; got %d lines:\n%s", len(lines), text)
	}
	if !strings.Contains(lines[2], "alice") || !strings.Contains(lines[2], "7") {
		t.Fatalf("unexpected first row %q", lines[2])
	}
	if !strings.Contains(lines[3], "a-very-long-use...") {
		t.Fatalf("expected long name truncated, got %q", lines[3])
	}
}

func TestFormatLeaderboardEmpty(t *testing.T) {
	text := formatLeaderboard(domain.Leaderboard{})
	if !strings.Contains(text, "empty") {
		t.Fatalf("expected empty-board message, got %q", text)
	}
}
