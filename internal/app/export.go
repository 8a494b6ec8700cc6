package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"unicorn-math-bot/internal/domain"
)

var exportHeader = []string{
	"userId", "username", "firstName",
	"score", "totalQuestions", "correctAnswers",
	"startedAt", "finishedAt",
}

// ExportResults writes the full game history as CSV, one row per finished
// game, header first. Missing optional fields become empty strings.
func (a *Aggregator) ExportResults(ctx context.Context, w io.Writer) error {
	results, err := a.results.All(ctx)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	users, err := a.users.All(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	profiles := make(map[int64]domain.UserProfile, len(users))
	for _, u := range users {
		profiles[u.TelegramID] = u
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		u := profiles[r.UserID]
		row := []string{
			strconv.FormatInt(r.UserID, 10),
			u.Username,
			u.FirstName,
			strconv.Itoa(r.Score),
			strconv.Itoa(r.TotalQuestions),
			strconv.Itoa(r.CorrectAnswers),
			formatStamp(r.StartedAt),
			formatStamp(r.FinishedAt),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
