package domain

import "time"

// Problem is a single arithmetic question with its correct answer.
// Immutable once produced by the generator.
type Problem struct {
	Text   string `json:"text"`
	Answer int    `json:"answer"`
}

// Attempt records one answer submission and its evaluation.
// UserAnswer is nil only when the raw input could not be parsed; in practice
// unparsable input is rejected before an Attempt is created.
type Attempt struct {
	QuestionText   string    `json:"questionText"`
	ExpectedAnswer int       `json:"expectedAnswer"`
	UserAnswer     *int      `json:"userAnswer"`
	Correct        bool      `json:"correct"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// GameResult is the immutable, persisted record of a finished round.
// Attempts are copied out of the live session at finalization, never aliased.
type GameResult struct {
	UserID         int64     `json:"userTelegramId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	Attempts       []Attempt `json:"attempts"`
}

// UserProfile identifies a player. Name fields are captured on first contact
// and never overwritten afterwards.
type UserProfile struct {
	TelegramID int64     `json:"telegramId"`
	Username   string    `json:"username"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DisplayName resolves the name shown on leaderboards: username, falling back
// to first name, falling back to a fixed placeholder.
func (u UserProfile) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "Anonymous"
}

// LeaderboardRow summarizes one player's historical performance.
type LeaderboardRow struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
	BestScore   int    `json:"bestScore"`
	GamesPlayed int    `json:"gamesPlayed"`
}

// Leaderboard is the ranked view over all finished games.
type Leaderboard struct {
	Rows      []LeaderboardRow `json:"rows"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// UserStats aggregates one player's finished games.
// Accuracy is meaningful only when TotalQuestions > 0.
type UserStats struct {
	TotalGames     int     `json:"totalGames"`
	BestScore      int     `json:"bestScore"`
	AvgScore       float64 `json:"avgScore"`
	TotalQuestions int     `json:"totalQuestions"`
	TotalCorrect   int     `json:"totalCorrect"`
	Accuracy       float64 `json:"accuracy"`
}
