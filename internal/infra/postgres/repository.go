package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"unicorn-math-bot/internal/domain"
)

// UserRepository stores player profiles in Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetOrCreate inserts the profile on first contact; the conflict target makes
// later calls return the stored row untouched, whatever names they carry.
func (r *UserRepository) GetOrCreate(ctx context.Context, telegramID int64, username, firstName, lastName string) (domain.UserProfile, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (telegram_id, username, first_name, last_name, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (telegram_id) DO NOTHING`,
		telegramID, username, firstName, lastName)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("insert user: %w", err)
	}

	var u domain.UserProfile
	err = r.pool.QueryRow(ctx,
		`SELECT telegram_id, username, first_name, last_name, created_at
		 FROM users WHERE telegram_id = $1`, telegramID).
		Scan(&u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) All(ctx context.Context) ([]domain.UserProfile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT telegram_id, username, first_name, last_name, created_at
		 FROM users ORDER BY created_at, telegram_id`)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	var users []domain.UserProfile
	for rows.Next() {
		var u domain.UserProfile
		if err := rows.Scan(&u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ResultRepository stores finished games in Postgres. Attempts travel as JSONB.
type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

func (r *ResultRepository) Save(ctx context.Context, result domain.GameResult) error {
	attempts, err := json.Marshal(result.Attempts)
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO game_results
		 (user_telegram_id, score, total_questions, correct_answers, started_at, finished_at, attempts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.UserID, result.Score, result.TotalQuestions, result.CorrectAnswers,
		result.StartedAt, result.FinishedAt, attempts)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

func (r *ResultRepository) All(ctx context.Context) ([]domain.GameResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_telegram_id, score, total_questions, correct_answers, started_at, finished_at, attempts
		 FROM game_results ORDER BY finished_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load game results: %w", err)
	}
	defer rows.Close()

	var results []domain.GameResult
	for rows.Next() {
		var result domain.GameResult
		var attempts []byte
		if err := rows.Scan(&result.UserID, &result.Score, &result.TotalQuestions,
			&result.CorrectAnswers, &result.StartedAt, &result.FinishedAt, &attempts); err != nil {
			return nil, fmt.Errorf("scan game result: %w", err)
		}
		if len(attempts) > 0 {
			if err := json.Unmarshal(attempts, &result.Attempts); err != nil {
				return nil, fmt.Errorf("unmarshal attempts: %w", err)
			}
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
