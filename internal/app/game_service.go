package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"unicorn-math-bot/internal/domain"
	"unicorn-math-bot/internal/problem"
)

// UserRepository abstracts how player profiles are stored (in-memory, Postgres, etc).
type UserRepository interface {
	// GetOrCreate persists a new profile on first contact and returns the
	// existing one unchanged on every later call, regardless of the name fields.
	GetOrCreate(ctx context.Context, telegramID int64, username, firstName, lastName string) (domain.UserProfile, error)
	All(ctx context.Context) ([]domain.UserProfile, error)
}

// ResultRepository stores finished games. Save is append-only.
type ResultRepository interface {
	Save(ctx context.Context, result domain.GameResult) error
	All(ctx context.Context) ([]domain.GameResult, error)
}

// Notifier is invoked when a session runs out of time, so the front end can
// tell the user their round is over.
type Notifier interface {
	GameExpired(userID int64, result domain.GameResult)
}

// Snapshot is a read-only copy of a live session, safe to render.
type Snapshot struct {
	UserID         int64
	Problem        domain.Problem
	Score          int
	TotalQuestions int
	CorrectAnswers int
	StartedAt      time.Time
	EndTime        time.Time
}

// AnswerResult reports the outcome of an accepted answer.
type AnswerResult struct {
	Correct bool
	Score   int
	Next    domain.Problem
}

// GameService owns the table of live sessions: one per user, created by Start,
// mutated only by Answer, destroyed by End (explicit or via the per-session timer).
type GameService struct {
	users    UserRepository
	results  ResultRepository
	gen      *problem.Generator
	duration time.Duration
	now      func() time.Time

	notifier Notifier
	onFinish func(domain.GameResult)

	mu       sync.RWMutex
	sessions map[int64]*session
}

func NewGameService(users UserRepository, results ResultRepository, gen *problem.Generator, duration time.Duration) *GameService {
	return NewGameServiceWithClock(users, results, gen, duration, time.Now)
}

// NewGameServiceWithClock allows deterministic timestamps in tests.
func NewGameServiceWithClock(users UserRepository, results ResultRepository, gen *problem.Generator, duration time.Duration, now func() time.Time) *GameService {
	return &GameService{
		users:    users,
		results:  results,
		gen:      gen,
		duration: duration,
		now:      now,
		sessions: make(map[int64]*session),
	}
}

// SetNotifier registers the expiry sink. Must be called before Start.
func (s *GameService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetOnFinish registers a hook fired with every finalized result, whether the
// game ended explicitly or timed out. Must be called before Start.
func (s *GameService) SetOnFinish(fn func(domain.GameResult)) {
	s.onFinish = fn
}

// session is the live, mutable state of one user's round. All fields after
// userID are guarded by mu; done makes finalization exactly-once.
type session struct {
	mu     sync.Mutex
	userID int64

	problem        domain.Problem
	score          int
	totalQuestions int
	correctAnswers int
	startedAt      time.Time
	endTime        time.Time
	attempts       []domain.Attempt
	timer          *time.Timer
	done           bool
}

func (sess *session) snapshotLocked() Snapshot {
	return Snapshot{
		UserID:         sess.userID,
		Problem:        sess.problem,
		Score:          sess.score,
		TotalQuestions: sess.totalQuestions,
		CorrectAnswers: sess.correctAnswers,
		StartedAt:      sess.startedAt,
		EndTime:        sess.endTime,
	}
}

// Start creates a session for the user and schedules its expiration.
// Returns domain.ErrSessionAlreadyActive while a previous round is live;
// callers that want a restart must ForceEnd first.
func (s *GameService) Start(ctx context.Context, userID int64, username, firstName, lastName string) (Snapshot, error) {
	sess := &session{userID: userID}
	sess.mu.Lock()

	s.mu.Lock()
	if _, ok := s.sessions[userID]; ok {
		s.mu.Unlock()
		return Snapshot{}, domain.ErrSessionAlreadyActive
	}
	// Reserve the key before the profile write so a concurrent Start conflicts
	// instead of racing the same user into two sessions.
	s.sessions[userID] = sess
	s.mu.Unlock()

	if _, err := s.users.GetOrCreate(ctx, userID, username, firstName, lastName); err != nil {
		// Poison the half-built session so a racing Answer backs off.
		sess.done = true
		sess.mu.Unlock()
		s.remove(userID)
		return Snapshot{}, fmt.Errorf("resolve profile: %w", err)
	}

	now := s.now()
	sess.problem = s.gen.Generate()
	sess.totalQuestions = 1 // counts the problem currently outstanding
	sess.startedAt = now
	sess.endTime = now.Add(s.duration)
	sess.timer = time.AfterFunc(s.duration, func() { s.expire(userID, sess) })
	snap := sess.snapshotLocked()
	sess.mu.Unlock()
	return snap, nil
}

// Answer evaluates the user's text against the session's stored problem.
// Whitespace is trimmed before parsing; non-integer input leaves the session
// untouched and returns domain.ErrInvalidAnswer. An answer arriving at or
// after the deadline finalizes the session and returns domain.ErrSessionExpired.
func (s *GameService) Answer(ctx context.Context, userID int64, raw string) (AnswerResult, error) {
	sess, ok := s.lookup(userID)
	if !ok {
		return AnswerResult{}, domain.ErrSessionNotFound
	}

	sess.mu.Lock()
	if sess.done {
		sess.mu.Unlock()
		return AnswerResult{}, domain.ErrSessionNotFound
	}

	if !s.now().Before(sess.endTime) {
		_, err := s.finalizeLocked(ctx, sess)
		sess.mu.Unlock()
		if err != nil {
			return AnswerResult{}, err
		}
		return AnswerResult{}, domain.ErrSessionExpired
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		sess.mu.Unlock()
		return AnswerResult{}, domain.ErrInvalidAnswer
	}

	answered := value
	correct := value == sess.problem.Answer
	sess.attempts = append(sess.attempts, domain.Attempt{
		QuestionText:   sess.problem.Text,
		ExpectedAnswer: sess.problem.Answer,
		UserAnswer:     &answered,
		Correct:        correct,
		AnsweredAt:     s.now(),
	})
	sess.totalQuestions++
	if correct {
		sess.correctAnswers++
		sess.score++
	}
	sess.problem = s.gen.Generate()

	res := AnswerResult{Correct: correct, Score: sess.score, Next: sess.problem}
	sess.mu.Unlock()
	return res, nil
}

// End finalizes the session: cancels the timer, freezes the result, persists
// it, and removes the session. A second call returns domain.ErrSessionNotFound.
func (s *GameService) End(ctx context.Context, userID int64) (domain.GameResult, error) {
	sess, ok := s.lookup(userID)
	if !ok {
		return domain.GameResult{}, domain.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.done {
		return domain.GameResult{}, domain.ErrSessionNotFound
	}
	return s.finalizeLocked(ctx, sess)
}

// ForceEnd ends the user's session and discards the result. No-op without one.
func (s *GameService) ForceEnd(ctx context.Context, userID int64) {
	if _, err := s.End(ctx, userID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		log.Printf("force end for user %d: %v", userID, err)
	}
}

// Get returns a read-only view of the user's live session.
func (s *GameService) Get(userID int64) (Snapshot, bool) {
	sess, ok := s.lookup(userID)
	if !ok {
		return Snapshot{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.done {
		return Snapshot{}, false
	}
	return sess.snapshotLocked(), true
}

func (s *GameService) lookup(userID int64) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

func (s *GameService) remove(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// expire is the timer callback. It backs off if an explicit End won the race;
// otherwise it runs the same finalize path and notifies the front end.
func (s *GameService) expire(userID int64, sess *session) {
	sess.mu.Lock()
	if sess.done {
		sess.mu.Unlock()
		return
	}
	result, err := s.finalizeLocked(context.Background(), sess)
	sess.mu.Unlock()

	if err != nil {
		log.Printf("finalize expired session for user %d: %v", userID, err)
		return
	}
	if s.notifier != nil {
		s.notifier.GameExpired(userID, result)
	}
}

// finalizeLocked freezes the session into a GameResult, persists it, and drops
// the session from the table. Caller holds sess.mu and has checked sess.done.
// The session lock is held across the persistence call so no second finalize
// can race in before the write completes.
func (s *GameService) finalizeLocked(ctx context.Context, sess *session) (domain.GameResult, error) {
	sess.done = true
	if sess.timer != nil {
		sess.timer.Stop()
	}

	attempts := make([]domain.Attempt, len(sess.attempts))
	copy(attempts, sess.attempts)
	result := domain.GameResult{
		UserID:         sess.userID,
		Score:          sess.score,
		TotalQuestions: sess.totalQuestions,
		CorrectAnswers: sess.correctAnswers,
		StartedAt:      sess.startedAt,
		FinishedAt:     s.now(),
		Attempts:       attempts,
	}

	err := s.results.Save(ctx, result)
	s.remove(sess.userID)
	if err != nil {
		return result, fmt.Errorf("save game result: %w", err)
	}
	if s.onFinish != nil {
		s.onFinish(result)
	}
	return result, nil
}
