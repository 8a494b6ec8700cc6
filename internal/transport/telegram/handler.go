package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"unicorn-math-bot/internal/app"
	"unicorn-math-bot/internal/domain"
)

// LeaderboardSource computes the ranked board; either the aggregator itself or
// its Redis-cached wrapper.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error)
}

// Handler wires Telegram updates into the game service. It also implements
// app.Notifier so timed-out players hear about their final score.
type Handler struct {
	bot         *tgbotapi.BotAPI
	game        *app.GameService
	stats       *app.Aggregator
	leaderboard LeaderboardSource
	adminID     int64
	limit       int
}

func NewHandler(bot *tgbotapi.BotAPI, game *app.GameService, stats *app.Aggregator, leaderboard LeaderboardSource, adminID int64, leaderboardLimit int) *Handler {
	return &Handler{
		bot:         bot,
		game:        game,
		stats:       stats,
		leaderboard: leaderboard,
		adminID:     adminID,
		limit:       leaderboardLimit,
	}
}

// Run consumes updates via long polling until ctx is canceled. Each update is
// handled on its own goroutine; the game service serializes per-user state.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := h.bot.GetUpdatesChan(u)
	log.Printf("bot authorized as @%s", h.bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		h.handleMessage(ctx, update.Message)
	}
	if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		switch message.Command() {
		case "start":
			h.sendMenu(message.Chat.ID)
		case "profile":
			h.sendProfile(ctx, message.Chat.ID, message.From.ID)
		case "leaderboard":
			h.sendLeaderboard(ctx, message.Chat.ID)
		case "stats":
			h.adminOnly(message, func() { h.sendOverview(ctx, message.Chat.ID) })
		case "users":
			h.adminOnly(message, func() { h.sendUsers(ctx, message.Chat.ID) })
		case "user":
			h.adminOnly(message, func() { h.sendUserStats(ctx, message) })
		case "export_results":
			h.adminOnly(message, func() { h.sendExport(ctx, message.Chat.ID) })
		}
		return
	}
	h.handleAnswer(ctx, message)
}

func (h *Handler) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	defer h.answerCallback(query)

	chatID := query.Message.Chat.ID
	switch query.Data {
	case "start_game":
		h.startGame(ctx, chatID, query.From)
	case "leaderboard":
		h.sendLeaderboard(ctx, chatID)
	case "my_profile":
		h.sendProfile(ctx, chatID, query.From.ID)
	}
}

func (h *Handler) startGame(ctx context.Context, chatID int64, from *tgbotapi.User) {
	// A tap on "play again" while a round is still live restarts cleanly.
	h.game.ForceEnd(ctx, from.ID)

	snap, err := h.game.Start(ctx, from.ID, from.UserName, from.FirstName, from.LastName)
	if err != nil {
		log.Printf("start game for user %d: %v", from.ID, err)
		h.send(chatID, "❌ Something went wrong, try again.")
		return
	}

	seconds := int(time.Until(snap.EndTime).Round(time.Second).Seconds())
	h.send(chatID, fmt.Sprintf("🦄 Go! You have %d seconds.\n\n%s = ?", seconds, snap.Problem.Text))
}

func (h *Handler) handleAnswer(ctx context.Context, message *tgbotapi.Message) {
	res, err := h.game.Answer(ctx, message.From.ID, message.Text)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		h.send(message.Chat.ID, "You have no active game. Tap «Start game» 🦄")
	case errors.Is(err, domain.ErrSessionExpired):
		h.send(message.Chat.ID, "⏰ Time's up! That answer no longer counts — check /profile for your result.")
	case errors.Is(err, domain.ErrInvalidAnswer):
		h.send(message.Chat.ID, "Hmm, that's not a number 🫣 — send a whole number, like 42.")
	case err != nil:
		log.Printf("answer from user %d: %v", message.From.ID, err)
		h.send(message.Chat.ID, "❌ Something went wrong, try again.")
	default:
		feedback := "✅ Correct!"
		if !res.Correct {
			feedback = "❌ Not quite."
		}
		h.send(message.Chat.ID, fmt.Sprintf("%s Score: %d\n\n%s = ?", feedback, res.Score, res.Next.Text))
	}
}

// GameExpired implements app.Notifier. Private chats share the user's id.
func (h *Handler) GameExpired(userID int64, result domain.GameResult) {
	h.send(userID, fmt.Sprintf(
		"⏰ Time's up! You scored %d — %d of %d answered correctly. Play again? 🦄",
		result.Score, result.CorrectAnswers, result.TotalQuestions-1))
}

func (h *Handler) sendMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "🦄 Welcome to the Unicorn Math Game!\nSolve as many problems as you can in 60 seconds.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎮 Start game", "start_game"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏆 Leaderboard", "leaderboard"),
			tgbotapi.NewInlineKeyboardButtonData("📊 My profile", "my_profile"),
		),
	)
	if _, err := h.bot.Send(msg); err != nil {
		log.Printf("send menu: %v", err)
	}
}

func (h *Handler) sendProfile(ctx context.Context, chatID, userID int64) {
	stats, err := h.stats.UserStats(ctx, userID)
	if err != nil {
		log.Printf("user stats for %d: %v", userID, err)
		h.send(chatID, "❌ Could not load your stats, try again.")
		return
	}
	if stats.TotalGames == 0 {
		h.send(chatID, "You haven't played yet. Tap «Start game» 🦄")
		return
	}

	text := fmt.Sprintf("📊 Your stats:\n\n🎮 Games: %d\n⭐ Best score: %d\n📈 Average: %.1f\n",
		stats.TotalGames, stats.BestScore, stats.AvgScore)
	if stats.TotalQuestions > 0 {
		text += fmt.Sprintf("🎯 Accuracy: %.1f%% (%d of %d)\n",
			stats.Accuracy*100, stats.TotalCorrect, stats.TotalQuestions)
	}
	h.send(chatID, text)
}

func (h *Handler) sendLeaderboard(ctx context.Context, chatID int64) {
	lb, err := h.leaderboard.Leaderboard(ctx, h.limit)
	if err != nil {
		log.Printf("leaderboard: %v", err)
		h.send(chatID, "❌ Could not load the leaderboard, try again.")
		return
	}
	h.send(chatID, formatLeaderboard(lb))
}

func (h *Handler) sendOverview(ctx context.Context, chatID int64) {
	users, games, err := h.stats.Overview(ctx)
	if err != nil {
		log.Printf("overview: %v", err)
		h.send(chatID, "❌ Could not load stats.")
		return
	}
	h.send(chatID, fmt.Sprintf("👥 Users: %d\n🎮 Games played: %d", users, games))
}

func (h *Handler) sendUsers(ctx context.Context, chatID int64) {
	users, err := h.stats.Users(ctx)
	if err != nil {
		log.Printf("list users: %v", err)
		h.send(chatID, "❌ Could not load users.")
		return
	}
	if len(users) == 0 {
		h.send(chatID, "No users yet.")
		return
	}
	var b strings.Builder
	b.WriteString("👥 Registered users:\n\n")
	for _, u := range users {
		fmt.Fprintf(&b, "%d — %s (since %s)\n", u.TelegramID, u.DisplayName(), u.CreatedAt.Format("2006-01-02"))
	}
	h.send(chatID, b.String())
}

func (h *Handler) sendUserStats(ctx context.Context, message *tgbotapi.Message) {
	arg := strings.TrimSpace(message.CommandArguments())
	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		h.send(message.Chat.ID, "Usage: /user <telegram id>")
		return
	}
	stats, err := h.stats.UserStats(ctx, userID)
	if err != nil {
		log.Printf("user stats for %d: %v", userID, err)
		h.send(message.Chat.ID, "❌ Could not load stats.")
		return
	}
	h.send(message.Chat.ID, fmt.Sprintf(
		"📊 User %d:\n🎮 Games: %d\n⭐ Best: %d\n📈 Average: %.1f\n✅ Correct: %d of %d",
		userID, stats.TotalGames, stats.BestScore, stats.AvgScore, stats.TotalCorrect, stats.TotalQuestions))
}

func (h *Handler) sendExport(ctx context.Context, chatID int64) {
	var buf bytes.Buffer
	if err := h.stats.ExportResults(ctx, &buf); err != nil {
		log.Printf("export results: %v", err)
		h.send(chatID, "❌ Export failed.")
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "results.csv",
		Bytes: buf.Bytes(),
	})
	if _, err := h.bot.Send(doc); err != nil {
		log.Printf("send export: %v", err)
	}
}

func (h *Handler) adminOnly(message *tgbotapi.Message, fn func()) {
	if message.From.ID != h.adminID {
		h.send(message.Chat.ID, "This command is for the admin only.")
		return
	}
	fn()
}

func (h *Handler) send(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("send message to %d: %v", chatID, err)
	}
}

func (h *Handler) answerCallback(query *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := h.bot.Request(callback); err != nil {
		log.Printf("answer callback: %v", err)
	}
}

func formatLeaderboard(lb domain.Leaderboard) string {
	if len(lb.Rows) == 0 {
		return "🏆 The leaderboard is empty. Be the first!"
	}
	var b strings.Builder
	b.WriteString("🏆 Top players:\n\n")
	for i, row := range lb.Rows {
		name := row.DisplayName
		if len(name) > 18 {
			name = name[:15] + "..."
		}
		fmt.Fprintf(&b, "%2d. %-18s %3d (%d games)\n", i+1, name, row.BestScore, row.GamesPlayed)
	}
	return b.String()
}
