package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"unicorn-math-bot/internal/app"
	"unicorn-math-bot/internal/domain"
	"unicorn-math-bot/internal/infra/memory"
)

func TestWebSocketLeaderboardFlow(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	results := memory.NewResultRepository()
	_, _ = users.GetOrCreate(ctx, 1, "alice", "Alice", "")
	_ = results.Save(ctx, domain.GameResult{UserID: 1, Score: 3})

	agg := app.NewAggregator(users, results)
	hub := NewLeaderboardHub(agg, 10)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/leaderboard", hub.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot first.
	snapshot := readNext(conn, t)
	if len(snapshot.Rows) != 1 || snapshot.Rows[0].BestScore != 3 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	// A finished game must push an updated board.
	_ = results.Save(ctx, domain.GameResult{UserID: 1, Score: 9})
	hub.GameFinished(domain.GameResult{UserID: 1, Score: 9})

	update := readNext(conn, t)
	if len(update.Rows) != 1 || update.Rows[0].BestScore != 9 {
		t.Fatalf("unexpected update %+v", update)
	}
}

func readNext(conn *websocket.Conn, t *testing.T) domain.Leaderboard {
	t.Helper()
	var msg struct {
		Type    string             `json:"type"`
		Payload domain.Leaderboard `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "leaderboard" {
		t.Fatalf("expected leaderboard message, got %s", msg.Type)
	}
	return msg.Payload
}
