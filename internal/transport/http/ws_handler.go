package http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"unicorn-math-bot/internal/domain"
)

// LeaderboardSource computes the current leaderboard.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error)
}

// LeaderboardHub streams leaderboard updates to websocket clients: each client
// gets the current board on connect and a fresh one whenever a game finishes.
type LeaderboardHub struct {
	source   LeaderboardSource
	limit    int
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardHub(source LeaderboardSource, limit int) *LeaderboardHub {
	return &LeaderboardHub{
		source: source,
		limit:  limit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

type outboundMessage struct {
	Type    string             `json:"type"`
	Payload domain.Leaderboard `json:"payload"`
}

// GameFinished recomputes the leaderboard and pushes it to every subscriber.
// Wired to the game service's finish hook, so it fires for explicit ends and
// timeouts alike.
func (h *LeaderboardHub) GameFinished(_ domain.GameResult) {
	lb, err := h.source.Leaderboard(context.Background(), h.limit)
	if err != nil {
		log.Printf("refresh leaderboard: %v", err)
		return
	}
	h.broadcast(lb)
}

func (h *LeaderboardHub) subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *LeaderboardHub) broadcast(lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale update so a slow client never blocks the rest.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// ServeWS upgrades the request and streams leaderboard snapshots until the
// client disconnects.
func (h *LeaderboardHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	lb, err := h.source.Leaderboard(r.Context(), h.limit)
	if err != nil {
		log.Printf("initial leaderboard: %v", err)
		return
	}

	updates, cancel := h.subscribe()
	defer cancel()

	if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: lb}); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
