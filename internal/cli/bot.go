package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"unicorn-math-bot/internal/app"
	"unicorn-math-bot/internal/config"
	"unicorn-math-bot/internal/domain"
	"unicorn-math-bot/internal/infra/memory"
	pgstore "unicorn-math-bot/internal/infra/postgres"
	redisinfra "unicorn-math-bot/internal/infra/redis"
	"unicorn-math-bot/internal/problem"
	transport "unicorn-math-bot/internal/transport/http"
	"unicorn-math-bot/internal/transport/telegram"
)

// NewBotCmd builds the CLI subcommand to run the bot.
func NewBotCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot and the leaderboard feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath, *port)
		},
	}
}

func runBot(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured (set telegram.token or TG_TOKEN)")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var users app.UserRepository = memory.NewUserRepository()
	var results app.ResultRepository = memory.NewResultRepository()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		users = pgstore.NewUserRepository(pool)
		results = pgstore.NewResultRepository(pool)
	} else {
		log.Printf("postgres url not set, keeping results in memory")
	}

	aggregator := app.NewAggregator(users, results)

	var cache *redisinfra.LeaderboardCache
	var board telegram.LeaderboardSource = aggregator
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = redisinfra.NewLeaderboardCache(redisClient, aggregator, config.TTLDuration(cfg.Leaderboard.TTL, time.Minute))
		board = cache
	}

	limit := cfg.Leaderboard.Limit
	if limit <= 0 {
		limit = 10
	}
	duration := config.TTLDuration(cfg.Game.Duration, 60*time.Second)

	service := app.NewGameService(users, results, problem.NewGenerator(), duration)
	hub := transport.NewLeaderboardHub(board, limit)
	service.SetOnFinish(func(result domain.GameResult) {
		if cache != nil {
			cache.Invalidate(context.Background())
		}
		hub.GameFinished(result)
	})

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("init telegram bot: %w", err)
	}
	handler := telegram.NewHandler(bot, service, aggregator, board, cfg.Telegram.AdminID, limit)
	service.SetNotifier(handler)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/leaderboard", hub.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("leaderboard feed listening on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	botCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go handler.Run(botCtx)
	log.Printf("bot polling for updates")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
