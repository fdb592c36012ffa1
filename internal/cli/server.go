package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/config"
	"trivia-room-service/internal/game"
	"trivia-room-service/internal/infra/genai"
	"trivia-room-service/internal/infra/memory"
	pgstore "trivia-room-service/internal/infra/postgres"
	redisstore "trivia-room-service/internal/infra/redis"
	"trivia-room-service/internal/logging"
	"trivia-room-service/internal/quizgen"
	transport "trivia-room-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	_ = godotenv.Load()
	logging.Setup(os.Stderr, slog.LevelInfo)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	roomTTL := config.TTLDuration(cfg.Room.TTL, 2*time.Hour)
	archiveTTL := config.TTLDuration(cfg.Archive.TTL, 30*24*time.Hour)
	cacheTTL := config.TTLDuration(cfg.Archive.CacheTTL, 10*time.Minute)

	var rooms app.RoomRepository
	if redisClient != nil {
		rooms = redisstore.NewRoomStore(redisClient, roomTTL)
	} else {
		rooms = memory.NewRoomStore(roomTTL)
	}

	var archive app.ArchiveRepository
	if pool != nil {
		archive = pgstore.NewArchiveStore(pool, archiveTTL)
	} else {
		archive = memory.NewArchiveStore(archiveTTL)
	}
	if redisClient != nil {
		archive = redisstore.NewArchiveCache(redisClient, archive, cacheTTL)
	}

	if cfg.Generator.URL == "" {
		slog.Warn("generator url not configured, question generation will fail upstream")
	}
	generator := genai.NewClient(
		cfg.Generator.URL,
		cfg.Generator.APIKey,
		cfg.Generator.Model,
		config.TTLDuration(cfg.Generator.Timeout, 60*time.Second),
	)

	rules := gameRules(cfg)
	loader := quizgen.NewLoader(generator, archive)
	service := app.NewRoomService(rooms, archive, loader, rules)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(service).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(service).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("starting trivia service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func gameRules(cfg config.Config) game.Rules {
	rules := game.DefaultRules()
	if d := config.TTLDuration(cfg.Game.AnswerWindow, 0); d > 0 {
		rules.AnswerWindow = d
	}
	if d := config.TTLDuration(cfg.Game.RevealWindow, 0); d > 0 {
		rules.RevealWindow = d
	}
	if cfg.Game.PointsPerSecond > 0 {
		rules.PointsPerSecond = cfg.Game.PointsPerSecond
	}
	if cfg.Game.MinimumPoints > 0 {
		rules.MinimumPoints = cfg.Game.MinimumPoints
	}
	return rules
}
