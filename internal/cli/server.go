package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"school-quiz-service/internal/app"
	"school-quiz-service/internal/cache"
	"school-quiz-service/internal/config"
	"school-quiz-service/internal/infra/memory"
	"school-quiz-service/internal/infra/postgres"
	infraredis "school-quiz-service/internal/infra/redis"
	transport "school-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz scoring server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

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

	var store app.Store
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	} else {
		// No system of record configured: run against an in-process store
		// with the four set quizzes seeded. Useful for demos and tests only.
		memStore := memory.NewStore()
		memStore.SeedQuizzes(1, 2, 3, 4)
		store = memStore
		logger.Warn("no postgres url configured, using volatile in-memory store")
	}

	var cacheLayer cache.Cache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cacheLayer = infraredis.NewCache(client)
	} else {
		// Single-instance deployments only; the in-memory cache is not
		// shared, so a second replica would invalidate blind.
		cacheLayer = memory.NewCache()
		logger.Warn("no redis addr configured, using process-local cache")
	}

	ttls := transport.TTLs{
		Default:       config.TTLDuration(cfg.Cache.DefaultTTL, 10*time.Minute),
		Leaderboard:   config.TTLDuration(cfg.Cache.LeaderboardTTL, 5*time.Minute),
		PublishStatus: config.TTLDuration(cfg.Cache.PublishTTL, 5*time.Minute),
	}

	invalidator := cache.NewInvalidator(cacheLayer, logger)
	submissions := app.NewSubmissionService(store, invalidator, logger)
	roster := app.NewRosterService(store, invalidator, logger)
	content := app.NewContentService(store, invalidator, logger)

	gateway := transport.NewGateway(cacheLayer, logger)
	hub := transport.NewLeaderboardHub()
	handler := transport.NewHandler(submissions, roster, content, store, gateway, hub, logger, ttls)
	ws := transport.NewWSHandler(hub, handler.LeaderboardSnapshot, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(handler, ws),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting school quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
