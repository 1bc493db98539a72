package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yds-challenge-service/internal/app"
	"yds-challenge-service/internal/config"
	"yds-challenge-service/internal/infra/memory"
	"yds-challenge-service/internal/infra/postgres"
	rediscache "yds-challenge-service/internal/infra/redis"
	"yds-challenge-service/internal/logging"
	transport "yds-challenge-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the challenge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backend is the wired service with the resources it holds open.
type backend struct {
	service *app.RoomService
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// newBackend wires postgres and redis when configured and falls back to the
// in-memory store and sample question bank otherwise.
func newBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (*backend, error) {
	b := &backend{}
	var (
		store   app.Store
		catalog app.QuestionCatalog
	)

	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := runMigrations(ctx, db, logger); err != nil {
			b.Close()
			return nil, err
		}
		store = postgres.NewStore(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		catalog = postgres.NewQuestionCatalog(pool)
	} else {
		logger.Warn("postgres not configured, using in-memory store and sample questions")
		store = memory.NewStore()
		catalog = memory.NewQuestionBank(memory.SampleQuestions(), time.Now().UnixNano())
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	opts := []app.Option{}
	if cfg.Challenge.CodeAttempts > 0 {
		opts = append(opts, app.WithCodeAttempts(cfg.Challenge.CodeAttempts))
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		catalog = rediscache.NewQuestionCache(client, catalog, quizTTL)
		reservationTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		opts = append(opts, app.WithCodeReserver(rediscache.NewCodeReserver(client, reservationTTL)))
	} else {
		catalog = memory.NewCachedCatalog(catalog, quizTTL)
	}

	b.service = app.NewRoomService(store, catalog, logger, opts...)
	return b, nil
}

func cleanupPolicy(cfg config.Config) app.CleanupPolicy {
	return app.CleanupPolicy{
		WaitingTTL:        config.TTLDuration(cfg.Challenge.WaitingTTL, 6*time.Hour),
		FinishedRetention: config.TTLDuration(cfg.Challenge.FinishedRetention, 30*24*time.Hour),
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if cfg.Challenge.CleanupSchedule != "" {
		janitor, err := app.NewJanitor(b.service, cleanupPolicy(cfg), cfg.Challenge.CleanupSchedule, logger)
		if err != nil {
			return err
		}
		janitor.Start()
		defer janitor.Stop()
	}

	watchInterval := config.TTLDuration(cfg.Server.WatchInterval, 2*time.Second)
	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(b.service, logger, watchInterval),
		ReadTimeout: 15 * time.Second,
		// No write timeout: it would cut long-lived websocket feeds.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting challenge service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
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
