package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/dmv-trainer/internal/attempt"
	"github.com/gokatarajesh/dmv-trainer/internal/attempt/scoring"
	"github.com/gokatarajesh/dmv-trainer/internal/auth"
	"github.com/gokatarajesh/dmv-trainer/internal/auth/jwt"
	"github.com/gokatarajesh/dmv-trainer/internal/config"
	"github.com/gokatarajesh/dmv-trainer/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/dmv-trainer/internal/db/sqlc"
	"github.com/gokatarajesh/dmv-trainer/internal/logging"
	"github.com/gokatarajesh/dmv-trainer/internal/metrics"
	"github.com/gokatarajesh/dmv-trainer/internal/progress"
	"github.com/gokatarajesh/dmv-trainer/internal/question"
	"github.com/gokatarajesh/dmv-trainer/internal/server"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	reconcileWorker *progress.ReconcileWorker
	bgCancels       []context.CancelFunc
}

// New bootstraps logger, Postgres, Redis, the trainer services and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	queries := sqlcgen.New(pool)
	questionRepo := repository.NewQuestionRepository(queries, repository.PgxTx(pool, queries))
	resultRepo := repository.NewResultRepository(queries)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collectorsSet := metrics.New(registry)

	// Auth
	learnerStore := auth.NewRedisLearnerStore(redisClient, cfg.Security.LearnerTTL)
	authSvc := auth.NewService(learnerStore, auth.ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte(cfg.Security.JWTSecret),
			RefreshSecret: []byte(cfg.Security.JWTRefreshSecret),
			AccessTTL:     cfg.Security.AccessTTL,
			RefreshTTL:    cfg.Security.RefreshTTL,
			Issuer:        cfg.Name,
		},
	}, logger)
	authHandlers := auth.NewHTTPHandlers(authSvc, logger)

	// Question bank
	questionSvc := question.NewService(
		questionRepo,
		question.NewCache(redisClient, cfg.Bank.CacheTTL),
		question.ServiceOptions{BankFile: cfg.Bank.File},
		logger,
	)

	// Progress
	aggregates := progress.NewRedisAggregates(redisClient, progress.RedisAggregatesOptions{
		RecentCap: cfg.Progress.RecentCap,
		EntryTTL:  cfg.Progress.EntryTTL,
	}, logger)
	progressSvc := progress.NewService(aggregates, resultRepo, progress.ServiceOptions{
		RecentLimit: cfg.Progress.RecentLimit,
	}, logger)

	var reconcileWorker *progress.ReconcileWorker
	if interval := cfg.Progress.ReconcileInterval; interval > 0 {
		reconcileWorker = progress.NewReconcileWorker(progressSvc, interval, cfg.Progress.ReconcileBatch, logger)
	}

	// Attempts
	rng := attempt.DefaultRNG
	if cfg.Attempt.Seed != 0 {
		rng = attempt.SeededRNG(cfg.Attempt.Seed)
		logger.Warn().Uint64("seed", cfg.Attempt.Seed).Msg("attempt draws are seeded and replayable")
	}
	attemptSvc := attempt.NewService(
		questionSvc,
		attempt.NewRedisStore(redisClient, cfg.Attempt.SlotTTL, logger),
		progressSvc,
		attempt.ServiceOptions{
			FullSize:   cfg.Attempt.FullSize,
			DrillSize:  cfg.Attempt.DrillSize,
			RNG:        rng,
			Engine:     scoring.NewEngine(scoring.ScoringConfig{PassPercent: cfg.Attempt.PassPercent}),
			Metrics:    collectorsSet,
			Weaknesses: progressSvc,
		},
		logger,
	)

	apiServer := server.NewHTTPServer(cfg, logger,
		server.Deps{Pool: pool, Redis: redisClient, Gatherer: registry},
		server.Handlers{
			Auth:      authHandlers,
			Attempt:   attempt.NewHTTPHandlers(attemptSvc, logger),
			Progress:  progress.NewHTTPHandler(progressSvc, logger),
			Validator: authSvc,
		},
	)

	return &Application{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		redis:           redisClient,
		http:            apiServer,
		reconcileWorker: reconcileWorker,
		bgCancels:       make([]context.CancelFunc, 0, 1),
	}, nil
}

// Logger exposes the application logger for the entrypoint.
func (a *Application) Logger() zerolog.Logger {
	return a.logger
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.reconcileWorker != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.reconcileWorker.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("progress reconcile worker stopped")
			}
		}()
	}
}
