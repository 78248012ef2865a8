package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_portal_backend/internal/events"
	apphttp "lead_portal_backend/internal/http"
	"lead_portal_backend/internal/http/router"
	"lead_portal_backend/internal/intake"
	"lead_portal_backend/internal/leads"
	"lead_portal_backend/internal/leads/live"
	"lead_portal_backend/internal/scheduler"
	"lead_portal_backend/migrations"
	"lead_portal_backend/platform/config"
	"lead_portal_backend/platform/db"
	"lead_portal_backend/platform/logger"
	"lead_portal_backend/platform/metrics"
	"lead_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			applied, err := db.RunMigrations(ctx, pool, migrations.FS)
			if err == nil && len(applied) > 0 {
				log.Info("database migrations applied", "migrations", applied)
			}
			return err
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	redisClient, closeRedis := initRedis(ctx, cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	queue, closeQueue := initQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	collector := metrics.NewCollector("lead_portal")

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(leads.Deps{
		Pool:     pool,
		Redis:    redisClient,
		Queue:    queue,
		EventBus: eventBus,
		Val:      val,
		Config:   cfg,
		Metrics:  collector,
		Log:      log,
	})

	aggregator := leadsModule.Aggregator()
	go func() {
		if err := aggregator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, live.ErrClosed) {
			log.Error("live lead feed stopped", "error", err)
		}
	}()
	defer aggregator.Close()

	var authStore intake.Store = intake.NewMemoryStore()
	if redisClient != nil {
		authStore = intake.NewRedisStore(redisClient)
	}
	authAttempts := intake.NewRateLimiter(intake.FromSettings(intake.AuthLimit, cfg.GetAuthRateLimit()), authStore)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:       cfg,
		Logger:       log,
		Health:       pool,
		Metrics:      collector,
		AuthAttempts: authAttempts,
		Modules: []apphttp.Module{
			leadsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		// Live streams hold connections open; end them before draining.
		aggregator.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (redis.UniversalClient, func()) {
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; rate limit state is kept in process")
		return nil, nil
	}

	client, err := db.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis; rate limit state is kept in process", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initQueue(cfg config.RedisConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; questionnaire score syncs run inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
