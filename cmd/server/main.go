// Package main is the entry point for the SkillTrek Hub API server.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: progression curve, activity feed, XP history, no external deps
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: PostgreSQL repositories, Redis caches
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/skilltrek/skilltrek-hub/config"

	// Application layer
	"github.com/skilltrek/skilltrek-hub/internal/application/command"
	"github.com/skilltrek/skilltrek-hub/internal/application/query"

	// Domain services
	"github.com/skilltrek/skilltrek-hub/internal/domain/activity"
	"github.com/skilltrek/skilltrek-hub/internal/domain/history"
	"github.com/skilltrek/skilltrek-hub/internal/domain/progression"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"

	// Infrastructure layer
	"github.com/skilltrek/skilltrek-hub/internal/infrastructure/persistence/postgres"
	"github.com/skilltrek/skilltrek-hub/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/skilltrek/skilltrek-hub/internal/interface/http"

	// Packages
	"github.com/skilltrek/skilltrek-hub/pkg/logger"
	"github.com/skilltrek/skilltrek-hub/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────

	// A missing .env is fine: production injects real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.LogCaller,
	})

	log.Info("starting SkillTrek Hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE CONNECTION (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")

	var dbConn *postgres.Connection
	err = retry.ConnectRetrier().Do(ctx, func(ctx context.Context) error {
		var connErr error
		if cfg.Database.URL != "" {
			dbConn, connErr = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		} else {
			pgCfg := postgres.DefaultConfig()
			pgCfg.MaxConns = int32(cfg.Database.MaxConns)
			pgCfg.MinConns = int32(cfg.Database.MinConns)
			pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
			pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
			pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout
			dbConn, connErr = postgres.NewConnection(ctx, pgCfg)
		}
		return connErr
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.MigrateOnStart {
		log.Info("running database migrations")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisClient *redis.Client
	var idemStore progression.IdempotencyStore
	var lbCache user.LeaderboardCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis")
		redisCfg := redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}

		err = retry.ConnectRetrier().Do(ctx, func(ctx context.Context) error {
			var connErr error
			redisClient, connErr = redis.NewClient(ctx, redisCfg)
			return connErr
		})
		if err != nil {
			// Redis outage degrades behavior, it does not block startup:
			// dedup falls back to the section-progress table and the
			// leaderboard reads skip the cache.
			log.Warn("failed to connect to Redis, degraded mode", logger.Err(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			idemStore = redis.NewIdempotencyStore(redisClient, cfg.Progression.DedupTTL)
			lbCache = redis.NewLeaderboardCache(redisClient)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories")
	userRepo := postgres.NewUserRepository(dbConn)
	activityRepo := postgres.NewActivityRepository(dbConn)
	historyRepo := postgres.NewHistoryRepository(dbConn)
	courseRepo := postgres.NewCourseRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. DOMAIN SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	tracker := history.NewTracker(historyRepo, cfg.Progression.WeekStart, log)
	feed := activity.NewFeed(activityRepo, tracker, log)
	ledger := progression.NewLedger(userRepo, idemStore, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer")

	registerUserCmd := command.NewRegisterUserHandler(userRepo, log)
	completeSectionCmd := command.NewCompleteSectionHandler(courseRepo, ledger, feed, log)
	completeQuizCmd := command.NewCompleteQuizHandler(ledger, feed, log)
	toggleLikeCmd := command.NewToggleLikeHandler(userRepo, feed, log)
	addCommentCmd := command.NewAddCommentHandler(userRepo, feed, log)

	progressionQuery := query.NewGetProgressionHandler(userRepo)
	feedQuery := query.NewGetActivityFeedHandler(feed)
	historyQuery := query.NewGetXPHistoryHandler(tracker)
	leaderboardQuery := query.NewGetLeaderboardHandler(userRepo, lbCache, log).
		WithTTL(cfg.Progression.LeaderboardTTL)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.Server.Host
	httpConfig.Port = cfg.Server.Port
	httpConfig.ReadTimeout = cfg.Server.ReadTimeout
	httpConfig.WriteTimeout = cfg.Server.WriteTimeout
	httpConfig.IdleTimeout = cfg.Server.IdleTimeout
	httpConfig.EnableCORS = cfg.Server.EnableCORS
	httpConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.Server.RateLimitPerMinute

	healthTargets := map[string]httpserver.Pinger{
		"postgres": dbConn,
	}
	if redisClient != nil {
		healthTargets["redis"] = redisClient
	}

	httpDeps := httpserver.Dependencies{
		RegisterUser:    registerUserCmd,
		CompleteSection: completeSectionCmd,
		CompleteQuiz:    completeQuizCmd,
		ToggleLike:      toggleLikeCmd,
		AddComment:      addCommentCmd,

		GetProgression:  progressionQuery,
		GetActivityFeed: feedQuery,
		GetXPHistory:    historyQuery,
		GetLeaderboard:  leaderboardQuery,

		HealthTargets: healthTargets,
		Logger:        log,
	}

	server := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. START & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("SkillTrek Hub is running", logger.String("address", server.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server failed", logger.Err(err))
		return err
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
