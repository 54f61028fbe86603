package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/config"
	"github.com/cloudmaster/examprep/internal/database"
	"github.com/cloudmaster/examprep/internal/handler"
	"github.com/cloudmaster/examprep/internal/logger"
	"github.com/cloudmaster/examprep/internal/repository"
	"github.com/cloudmaster/examprep/internal/router"
	"github.com/cloudmaster/examprep/internal/service"
	"github.com/cloudmaster/examprep/internal/validator"
	"github.com/cloudmaster/examprep/internal/worker"
)

// deadlineStore is tracked by the session service and drained by the
// expiry worker.
type deadlineStore interface {
	service.DeadlineTracker
	worker.DeadlineQueue
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("session_store", cfg.SessionStore).
		Msg("Starting exam prep backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	checks := map[string]handler.HealthCheck{"postgres": pool.Ping}

	// ─── Connect to Redis (optional) ───────────────────────────────────
	// Without Redis the catalog is uncached, logout only ends the client
	// side, and deadlines are tracked in process.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn().Msg("REDIS_URL is empty, running without Redis")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	var sessionStore service.SessionStore
	switch cfg.SessionStore {
	case config.StoreModeSQLite:
		db, err := database.NewSQLite(cfg.SQLitePath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open SQLite")
		}
		defer db.Close()
		sqliteStore, err := repository.NewSQLiteSessionRepository(ctx, db)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare SQLite session store")
		}
		sessionStore = sqliteStore
		checks["sqlite"] = db.PingContext
	case config.StoreModePostgres:
		sessionStore = repository.NewExamSessionRepository(pool)
	default:
		log.Fatal().Str("session_store", cfg.SessionStore).Msg("Unknown SESSION_STORE")
	}

	var deadlines deadlineStore
	if rdb != nil {
		deadlines = repository.NewDeadlineRepository(rdb)
	} else {
		deadlines = repository.NewMemoryDeadlineRepository()
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, rdb, log)
	examService := service.NewExamService(examRepo, questionRepo, rdb, cfg.CatalogCacheTTL, log)
	questionService := service.NewQuestionService(questionRepo, examService, log)
	sessionService := service.NewExamSessionService(sessionStore, examService, deadlines, log)
	reviewService := service.NewReviewService(sessionService, examService, log)
	dashboardService := service.NewDashboardService(sessionService, examService, cfg.DefaultPassingScore, log)

	// Redis may have been flushed, or the in-process set is empty on boot.
	restored, err := sessionService.RestoreDeadlines(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Restoring session deadlines failed")
	} else {
		log.Info().Int("count", restored).Msg("Session deadlines restored")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	wsTick := time.Duration(cfg.WebSocketTickSeconds) * time.Second
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		Exam:      handler.NewExamHandler(examService, log),
		Question:  handler.NewQuestionHandler(questionService, log),
		Session:   handler.NewSessionHandler(sessionService, dashboardService, log),
		Review:    handler.NewReviewHandler(reviewService, sessionService, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, log),
		WS:        handler.NewWSHandler(sessionService, wsTick, log, cfg.AllowedOrigins),
		System:    handler.NewSystemHandler(checks, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	expiryWorker := worker.NewExpiryWorker(deadlines, sessionService, cfg.ExpiryPollInterval, log)
	go func() {
		expiryWorker.Start(workerCtx)
		close(workerDone)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the expiry worker after its current sweep.
	workerCancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Expiry worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
