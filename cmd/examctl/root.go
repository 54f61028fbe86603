package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cloudmaster/examprep/internal/config"
	"github.com/cloudmaster/examprep/internal/database"
	"github.com/cloudmaster/examprep/internal/logger"
	"github.com/cloudmaster/examprep/internal/repository"
	"github.com/cloudmaster/examprep/internal/service"
)

var rootCmd = &cobra.Command{
	Use:           "examctl",
	Short:         "Operate the exam prep backend",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().Bool("no-redis", false, "Skip Redis even when REDIS_URL is set")

	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	pool      *pgxpool.Pool
	rdb       *redis.Client
	users     *repository.UserRepository
	auth      *service.AuthService
	exams     *service.ExamService
	questions *service.QuestionService
	sessions  *service.ExamSessionService
	store     service.SessionStore
	closers   []func()
}

// openApp connects to storage the same way the server does. Call close when done.
func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg := config.Load()
	a := &app{
		cfg: cfg,
		log: logger.New(cmd.ErrOrStderr(), "pretty"),
	}

	pool, err := database.NewPostgresPool(ctx, cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)

	noRedis, _ := cmd.Flags().GetBool("no-redis")
	if cfg.RedisURL != "" && !noRedis {
		rdb, err := database.NewRedisClient(ctx, cfg, a.log)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to Redis: %w", err)
		}
		a.rdb = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	var store service.SessionStore = repository.NewExamSessionRepository(pool)
	if cfg.SessionStore == config.StoreModeSQLite {
		db, err := database.NewSQLite(cfg.SQLitePath, a.log)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open SQLite: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		sqliteStore, err := repository.NewSQLiteSessionRepository(ctx, db)
		if err != nil {
			a.close()
			return nil, err
		}
		store = sqliteStore
	}

	var deadlines service.DeadlineTracker
	if a.rdb != nil {
		deadlines = repository.NewDeadlineRepository(a.rdb)
	}

	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	a.users = repository.NewUserRepository(pool)
	a.auth = service.NewAuthService(cfg, a.users, a.rdb, a.log)
	a.exams = service.NewExamService(examRepo, questionRepo, a.rdb, cfg.CatalogCacheTTL, a.log)
	a.questions = service.NewQuestionService(questionRepo, a.exams, a.log)
	a.store = store
	a.sessions = service.NewExamSessionService(store, a.exams, deadlines, a.log)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
