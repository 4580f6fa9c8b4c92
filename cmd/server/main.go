/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the faculty leave server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (flags > environment > .env > defaults)
  2. Configure zerolog
  3. Open the store (SQLite or Postgres) and migrate
  4. Upsert the leave-type catalog (file or built-in)
  5. Wire the audit sink (Redis stream when configured, log lines otherwise)
  6. Create engine, handler and router; seed a demo scenario if asked
  7. Start the batch scheduler
  8. Serve with graceful shutdown

COMMAND-LINE FLAGS:
  --port          HTTP server port (default: 8080)
  --db-driver     sqlite3 | postgres
  --database-url  SQLite path (":memory:" for in-memory) or Postgres DSN
  --redis-url     Redis URL for the audit stream
  --leave-types   catalog file (YAML or JSON)
  --seed-demo     scenario to load on start-up (not in production)
  --scheduler     run the cron batches (default: true)
  --log-level, --log-format

ENVIRONMENT:
  APP_ENV, PORT, DB_DRIVER, DATABASE_URL, REDIS_URL, AUDIT_STREAM,
  LEAVE_TYPES_FILE, SEED_DEMO, SCHEDULER_ENABLED, CRON_MONTHLY_ACCRUAL,
  CRON_YEARLY_ACCRUAL, CRON_CARRY_FORWARD, LOG_LEVEL, LOG_FORMAT

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler (waits for a running batch)
  4. Close Redis and database connections

EXAMPLES:
  ./server --database-url=./data/leave.db
  ./server --database-url=":memory:" --seed-demo=pending-reviews --log-format=console
  DB_DRIVER=postgres DATABASE_URL=postgres://leave@localhost/leave?sslmode=disable ./server

SEE ALSO:
  - config/config.go: configuration keys
  - api/server.go: Router configuration
  - api/scheduler.go: batch schedules
*/
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

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/api"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/config"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/factory"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic"
	memstore "github.com/kishoreafk/Nit-Faculty-Managment-sub000/generic/store"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/store/auditstream"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/store/sqlite"
	"github.com/kishoreafk/Nit-Faculty-Managment-sub000/timeoff"
)

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	config.AddFlags(flags)
	envFile := flags.String("env-file", ".env", "dotenv file to read (ignored when absent)")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*envFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogFormat == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Str("service", "leave").Logger()
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	// Store
	dialect, err := sqlite.ParseDialect(cfg.DBDriver)
	if err != nil {
		return err
	}
	store, err := sqlite.Open(dialect, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Leave-type catalog
	types := timeoff.DefaultCatalog()
	if cfg.LeaveTypesFile != "" {
		if types, err = factory.LoadFile(cfg.LeaveTypesFile); err != nil {
			return err
		}
	}
	saved, err := factory.Apply(ctx, store, types)
	if err != nil {
		return err
	}
	logger.Info().Int("leave_types", len(saved)).Str("source", catalogSource(cfg)).Msg("leave types loaded")

	// Audit sink: the Redis stream when configured, structured log lines otherwise
	var audit generic.AuditLog = memstore.NewLogAudit(logger)
	var stream *auditstream.Sink
	if cfg.RedisURL != "" {
		rdb, err := auditstream.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		stream = auditstream.New(rdb, cfg.AuditStream, auditstream.WithMaxLen(100000))
		audit = stream
		logger.Info().Str("stream", cfg.AuditStream).Msg("audit stream enabled")
	}

	// Engine and HTTP
	engine := timeoff.NewEngine(store, audit, logger)
	handler := api.NewHandler(engine, store, logger)
	if stream != nil {
		handler.Audit = stream
	}

	if cfg.SeedDemo != "" {
		if cfg.IsProduction() {
			return errors.New("SEED_DEMO is not allowed in production")
		}
		if err := handler.SeedOnStartup(cfg.SeedDemo); err != nil {
			return fmt.Errorf("failed to seed %s: %w", cfg.SeedDemo, err)
		}
	}

	router := api.NewRouter(handler, api.RouterOptions{EnableScenarios: !cfg.IsProduction()})

	// Scheduler
	var scheduler *api.Scheduler
	if cfg.SchedulerEnabled {
		scheduler = api.NewScheduler(engine, api.ScheduleSpecs{
			MonthlyAccrual: cfg.CronMonthlyAccrual,
			YearlyAccrual:  cfg.CronYearlyAccrual,
			CarryForward:   cfg.CronCarryForward,
		}, logger)
		if err := scheduler.Start(); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down server")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	logger.Info().Msg("server stopped")
	return nil
}

func catalogSource(cfg *config.Config) string {
	if cfg.LeaveTypesFile == "" {
		return "built-in"
	}
	return cfg.LeaveTypesFile
}
