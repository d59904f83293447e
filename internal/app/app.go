// Package app wires the risklab services together from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/risklab/internal/api"
	"github.com/newthinker/risklab/internal/batch"
	"github.com/newthinker/risklab/internal/config"
	"github.com/newthinker/risklab/internal/editor"
	"github.com/newthinker/risklab/internal/generator"
	"github.com/newthinker/risklab/internal/metrics"
	"github.com/newthinker/risklab/internal/notifier"
	"github.com/newthinker/risklab/internal/notifier/webhook"
	"github.com/newthinker/risklab/internal/runner"
	"github.com/newthinker/risklab/internal/storage/archive"
	"github.com/newthinker/risklab/internal/storage/postgres"
	"github.com/newthinker/risklab/internal/storage/strategy"
	"github.com/newthinker/risklab/internal/storage/testbatch"
)

// ShutdownTimeout bounds the graceful HTTP shutdown.
const ShutdownTimeout = 30 * time.Second

// App is the main application orchestrator
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	pool       *pgxpool.Pool
	strategies strategy.Store
	batches    testbatch.Store
	runner     runner.Runner
	archive    archive.Storage
	notifiers  *notifier.Registry
	metrics    *metrics.Registry
	executor   *batch.Executor
	server     *api.Server

	mu      sync.Mutex
	running bool
	closed  bool
}

// New builds every component named by cfg. With the postgres driver it
// waits for the database and, when auto_migrate is set, applies the schema.
func New(ctx context.Context, cfg *config.Config, version string, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		notifiers: notifier.NewRegistry(),
	}

	if err := a.initStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	a.runner = runner.NewDispatcher(
		runner.NewProcessRunner(cfg.Runner, logger.Named("runner")),
		runner.NewScriptRunner(cfg.Runner.Timeout, logger.Named("runner")),
	)

	if cfg.Archive.Enabled {
		store, err := archive.New(cfg.Archive)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating archive: %w", err)
		}
		a.archive = store
	}

	if cfg.Notifier.Enabled {
		hook, err := webhook.New(cfg.Notifier.URL, cfg.Notifier.Headers)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating webhook notifier: %w", err)
		}
		if err := a.notifiers.Register(hook); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.executor = batch.New(cfg.Executor, batch.Deps{
		Strategies: a.strategies,
		Batches:    a.batches,
		Runner:     a.runner,
		Archive:    a.archive,
		Notifiers:  a.notifiers,
		Metrics:    a.metrics,
		Logger:     logger.Named("executor"),
	})

	editorCfg := editor.Default().WithOverrides(cfg.Editor.Languages, cfg.Editor.Features)
	if err := editorCfg.Validate(); err != nil {
		a.Close()
		return nil, err
	}

	server, err := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		APIKey:         cfg.Server.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TemplatesDir:   cfg.Server.TemplatesDir,
		MetricsPath:    cfg.Metrics.Path,
		Version:        version,
		Editor:         editorCfg,
	}, api.Dependencies{
		Strategies: a.strategies,
		Batches:    a.batches,
		Runner:     a.runner,
		Generator:  generator.New(),
		Scheduler:  a.executor,
		Metrics:    a.metrics,
	}, logger.Named("api"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating server: %w", err)
	}
	a.server = server

	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.cfg.Database.Driver {
	case "postgres":
		pool, err := postgres.Connect(ctx, a.cfg.Database, a.logger.Named("postgres"))
		if err != nil {
			return err
		}
		a.pool = pool
		if a.cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, a.cfg.Database.DSN, a.logger.Named("migrate")); err != nil {
				return fmt.Errorf("migrating database: %w", err)
			}
		}
		a.strategies = strategy.NewPostgresStore(pool)
		a.batches = testbatch.NewPostgresStore(pool)
		a.logger.Info("using postgres storage")
	default:
		a.strategies = strategy.NewMemoryStore()
		a.batches = testbatch.NewMemoryStore()
		a.logger.Warn("using in-memory storage, data is lost on restart")
	}
	return nil
}

// Server returns the HTTP server.
func (a *App) Server() *api.Server {
	return a.server
}

// Executor returns the batch executor.
func (a *App) Executor() *batch.Executor {
	return a.executor
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running || a.closed {
		a.mu.Unlock()
		return fmt.Errorf("app already running or closed")
	}
	a.running = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.server.Start)
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down risklab server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops background batch runs and releases the database pool.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	if a.executor != nil {
		a.executor.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
