package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/hdx-age-api/internal/api"
	"github.com/phrazzld/hdx-age-api/internal/cache"
	"github.com/phrazzld/hdx-age-api/internal/config"
	"github.com/phrazzld/hdx-age-api/internal/dispatch"
	"github.com/phrazzld/hdx-age-api/internal/redact"
	"github.com/phrazzld/hdx-age-api/internal/service"
	"github.com/phrazzld/hdx-age-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	taskRunner *task.TaskRunner
	responses  *cache.Cache
	dispatcher *dispatch.Dispatcher
	updater    *service.Updater
	ckan       *service.CKANClient

	// cacheSweep is how often the in-memory cache janitor runs
	cacheSweep time.Duration
}

// newApplication creates a new application instance with all dependencies
// initialized and the task runner started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config:     cfg,
		logger:     logger,
		cacheSweep: time.Minute,
	}

	store, err := app.newCacheStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to set up cache: %w", err)
	}
	app.responses = cache.New(store, seconds(cfg.Cache.DefaultTTLSeconds), logger)
	logger.Info("response cache initialized", "backend", cfg.Cache.Backend)

	app.taskRunner, err = setupTaskRunner(app)
	if err != nil {
		_ = app.responses.Close()
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	app.dispatcher = dispatch.New(app.taskRunner, cfg.Server.BaseURL(), logger)
	app.ckan = service.NewCKANClient(cfg.CKAN.Address, cfg.CKAN.APIKey, nil)
	app.updater = service.NewUpdater(app.ckan, &http.Client{}, cfg.Update.Concurrency, logger)

	logger.Info("Application initialized successfully")
	return app, nil
}

// newCacheStore builds the configured cache backend.
func (app *application) newCacheStore(ctx context.Context) (cache.Store, error) {
	cfg := app.config.Cache

	switch cfg.Backend {
	case "redis":
		store, err := cache.NewRedisStore(ctx, cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("redis backend: %s", redact.Error(err))
		}
		return store, nil
	case "memory", "":
		return cache.NewMemoryStore(app.cacheSweep), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// setupTaskRunner initializes and starts the background task processor.
func setupTaskRunner(app *application) (*task.TaskRunner, error) {
	taskRunner := task.NewTaskRunner(task.NewMemoryJobStore(), task.TaskRunnerConfig{
		WorkerCount:   app.config.Task.WorkerCount,
		QueueSize:     app.config.Task.QueueSize,
		ResultTTL:     seconds(app.config.Task.ResultTTLSeconds),
		SweepInterval: seconds(app.config.Task.SweepIntervalSeconds),
	}, app.logger)

	if err := taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return taskRunner, nil
}

// handler builds the API handler from the application's dependencies.
func (app *application) handler() *api.Handler {
	cfg := app.config
	return api.NewHandler(app.taskRunner, app.dispatcher, app.responses, app.updater, api.HandlerConfig{
		Version:        version,
		Repository:     repository,
		CKANAddress:    app.ckan.Address(),
		UpdateEndpoint: cfg.UpdateEndpoint(),
		UpdateDefaults: service.UpdateOptions{
			ChunkSize: cfg.Update.ChunkSize,
			RowLimit:  cfg.Update.RowLimit,
			Mock:      cfg.Update.MockFreq,
			Timeout:   cfg.Update.TimeoutSeconds,
			TTL:       cfg.Update.TTLSeconds,
		},
		CacheTTL: seconds(cfg.Cache.DefaultTTLSeconds),
	}, app.logger)
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. Queued jobs
// finish before the cache is closed.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.responses != nil {
		if err := app.responses.Close(); err != nil {
			app.logger.Error("Error closing response cache", "error", redact.Error(err))
		}
	}

	app.logger.Info("Application shutdown completed")
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
