// Package main implements the entry point for the HDX Age API server,
// which checks and updates the age of HDX datasets and serves the job
// and cache endpoints around that work.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/hdx-age-api/internal/config"
	"github.com/phrazzld/hdx-age-api/internal/platform/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// repository is reported by the status endpoint.
const repository = "https://github.com/reubano/HDX-Age-API"

func main() {
	cfg, l, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		l.Error("failed to build application", "error", err)
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		l.Error("server stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"api_prefix", cfg.Server.APIPrefix,
		"cache_backend", cfg.Cache.Backend,
		"worker_count", cfg.Task.WorkerCount)
	if cfg.CKAN.APIKey != "" {
		l.Debug("CKAN configuration", "api_key_present", true)
	}

	return cfg, l, nil
}
