// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, metrics, policies)
// that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/racksmith/internal/config"
	"github.com/JaimeStill/racksmith/pkg/compliance"
	"github.com/JaimeStill/racksmith/pkg/database"
	"github.com/JaimeStill/racksmith/pkg/lifecycle"
	"github.com/JaimeStill/racksmith/pkg/metrics"
	"github.com/JaimeStill/racksmith/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Metrics is nil when the metrics endpoint is disabled; its recorders
// accept a nil receiver.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Metrics   *metrics.Registry
	Policies  *compliance.Store
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	policies := compliance.NewStore(cfg.Policy.Path, logger)
	if err := policies.Load(); err != nil {
		return nil, fmt.Errorf("policy init failed: %w", err)
	}

	var registry *metrics.Registry
	if !cfg.Metrics.Disabled {
		registry = metrics.NewRegistry()
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Metrics:   registry,
		Policies:  policies,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// The policy watcher runs until the coordinator context is cancelled.
func (i *Infrastructure) Start(cfg *config.Config) error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	interval := cfg.Policy.ReloadIntervalDuration()
	i.Lifecycle.OnStartup(func() {
		go i.Policies.Watch(i.Lifecycle.Context(), interval)
	})
	return nil
}
