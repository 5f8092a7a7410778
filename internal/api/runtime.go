package api

import (
	"github.com/JaimeStill/racksmith/internal/config"
	"github.com/JaimeStill/racksmith/internal/infrastructure"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Analysis   config.AnalysisConfig
	Scheduler  config.SchedulerConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Metrics:   infra.Metrics,
			Policies:  infra.Policies,
		},
		Pagination: cfg.API.Pagination,
		Analysis:   cfg.Analysis,
		Scheduler:  cfg.Scheduler,
	}
}
