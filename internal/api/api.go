// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/racksmith/internal/config"
	"github.com/JaimeStill/racksmith/internal/infrastructure"
	"github.com/JaimeStill/racksmith/pkg/middleware"
	"github.com/JaimeStill/racksmith/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The batch scheduler is registered with the lifecycle coordinator here so
// it starts with the infrastructure and drains on shutdown.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg, runtime); err != nil {
		return nil, err
	}

	if err := domain.Batches.Start(runtime.Lifecycle); err != nil {
		return nil, err
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	if runtime.Metrics != nil {
		m.Use(middleware.Metrics(runtime.Metrics))
	}

	return m, nil
}
