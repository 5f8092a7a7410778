package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/racksmith/pkg/middleware"
	"github.com/JaimeStill/racksmith/pkg/openapi"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "RACKSMITH_CORS_ENABLED",
	Origins:          "RACKSMITH_CORS_ORIGINS",
	AllowedMethods:   "RACKSMITH_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "RACKSMITH_CORS_ALLOWED_HEADERS",
	AllowCredentials: "RACKSMITH_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "RACKSMITH_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "RACKSMITH_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "RACKSMITH_PAGINATION_MAX_PAGE_SIZE",
}

var openAPIEnv = &openapi.ConfigEnv{
	Title:       "RACKSMITH_OPENAPI_TITLE",
	Description: "RACKSMITH_OPENAPI_DESCRIPTION",
}

// APIConfig holds API routing, CORS, pagination, and OpenAPI settings.
type APIConfig struct {
	BasePath   string                `toml:"base_path"`
	CORS       middleware.CORSConfig `toml:"cors"`
	Pagination pagination.Config     `toml:"pagination"`
	OpenAPI    openapi.Config        `toml:"openapi"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openAPIEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("RACKSMITH_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
}
