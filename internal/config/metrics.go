package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	EnvMetricsDisabled = "RACKSMITH_METRICS_DISABLED"
	EnvMetricsPath     = "RACKSMITH_METRICS_PATH"
)

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Disabled bool   `toml:"disabled"`
	Path     string `toml:"path"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *MetricsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites fields from overlay. Disabled always applies.
func (c *MetricsConfig) Merge(overlay *MetricsConfig) {
	c.Disabled = overlay.Disabled
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
}

func (c *MetricsConfig) loadDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
}

func (c *MetricsConfig) loadEnv() {
	if v := os.Getenv(EnvMetricsDisabled); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil {
			c.Disabled = disabled
		}
	}
	if v := os.Getenv(EnvMetricsPath); v != "" {
		c.Path = v
	}
}

func (c *MetricsConfig) validate() error {
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /: %s", c.Path)
	}
	return nil
}
