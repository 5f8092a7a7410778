package config

import (
	"fmt"
	"os"
	"time"
)

const (
	EnvPolicyPath           = "RACKSMITH_POLICY_PATH"
	EnvPolicyReloadInterval = "RACKSMITH_POLICY_RELOAD_INTERVAL"
)

// PolicyConfig locates the compliance policy document. An empty Path
// selects the built-in policy versions.
type PolicyConfig struct {
	Path           string `toml:"path"`
	ReloadInterval string `toml:"reload_interval"`
}

// ReloadIntervalDuration returns ReloadInterval as a time.Duration.
func (c *PolicyConfig) ReloadIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReloadInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PolicyConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PolicyConfig) Merge(overlay *PolicyConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.ReloadInterval != "" {
		c.ReloadInterval = overlay.ReloadInterval
	}
}

func (c *PolicyConfig) loadDefaults() {
	if c.ReloadInterval == "" {
		c.ReloadInterval = "30s"
	}
}

func (c *PolicyConfig) loadEnv() {
	if v := os.Getenv(EnvPolicyPath); v != "" {
		c.Path = v
	}
	if v := os.Getenv(EnvPolicyReloadInterval); v != "" {
		c.ReloadInterval = v
	}
}

func (c *PolicyConfig) validate() error {
	d, err := time.ParseDuration(c.ReloadInterval)
	if err != nil {
		return fmt.Errorf("invalid reload_interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("reload_interval must be positive")
	}
	return nil
}
