package config

import (
	"fmt"
	"os"
	"time"

	"github.com/JaimeStill/racksmith/pkg/database"
	"github.com/JaimeStill/racksmith/pkg/storage"
	"github.com/pelletier/go-toml/v2"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvRacksmithEnv             = "RACKSMITH_ENV"
	EnvRacksmithShutdownTimeout = "RACKSMITH_SHUTDOWN_TIMEOUT"
	EnvRacksmithVersion         = "RACKSMITH_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "RACKSMITH_DB_HOST",
	Port:            "RACKSMITH_DB_PORT",
	Name:            "RACKSMITH_DB_NAME",
	User:            "RACKSMITH_DB_USER",
	Password:        "RACKSMITH_DB_PASSWORD",
	SSLMode:         "RACKSMITH_DB_SSL_MODE",
	ApplicationName: "RACKSMITH_DB_APPLICATION_NAME",
	MaxOpenConns:    "RACKSMITH_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "RACKSMITH_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "RACKSMITH_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "RACKSMITH_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "RACKSMITH_STORAGE_PROVIDER",
	ContainerName:    "RACKSMITH_STORAGE_CONTAINER_NAME",
	ConnectionString: "RACKSMITH_STORAGE_CONNECTION_STRING",
	AccountURL:       "RACKSMITH_STORAGE_ACCOUNT_URL",
	Bucket:           "RACKSMITH_STORAGE_BUCKET",
	Region:           "RACKSMITH_STORAGE_REGION",
	Endpoint:         "RACKSMITH_STORAGE_ENDPOINT",
	UsePathStyle:     "RACKSMITH_STORAGE_USE_PATH_STYLE",
	AccessKey:        "RACKSMITH_STORAGE_ACCESS_KEY",
	SecretKey:        "RACKSMITH_STORAGE_SECRET_KEY",
	Root:             "RACKSMITH_STORAGE_ROOT",
}

// Config is the root configuration for the racksmith service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	Analysis        AnalysisConfig  `toml:"analysis"`
	Scheduler       SchedulerConfig `toml:"scheduler"`
	Policy          PolicyConfig    `toml:"policy"`
	Metrics         MetricsConfig   `toml:"metrics"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the RACKSMITH_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvRacksmithEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Analysis.Merge(&overlay.Analysis)
	c.Scheduler.Merge(&overlay.Scheduler)
	c.Policy.Merge(&overlay.Policy)
	c.Metrics.Merge(&overlay.Metrics)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Analysis.Finalize(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := c.Scheduler.Finalize(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Policy.Finalize(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if err := c.Metrics.Finalize(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvRacksmithShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvRacksmithVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvRacksmithEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
