package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	EnvSchedulerWorkers          = "RACKSMITH_SCHEDULER_WORKERS"
	EnvSchedulerQueueCapacity    = "RACKSMITH_SCHEDULER_QUEUE_CAPACITY"
	EnvSchedulerMaxBatchSize     = "RACKSMITH_SCHEDULER_MAX_BATCH_SIZE"
	EnvSchedulerActiveLimit      = "RACKSMITH_SCHEDULER_ACTIVE_LIMIT"
	EnvSchedulerAdminActiveLimit = "RACKSMITH_SCHEDULER_ADMIN_ACTIVE_LIMIT"
	EnvSchedulerWebhookURL       = "RACKSMITH_SCHEDULER_WEBHOOK_URL"
	EnvSchedulerWebhookTimeout   = "RACKSMITH_SCHEDULER_WEBHOOK_TIMEOUT"
	EnvSchedulerRetryBackoff     = "RACKSMITH_SCHEDULER_RETRY_BACKOFF"
)

// SchedulerConfig sizes the batch worker pool and its admission limits.
type SchedulerConfig struct {
	Workers          int    `toml:"workers"`
	QueueCapacity    int    `toml:"queue_capacity"`
	MaxBatchSize     int    `toml:"max_batch_size"`
	ActiveLimit      int    `toml:"active_limit"`
	AdminActiveLimit int    `toml:"admin_active_limit"`
	WebhookURL       string `toml:"webhook_url"`
	WebhookTimeout   string `toml:"webhook_timeout"`
	RetryBackoff     string `toml:"retry_backoff"`
}

// WebhookTimeoutDuration returns WebhookTimeout as a time.Duration.
func (c *SchedulerConfig) WebhookTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WebhookTimeout)
	return d
}

// RetryBackoffDuration returns RetryBackoff as a time.Duration.
func (c *SchedulerConfig) RetryBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryBackoff)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *SchedulerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *SchedulerConfig) Merge(overlay *SchedulerConfig) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.QueueCapacity != 0 {
		c.QueueCapacity = overlay.QueueCapacity
	}
	if overlay.MaxBatchSize != 0 {
		c.MaxBatchSize = overlay.MaxBatchSize
	}
	if overlay.ActiveLimit != 0 {
		c.ActiveLimit = overlay.ActiveLimit
	}
	if overlay.AdminActiveLimit != 0 {
		c.AdminActiveLimit = overlay.AdminActiveLimit
	}
	if overlay.WebhookURL != "" {
		c.WebhookURL = overlay.WebhookURL
	}
	if overlay.WebhookTimeout != "" {
		c.WebhookTimeout = overlay.WebhookTimeout
	}
	if overlay.RetryBackoff != "" {
		c.RetryBackoff = overlay.RetryBackoff
	}
}

func (c *SchedulerConfig) loadDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 100
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 10
	}
	if c.ActiveLimit <= 0 {
		c.ActiveLimit = 5
	}
	if c.AdminActiveLimit <= 0 {
		c.AdminActiveLimit = 10
	}
	if c.WebhookTimeout == "" {
		c.WebhookTimeout = "10s"
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = "500ms"
	}
}

func (c *SchedulerConfig) loadEnv() {
	setInt := func(env string, dst *int) {
		if v := os.Getenv(env); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setInt(EnvSchedulerWorkers, &c.Workers)
	setInt(EnvSchedulerQueueCapacity, &c.QueueCapacity)
	setInt(EnvSchedulerMaxBatchSize, &c.MaxBatchSize)
	setInt(EnvSchedulerActiveLimit, &c.ActiveLimit)
	setInt(EnvSchedulerAdminActiveLimit, &c.AdminActiveLimit)

	if v := os.Getenv(EnvSchedulerWebhookURL); v != "" {
		c.WebhookURL = v
	}
	if v := os.Getenv(EnvSchedulerWebhookTimeout); v != "" {
		c.WebhookTimeout = v
	}
	if v := os.Getenv(EnvSchedulerRetryBackoff); v != "" {
		c.RetryBackoff = v
	}
}

func (c *SchedulerConfig) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.MaxBatchSize < 1 || c.MaxBatchSize > 10 {
		return fmt.Errorf("max_batch_size must be between 1 and 10")
	}
	if c.QueueCapacity < c.MaxBatchSize {
		return fmt.Errorf("queue_capacity cannot be smaller than max_batch_size")
	}
	if c.ActiveLimit < 1 || c.AdminActiveLimit < 1 {
		return fmt.Errorf("active limits must be positive")
	}
	if c.WebhookURL != "" {
		u, err := url.Parse(c.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid webhook_url: %s", c.WebhookURL)
		}
	}
	if _, err := time.ParseDuration(c.WebhookTimeout); err != nil {
		return fmt.Errorf("invalid webhook_timeout: %w", err)
	}
	if d, err := time.ParseDuration(c.RetryBackoff); err != nil || d <= 0 {
		return fmt.Errorf("invalid retry_backoff: %s", c.RetryBackoff)
	}
	return nil
}
