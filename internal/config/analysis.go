package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/racksmith/pkg/adg"
	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/formatting"
)

const (
	EnvAnalysisMaxElementDepth = "RACKSMITH_ANALYSIS_MAX_ELEMENT_DEPTH"
	EnvAnalysisMaxChainDepth   = "RACKSMITH_ANALYSIS_MAX_CHAIN_DEPTH"
	EnvAnalysisMaxDocumentSize = "RACKSMITH_ANALYSIS_MAX_DOCUMENT_SIZE"
	EnvAnalysisMaxNodes        = "RACKSMITH_ANALYSIS_MAX_NODES"
	EnvAnalysisLockTTL         = "RACKSMITH_ANALYSIS_LOCK_TTL"
)

// AnalysisConfig bounds the resources a single rack analysis may consume.
//
// LockTTL is how long a run may go without renewing its rack lock. Runs
// renew between pipeline stages, so the value must exceed the slowest
// single stage (a document load from remote storage), not the whole run.
type AnalysisConfig struct {
	MaxElementDepth int    `toml:"max_element_depth"`
	MaxChainDepth   int    `toml:"max_chain_depth"`
	MaxDocumentSize string `toml:"max_document_size"`
	MaxNodes        int    `toml:"max_nodes"`
	LockTTL         string `toml:"lock_ttl"`
}

// Limits returns the document reader limits.
func (c *AnalysisConfig) Limits() adg.Limits {
	size, _ := formatting.ParseBytes(c.MaxDocumentSize)
	return adg.Limits{
		MaxDepth: c.MaxElementDepth,
		MaxBytes: size,
		MaxNodes: c.MaxNodes,
	}
}

// ChainOptions returns the chain extraction options.
func (c *AnalysisConfig) ChainOptions() chains.Options {
	return chains.Options{MaxDepth: c.MaxChainDepth}
}

// LockTTLDuration returns LockTTL as a time.Duration.
func (c *AnalysisConfig) LockTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.LockTTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AnalysisConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AnalysisConfig) Merge(overlay *AnalysisConfig) {
	if overlay.MaxElementDepth != 0 {
		c.MaxElementDepth = overlay.MaxElementDepth
	}
	if overlay.MaxChainDepth != 0 {
		c.MaxChainDepth = overlay.MaxChainDepth
	}
	if overlay.MaxDocumentSize != "" {
		c.MaxDocumentSize = overlay.MaxDocumentSize
	}
	if overlay.MaxNodes != 0 {
		c.MaxNodes = overlay.MaxNodes
	}
	if overlay.LockTTL != "" {
		c.LockTTL = overlay.LockTTL
	}
}

func (c *AnalysisConfig) loadDefaults() {
	if c.MaxElementDepth <= 0 {
		c.MaxElementDepth = adg.DefaultMaxDepth
	}
	if c.MaxChainDepth <= 0 {
		c.MaxChainDepth = chains.DefaultMaxDepth
	}
	if c.MaxDocumentSize == "" {
		c.MaxDocumentSize = "64MB"
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = adg.DefaultMaxNodes
	}
	if c.LockTTL == "" {
		c.LockTTL = "5m"
	}
}

func (c *AnalysisConfig) loadEnv() {
	if v := os.Getenv(EnvAnalysisMaxElementDepth); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxElementDepth = n
		}
	}
	if v := os.Getenv(EnvAnalysisMaxChainDepth); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxChainDepth = n
		}
	}
	if v := os.Getenv(EnvAnalysisMaxDocumentSize); v != "" {
		c.MaxDocumentSize = v
	}
	if v := os.Getenv(EnvAnalysisMaxNodes); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxNodes = n
		}
	}
	if v := os.Getenv(EnvAnalysisLockTTL); v != "" {
		c.LockTTL = v
	}
}

func (c *AnalysisConfig) validate() error {
	if c.MaxElementDepth < 1 {
		return fmt.Errorf("max_element_depth must be positive")
	}
	if c.MaxChainDepth < 1 {
		return fmt.Errorf("max_chain_depth must be positive")
	}
	if c.MaxChainDepth > c.MaxElementDepth {
		return fmt.Errorf("max_chain_depth cannot exceed max_element_depth")
	}
	size, err := formatting.ParseBytes(c.MaxDocumentSize)
	if err != nil {
		return fmt.Errorf("invalid max_document_size: %w", err)
	}
	if size < 1 {
		return fmt.Errorf("max_document_size must be positive")
	}
	if c.MaxNodes < 1 {
		return fmt.Errorf("max_nodes must be positive")
	}
	d, err := time.ParseDuration(c.LockTTL)
	if err != nil {
		return fmt.Errorf("invalid lock_ttl: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("lock_ttl must be positive")
	}
	return nil
}
