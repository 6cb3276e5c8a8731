// Package config loads router configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML representation of a router setup.
type Config struct {
	Providers []ProviderConfig `yaml:"providers"`
	Routing   RoutingConfig    `yaml:"routing"`
	Cache     CacheConfig      `yaml:"cache"`
	Health    HealthConfig     `yaml:"health"`
	Cost      CostConfig       `yaml:"cost"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ProviderConfig defines a single provider registration.
type ProviderConfig struct {
	Name            string        `yaml:"name"`
	Kind            string        `yaml:"kind"`
	Priority        int           `yaml:"priority"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	InputCostPer1K  float64       `yaml:"input_cost_per_1k"`
	OutputCostPer1K float64       `yaml:"output_cost_per_1k"`
}

// RoutingConfig contains strategy and retry settings.
type RoutingConfig struct {
	Strategy   string        `yaml:"strategy"` // priority, cost_optimized, round_robin
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CacheConfig contains completion cache settings.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"max_size"`
}

// HealthConfig contains health monitoring settings.
type HealthConfig struct {
	Enabled          bool          `yaml:"enabled"`
	ProbeInterval    time.Duration `yaml:"probe_interval"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
}

// CostConfig contains cost tracking settings.
type CostConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Retention time.Duration `yaml:"retention"` // 0 keeps every event
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config invariants that would otherwise surface as
// confusing runtime errors.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider with empty name")
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	if c.Cache.MaxSize < 0 {
		return fmt.Errorf("cache max_size must be >= 0")
	}
	if c.Routing.MaxRetries < 0 {
		return fmt.Errorf("routing max_retries must be >= 0")
	}
	return nil
}
