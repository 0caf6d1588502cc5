package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the orchestrator's configuration surface (§6): the paths to
// the data files the classifier and safety wrapper load their tables from,
// the audit store's connection string, the per-request deadline, and the
// fallback handler name. Mirrors the teacher's core.Config/core.Option
// functional-options style, minus the HTTP/discovery/AI fields that have
// no home in this core (transport is out of scope per §1).
type Config struct {
	EmergencyPatternsPath string        `yaml:"emergency_patterns_path"`
	HandlerRulesPath      string        `yaml:"handler_rules_path"`
	DisclaimersPath       string        `yaml:"disclaimers_path"`
	ProhibitedPhrasesPath string        `yaml:"prohibited_phrases_path"`
	AuditStoreDSN         string        `yaml:"audit_store_dsn"`
	DefaultDeadlineMS     int           `yaml:"default_deadline_ms"`
	FallbackHandlerName   string        `yaml:"fallback_handler_name"`
}

// DefaultDeadlineDuration returns DefaultDeadlineMS as a time.Duration,
// falling back to DefaultDeadline (30s, §6) when unset.
func (c *Config) DefaultDeadlineDuration() time.Duration {
	if c.DefaultDeadlineMS <= 0 {
		return DefaultDeadline
	}
	return time.Duration(c.DefaultDeadlineMS) * time.Millisecond
}

// Option is a functional option for configuring a Config, matching the
// teacher's core.Option shape.
type Option func(*Config) error

// DefaultConfig returns a Config with every field at its §6 default: no
// data-file overrides (packages fall back to their built-in tables), a
// local "audit.db" SQLite store, a 30s deadline, and "communication" as
// the fallback handler.
func DefaultConfig() *Config {
	return &Config{
		AuditStoreDSN:       "audit.db",
		DefaultDeadlineMS:   int(DefaultDeadline / time.Millisecond),
		FallbackHandlerName: DefaultFallbackHandlerName,
	}
}

// NewConfig builds a Config from DefaultConfig, applying opts in order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("core: apply config option: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML config file at path (following
// pkg/routing/workflow.go's yaml.Unmarshal idiom) layered over
// DefaultConfig, then applies opts as overrides.
func LoadConfigFile(path string, opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("core: read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("core: parse config file %s: %w", path, err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("core: apply config option: %w", err)
		}
	}
	return cfg, nil
}

// WithEmergencyPatternsPath overrides the classifier's emergency-pattern
// data file (§6 emergency_patterns_path).
func WithEmergencyPatternsPath(path string) Option {
	return func(c *Config) error {
		c.EmergencyPatternsPath = path
		return nil
	}
}

// WithHandlerRulesPath overrides the classifier's handler-pattern data file
// (§6 handler_rules_path).
func WithHandlerRulesPath(path string) Option {
	return func(c *Config) error {
		c.HandlerRulesPath = path
		return nil
	}
}

// WithDisclaimersPath overrides the safety wrapper's disclaimer table
// (§6 disclaimers_path).
func WithDisclaimersPath(path string) Option {
	return func(c *Config) error {
		c.DisclaimersPath = path
		return nil
	}
}

// WithProhibitedPhrasesPath overrides the safety wrapper's prohibited-phrase
// list (§6 prohibited_phrases_path).
func WithProhibitedPhrasesPath(path string) Option {
	return func(c *Config) error {
		c.ProhibitedPhrasesPath = path
		return nil
	}
}

// WithAuditStoreDSN overrides the audit store's connection string
// (§6 audit_store_dsn).
func WithAuditStoreDSN(dsn string) Option {
	return func(c *Config) error {
		if dsn == "" {
			return fmt.Errorf("%w: audit store dsn must not be empty", ErrInputInvalid)
		}
		c.AuditStoreDSN = dsn
		return nil
	}
}

// WithDefaultDeadline overrides the per-request deadline (§6
// default_deadline_ms).
func WithDefaultDeadline(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("%w: default deadline must be positive", ErrInputInvalid)
		}
		c.DefaultDeadlineMS = int(d / time.Millisecond)
		return nil
	}
}

// WithFallbackHandlerName overrides the classifier's fallback handler name
// (§6 fallback_handler_name).
func WithFallbackHandlerName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("%w: fallback handler name must not be empty", ErrInputInvalid)
		}
		c.FallbackHandlerName = name
		return nil
	}
}
