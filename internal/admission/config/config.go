// Package config provides startup configuration for the admission
// subsystem. Configuration is loaded once at startup from defaults, an
// optional YAML file, and environment overrides, then validated; it is
// never mutated at runtime.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/core"
)

// Backend names for the counter store.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDisabled = "disabled"
)

// Config captures runtime settings.
type Config struct {
	Service string        `yaml:"service"`
	Logging LoggingConfig `yaml:"logging"`
	HTTP    HTTPConfig    `yaml:"http"`
	Admin   AdminConfig   `yaml:"admin"`
	Store   StoreConfig   `yaml:"store"`
	Breaker BreakerConfig `yaml:"breaker"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr"`
	ReadTimeoutMS  int64  `yaml:"read_timeout_ms"`
	WriteTimeoutMS int64  `yaml:"write_timeout_ms"`
	IdleTimeoutMS  int64  `yaml:"idle_timeout_ms"`
	DrainTimeoutMS int64  `yaml:"drain_timeout_ms"`
}

// AdminConfig configures the operational endpoints.
type AdminConfig struct {
	AuthEnabled bool   `yaml:"auth_enabled"`
	Token       string `yaml:"token"`
}

// StoreConfig selects and configures the counter store backend.
type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the shared store connection.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TimeoutMS int64  `yaml:"timeout_ms"`
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int64 `yaml:"failure_threshold"`
	ResetTimeoutMS   int64 `yaml:"reset_timeout_ms"`
	HalfOpenProbes   int64 `yaml:"half_open_probes"`
}

// LimitsConfig configures policies and limit behavior.
type LimitsConfig struct {
	DefaultTTLSeconds int64          `yaml:"default_ttl_seconds"`
	DefaultLimit      int64          `yaml:"default_limit"`
	BlockSeconds      int64          `yaml:"block_seconds"`
	Bypass            bool           `yaml:"bypass"`
	Policies          []PolicyConfig `yaml:"policies"`
}

// PolicyConfig is one policy table entry.
type PolicyConfig struct {
	Service     string `yaml:"service"`
	Endpoint    string `yaml:"endpoint"`
	PathPattern string `yaml:"path_pattern"`
	Method      string `yaml:"method"`
	TTLSeconds  int64  `yaml:"ttl_seconds"`
	Limit       int64  `yaml:"limit"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Service: "gateway",
		Logging: LoggingConfig{Level: "info"},
		HTTP: HTTPConfig{
			Enabled:        true,
			Addr:           ":8080",
			ReadTimeoutMS:  5000,
			WriteTimeoutMS: 10000,
			IdleTimeoutMS:  60000,
			DrainTimeoutMS: 5000,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "admission",
				TimeoutMS: 200,
			},
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			ResetTimeoutMS:   1000,
			HalfOpenProbes:   1,
		},
		Limits: LimitsConfig{
			DefaultTTLSeconds: 60,
			DefaultLimit:      10,
			BlockSeconds:      0,
		},
	}
}

// Load builds the configuration from defaults, an optional file, and
// environment overrides, then validates it.
func Load(path string, environ []string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := applyEnvOverrides(cfg, environ); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. Any failure here is fatal at
// startup.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is required")
	}
	if c.Service == "" {
		return errors.New("service name is required")
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return errors.New("http listen address is required")
	}
	if c.Admin.AuthEnabled && c.Admin.Token == "" {
		return errors.New("admin token is required when admin auth is enabled")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendDisabled:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("redis address is required")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Breaker.FailureThreshold <= 0 {
		return errors.New("breaker failure threshold must be positive")
	}
	if c.Breaker.ResetTimeoutMS <= 0 {
		return errors.New("breaker reset timeout must be positive")
	}
	if c.Breaker.HalfOpenProbes <= 0 {
		return errors.New("breaker half open probes must be positive")
	}
	if c.Limits.DefaultTTLSeconds <= 0 {
		return errors.New("default ttl must be positive")
	}
	if c.Limits.DefaultLimit <= 0 {
		return errors.New("default limit must be positive")
	}
	if c.Limits.BlockSeconds < 0 {
		return errors.New("block seconds must not be negative")
	}
	for i := range c.Limits.Policies {
		policy := &c.Limits.Policies[i]
		if policy.TTLSeconds <= 0 {
			return fmt.Errorf("policy %d: ttl must be positive", i)
		}
		if policy.Limit <= 0 {
			return fmt.Errorf("policy %d: limit must be positive", i)
		}
	}
	return nil
}

// PolicyRules converts configured policies to table rules plus the
// default fallback policy.
func (c *Config) PolicyRules() ([]core.PolicyRule, core.Policy) {
	rules := make([]core.PolicyRule, 0, len(c.Limits.Policies))
	for _, policy := range c.Limits.Policies {
		rules = append(rules, core.PolicyRule{
			Service:     policy.Service,
			Endpoint:    policy.Endpoint,
			PathPattern: policy.PathPattern,
			Method:      policy.Method,
			Policy: core.Policy{
				Window: time.Duration(policy.TTLSeconds) * time.Second,
				Limit:  policy.Limit,
			},
		})
	}
	fallback := core.Policy{
		Window: time.Duration(c.Limits.DefaultTTLSeconds) * time.Second,
		Limit:  c.Limits.DefaultLimit,
	}
	return rules, fallback
}

// BreakerOptions converts breaker settings to core options.
func (c *Config) BreakerOptions() core.CircuitOptions {
	return core.CircuitOptions{
		FailureThreshold: c.Breaker.FailureThreshold,
		ResetTimeout:     time.Duration(c.Breaker.ResetTimeoutMS) * time.Millisecond,
		HalfOpenProbes:   c.Breaker.HalfOpenProbes,
	}
}

// BlockDuration returns the configured block duration.
func (c *Config) BlockDuration() time.Duration {
	return time.Duration(c.Limits.BlockSeconds) * time.Second
}
