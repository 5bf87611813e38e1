// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// Package config loads and validates the supacrypt-core configuration.
// Configuration is an immutable input: it is read once at construction
// time from a YAML file plus environment overrides, and components hold
// the resulting values for their lifetime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values. Pool and breaker defaults match the deployed backend's
// service limits; change them in lockstep with operations.
const (
	DefaultAddress          = "localhost:50051"
	DefaultMaxConnections   = 10
	DefaultIdleTimeout      = 30 * time.Second
	DefaultConnectTimeout   = 5 * time.Second
	DefaultRequestTimeout   = 10 * time.Second
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
	DefaultHalfOpenMaxCalls = 3
	DefaultSuccessThreshold = 0.6
	DefaultRetryMaxAttempts = 3
	DefaultRetryInterval    = 100 * time.Millisecond
)

// Duration wraps time.Duration with YAML support for values like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete client configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Pool      PoolConfig      `yaml:"pool"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BackendConfig locates and authenticates to the backend service.
type BackendConfig struct {
	Address string    `yaml:"address"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig controls channel security. TLS is on by default; disabling
// it is only meant for tests against an in-process backend.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled"`
	CAFile             string `yaml:"ca_file"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	ServerName         string `yaml:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxConnections int      `yaml:"max_connections"`
	IdleTimeout    Duration `yaml:"idle_timeout"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

// BreakerConfig sets the circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold int      `yaml:"failure_threshold"`
	Cooldown         Duration `yaml:"cooldown"`
	HalfOpenMaxCalls int      `yaml:"half_open_max_calls"`
	SuccessThreshold float64  `yaml:"success_threshold"`
}

// RetryConfig controls the gateway's retry policy for idempotent reads.
type RetryConfig struct {
	Enabled         bool     `yaml:"enabled"`
	MaxAttempts     int      `yaml:"max_attempts"`
	InitialInterval Duration `yaml:"initial_interval"`
}

// RateLimitConfig controls the optional client-side outbound throttle.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns a configuration with every default applied. TLS is
// enabled but carries no certificate paths; callers must fill those in
// or disable TLS explicitly.
func Default() *Config {
	cfg := &Config{}
	cfg.Backend.Address = DefaultAddress
	cfg.Backend.TLS.Enabled = true
	cfg.Pool.MaxConnections = DefaultMaxConnections
	cfg.Pool.IdleTimeout = Duration(DefaultIdleTimeout)
	cfg.Pool.ConnectTimeout = Duration(DefaultConnectTimeout)
	cfg.Pool.RequestTimeout = Duration(DefaultRequestTimeout)
	cfg.Breaker.FailureThreshold = DefaultFailureThreshold
	cfg.Breaker.Cooldown = Duration(DefaultCooldown)
	cfg.Breaker.HalfOpenMaxCalls = DefaultHalfOpenMaxCalls
	cfg.Breaker.SuccessThreshold = DefaultSuccessThreshold
	cfg.Retry.MaxAttempts = DefaultRetryMaxAttempts
	cfg.Retry.InitialInterval = Duration(DefaultRetryInterval)
	return cfg
}

// Load reads the YAML file at path, applies environment overrides, and
// validates the result. An empty path skips the file and uses defaults
// plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays SUPACRYPT_* environment variables. Only settings an
// operator plausibly flips per-host are exposed this way.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SUPACRYPT_BACKEND_ADDRESS"); v != "" {
		cfg.Backend.Address = v
	}
	if v := os.Getenv("SUPACRYPT_TLS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Backend.TLS.Enabled = b
		}
	}
	if v := os.Getenv("SUPACRYPT_TLS_CA_FILE"); v != "" {
		cfg.Backend.TLS.CAFile = v
	}
	if v := os.Getenv("SUPACRYPT_TLS_CERT_FILE"); v != "" {
		cfg.Backend.TLS.CertFile = v
	}
	if v := os.Getenv("SUPACRYPT_TLS_KEY_FILE"); v != "" {
		cfg.Backend.TLS.KeyFile = v
	}
	if v := os.Getenv("SUPACRYPT_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pool.MaxConnections = n
		}
	}
	if v := os.Getenv("SUPACRYPT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.Debug = b
		}
	}
}

// Validate checks ranges and fills any zero values with defaults.
func (c *Config) Validate() error {
	if c.Backend.Address == "" {
		c.Backend.Address = DefaultAddress
	}
	if c.Pool.MaxConnections == 0 {
		c.Pool.MaxConnections = DefaultMaxConnections
	}
	if c.Pool.MaxConnections < 0 {
		return fmt.Errorf("config: pool.max_connections must be positive, got %d", c.Pool.MaxConnections)
	}
	if c.Pool.IdleTimeout <= 0 {
		c.Pool.IdleTimeout = Duration(DefaultIdleTimeout)
	}
	if c.Pool.ConnectTimeout <= 0 {
		c.Pool.ConnectTimeout = Duration(DefaultConnectTimeout)
	}
	if c.Pool.RequestTimeout <= 0 {
		c.Pool.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = DefaultFailureThreshold
	}
	if c.Breaker.FailureThreshold < 0 {
		return fmt.Errorf("config: breaker.failure_threshold must be positive, got %d", c.Breaker.FailureThreshold)
	}
	if c.Breaker.Cooldown <= 0 {
		c.Breaker.Cooldown = Duration(DefaultCooldown)
	}
	if c.Breaker.HalfOpenMaxCalls <= 0 {
		c.Breaker.HalfOpenMaxCalls = DefaultHalfOpenMaxCalls
	}
	if c.Breaker.SuccessThreshold == 0 {
		c.Breaker.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.Breaker.SuccessThreshold < 0 || c.Breaker.SuccessThreshold > 1 {
		return fmt.Errorf("config: breaker.success_threshold must be in (0, 1], got %v", c.Breaker.SuccessThreshold)
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if c.Retry.InitialInterval <= 0 {
		c.Retry.InitialInterval = Duration(DefaultRetryInterval)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("config: ratelimit.requests_per_second must be positive when enabled")
	}
	if c.Backend.TLS.Enabled {
		// Client cert and key travel together.
		if (c.Backend.TLS.CertFile == "") != (c.Backend.TLS.KeyFile == "") {
			return fmt.Errorf("config: tls.cert_file and tls.key_file must both be set for mutual TLS")
		}
	}
	return nil
}
