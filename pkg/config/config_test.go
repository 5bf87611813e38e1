// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:50051", cfg.Backend.Address)
	assert.True(t, cfg.Backend.TLS.Enabled)
	assert.Equal(t, 10, cfg.Pool.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.Pool.IdleTimeout.Std())
	assert.Equal(t, 5*time.Second, cfg.Pool.ConnectTimeout.Std())
	assert.Equal(t, 10*time.Second, cfg.Pool.RequestTimeout.Std())
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.Cooldown.Std())
	assert.Equal(t, 3, cfg.Breaker.HalfOpenMaxCalls)
	assert.InDelta(t, 0.6, cfg.Breaker.SuccessThreshold, 1e-9)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
backend:
  address: backend.internal:443
  tls:
    enabled: true
    ca_file: /etc/supacrypt/ca.pem
pool:
  max_connections: 4
  idle_timeout: 15s
  connect_timeout: 2s
breaker:
  failure_threshold: 2
  cooldown: 10s
ratelimit:
  enabled: true
  requests_per_second: 50
logging:
  debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "backend.internal:443", cfg.Backend.Address)
	assert.Equal(t, "/etc/supacrypt/ca.pem", cfg.Backend.TLS.CAFile)
	assert.Equal(t, 4, cfg.Pool.MaxConnections)
	assert.Equal(t, 15*time.Second, cfg.Pool.IdleTimeout.Std())
	assert.Equal(t, 2*time.Second, cfg.Pool.ConnectTimeout.Std())
	assert.Equal(t, 2, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.Breaker.Cooldown.Std())
	assert.True(t, cfg.RateLimit.Enabled)
	assert.InDelta(t, 50.0, cfg.RateLimit.RequestsPerSecond, 1e-9)
	assert.True(t, cfg.Logging.Debug)

	// Sections the file omits keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Pool.RequestTimeout.Std())
	assert.Equal(t, 3, cfg.Breaker.HalfOpenMaxCalls)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAddress, cfg.Backend.Address)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SUPACRYPT_BACKEND_ADDRESS", "env.internal:50052")
	t.Setenv("SUPACRYPT_TLS_ENABLED", "false")
	t.Setenv("SUPACRYPT_MAX_CONNECTIONS", "7")
	t.Setenv("SUPACRYPT_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env.internal:50052", cfg.Backend.Address)
	assert.False(t, cfg.Backend.TLS.Enabled)
	assert.Equal(t, 7, cfg.Pool.MaxConnections)
	assert.True(t, cfg.Logging.Debug)
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`1m30s`), &d))
	assert.Equal(t, 90*time.Second, d.Std())

	assert.Error(t, yaml.Unmarshal([]byte(`not-a-duration`), &d))
}

func TestDurationMarshal(t *testing.T) {
	out, err := yaml.Marshal(Duration(45 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, "45s\n", string(out))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative max connections", func(c *Config) { c.Pool.MaxConnections = -1 }},
		{"negative failure threshold", func(c *Config) { c.Breaker.FailureThreshold = -2 }},
		{"success threshold above one", func(c *Config) { c.Breaker.SuccessThreshold = 1.5 }},
		{"ratelimit enabled without rate", func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.RequestsPerSecond = 0
		}},
		{"cert without key", func(c *Config) { c.Backend.TLS.CertFile = "/tmp/cert.pem" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultAddress, cfg.Backend.Address)
	assert.Equal(t, DefaultMaxConnections, cfg.Pool.MaxConnections)
	assert.Equal(t, DefaultCooldown, cfg.Breaker.Cooldown.Std())
	assert.Equal(t, DefaultRetryMaxAttempts, cfg.Retry.MaxAttempts)
}
