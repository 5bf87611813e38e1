// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// Package ratelimit provides the optional client-side outbound throttle.
// A single token bucket covers the whole process: every host invoking
// this provider shares the backend's quota, so throttling per call site
// would not protect the backend.
package ratelimit

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
)

// Limiter throttles outbound backend requests with a token bucket.
// A disabled limiter admits every request.
type Limiter struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
	enabled bool
	rejects uint64
}

// Config holds throttle settings.
type Config struct {
	// Enabled controls whether the throttle is active.
	Enabled bool

	// RequestsPerSecond sets the sustained outbound rate.
	RequestsPerSecond float64

	// Burst allows short bursts above the sustained rate. If not set,
	// defaults to the ceiling of RequestsPerSecond, minimum 1.
	Burst int
}

// New creates a limiter from config. A nil config disables throttling.
func New(config *Config) *Limiter {
	if config == nil || !config.Enabled {
		return &Limiter{}
	}

	burst := config.Burst
	if burst == 0 {
		burst = int(config.RequestsPerSecond)
		if float64(burst) < config.RequestsPerSecond {
			burst++
		}
	}
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst),
		enabled: true,
	}
}

// Allow reports whether an outbound request may proceed now. Requests
// are never queued; a saturated bucket fails the call immediately so
// the host sees the same resource exhaustion code as a full pool.
func (l *Limiter) Allow() error {
	if !l.enabled {
		return nil
	}
	if l.limiter.Allow() {
		return nil
	}
	l.mu.Lock()
	l.rejects++
	l.mu.Unlock()
	return fmt.Errorf("%w: outbound rate limit exceeded", hosterr.ErrPoolExhausted)
}

// IsEnabled returns whether throttling is enabled.
func (l *Limiter) IsEnabled() bool {
	return l.enabled
}

// Stats returns current throttle statistics.
func (l *Limiter) Stats() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := map[string]any{
		"enabled": l.enabled,
		"rejects": l.rejects,
	}
	if l.enabled {
		stats["rate_per_sec"] = float64(l.limiter.Limit())
		stats["burst"] = l.limiter.Burst()
	}
	return stats
}
