// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// Package breaker implements the circuit breaker guarding the backend.
//
// The breaker sits between the gateway and the connection pool: a
// rejected call never dials, never consumes a pool slot, and fails in
// microseconds instead of burning a connect timeout against a dead
// backend. State is shared across all provider contexts in the process
// because they all target the same backend.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
	"github.com/ludicrypt/supacrypt-core/pkg/logging"
	"github.com/ludicrypt/supacrypt-core/pkg/metrics"
)

// State is the breaker's position.
type State int

const (
	// StateClosed admits every call.
	StateClosed State = iota
	// StateOpen rejects every call until the cooldown elapses.
	StateOpen
	// StateHalfOpen admits a bounded number of probe calls.
	StateHalfOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config sets the breaker thresholds.
type Config struct {
	// FailureThreshold is the consecutive failure count that trips the
	// breaker open.
	FailureThreshold int

	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration

	// HalfOpenMaxCalls is the number of probe calls admitted half-open.
	HalfOpenMaxCalls int

	// SuccessThreshold is the probe success ratio, in (0, 1], required
	// to close.
	SuccessThreshold float64
}

// Breaker is a consecutive-failure circuit breaker. All methods are
// safe for concurrent use.
type Breaker struct {
	cfg Config
	log *logging.Logger

	// now is swapped out by tests to drive the cooldown clock.
	now func() time.Time

	mu           sync.Mutex
	state        State
	failures     int
	openedAt     time.Time
	probesInUse  int
	probeResults []bool
}

// New creates a closed breaker.
func New(cfg Config, log *logging.Logger) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 3
	}
	if cfg.SuccessThreshold <= 0 || cfg.SuccessThreshold > 1 {
		cfg.SuccessThreshold = 0.6
	}
	if log == nil {
		log = logging.DefaultLogger()
	}
	return &Breaker{
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		state: StateClosed,
	}
}

// SetClock overrides the breaker's time source. Tests only.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Allow reports whether a call may proceed. When the cooldown of an
// open breaker has elapsed, the call becomes a half-open probe. A
// rejection counts toward no failure statistics; the caller must not
// report OnSuccess or OnFailure for a rejected call.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
			b.transition(StateHalfOpen)
			b.probesInUse = 1
			b.probeResults = b.probeResults[:0]
			return nil
		}
		metrics.BreakerRejectsTotal.Inc()
		return fmt.Errorf("%w: retry after %s", hosterr.ErrCircuitOpen,
			b.cfg.Cooldown-b.now().Sub(b.openedAt))

	case StateHalfOpen:
		if b.probesInUse >= b.cfg.HalfOpenMaxCalls {
			metrics.BreakerRejectsTotal.Inc()
			return fmt.Errorf("%w: half-open probe limit reached", hosterr.ErrCircuitOpen)
		}
		b.probesInUse++
		return nil

	default:
		metrics.BreakerRejectsTotal.Inc()
		return fmt.Errorf("%w: unknown state %v", hosterr.ErrCircuitOpen, b.state)
	}
}

// OnSuccess records a successful call admitted by Allow.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.probeResults = append(b.probeResults, true)
		b.evaluateProbes()
	}
}

// OnFailure records a failed call admitted by Allow. Only failures that
// indicate backend trouble should be reported; domain rejections such
// as a bad signature are successes from the breaker's point of view.
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	case StateHalfOpen:
		// Any probe failure reopens immediately; waiting for the rest of
		// the probe window only delays the verdict.
		b.probeResults = append(b.probeResults, false)
		b.trip()
	}
}

// Cancel withdraws a call admitted by Allow that never reached the
// backend, such as a pool-exhausted checkout or a caller cancellation
// before dialing. A half-open probe slot is released without recording
// a result, and the closed failure count is untouched: the call says
// nothing about backend health either way.
func (b *Breaker) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen && b.probesInUse > len(b.probeResults) {
		b.probesInUse--
	}
}

// evaluateProbes closes or reopens once every admitted probe has
// reported. Called with b.mu held.
func (b *Breaker) evaluateProbes() {
	if len(b.probeResults) < b.cfg.HalfOpenMaxCalls {
		return
	}
	succeeded := 0
	for _, ok := range b.probeResults {
		if ok {
			succeeded++
		}
	}
	ratio := float64(succeeded) / float64(len(b.probeResults))
	if ratio >= b.cfg.SuccessThreshold {
		b.transition(StateClosed)
		b.failures = 0
	} else {
		b.trip()
	}
	b.probesInUse = 0
	b.probeResults = b.probeResults[:0]
}

// trip opens the breaker and starts the cooldown. Called with b.mu held.
func (b *Breaker) trip() {
	b.transition(StateOpen)
	b.openedAt = b.now()
	b.failures = 0
	b.probesInUse = 0
	b.probeResults = b.probeResults[:0]
}

// transition moves to state and updates metrics. Called with b.mu held.
func (b *Breaker) transition(state State) {
	if b.state == state {
		return
	}
	b.log.Warn("breaker: state change", "from", b.state.String(), "to", state.String())
	b.state = state
	metrics.BreakerState.Set(float64(state))
	metrics.BreakerTransitionsTotal.WithLabelValues(state.String()).Inc()
}

// CurrentState returns the breaker's position. An elapsed cooldown is
// not reflected until the next Allow, which performs the transition.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.failures = 0
	b.probesInUse = 0
	b.probeResults = b.probeResults[:0]
}
