// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
)

// fakeClock drives the breaker's cooldown deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(t *testing.T, cfg Config) (*Breaker, *fakeClock) {
	t.Helper()
	b := New(cfg, nil)
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b.SetClock(clock.Now)
	return b, clock
}

func TestStartsClosed(t *testing.T) {
	b, _ := newTestBreaker(t, Config{})
	assert.Equal(t, StateClosed, b.CurrentState())
	assert.NoError(t, b.Allow())
}

func TestOpensAtFailureThreshold(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 3})

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.OnFailure()
		assert.Equal(t, StateClosed, b.CurrentState())
	}

	require.NoError(t, b.Allow())
	b.OnFailure()
	assert.Equal(t, StateOpen, b.CurrentState())

	err := b.Allow()
	assert.ErrorIs(t, err, hosterr.ErrCircuitOpen)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 3})

	b.OnFailure()
	b.OnFailure()
	b.OnSuccess()
	b.OnFailure()
	b.OnFailure()
	assert.Equal(t, StateClosed, b.CurrentState())

	b.OnFailure()
	assert.Equal(t, StateOpen, b.CurrentState())
}

func TestCooldownAdmitsProbes(t *testing.T) {
	b, clock := newTestBreaker(t, Config{
		FailureThreshold: 1,
		Cooldown:         60 * time.Second,
		HalfOpenMaxCalls: 3,
	})

	b.OnFailure()
	require.Equal(t, StateOpen, b.CurrentState())
	require.ErrorIs(t, b.Allow(), hosterr.ErrCircuitOpen)

	clock.Advance(59 * time.Second)
	require.ErrorIs(t, b.Allow(), hosterr.ErrCircuitOpen)

	clock.Advance(time.Second)
	assert.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.CurrentState())
}

func TestHalfOpenProbeLimit(t *testing.T) {
	b, clock := newTestBreaker(t, Config{
		FailureThreshold: 1,
		Cooldown:         time.Second,
		HalfOpenMaxCalls: 3,
	})
	b.OnFailure()
	clock.Advance(time.Second)

	// The cooldown transition admits the first probe.
	require.NoError(t, b.Allow())
	require.NoError(t, b.Allow())
	require.NoError(t, b.Allow())

	err := b.Allow()
	assert.ErrorIs(t, err, hosterr.ErrCircuitOpen)
}

func TestHalfOpenClosesOnSuccessRatio(t *testing.T) {
	b, clock := newTestBreaker(t, Config{
		FailureThreshold: 1,
		Cooldown:         time.Second,
		HalfOpenMaxCalls: 3,
		SuccessThreshold: 0.6,
	})
	b.OnFailure()
	clock.Advance(time.Second)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Allow())
	}
	// 3 of 3 probes succeed, above the 0.6 ratio.
	b.OnSuccess()
	b.OnSuccess()
	assert.Equal(t, StateHalfOpen, b.CurrentState())
	b.OnSuccess()
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestHalfOpenFailureReopensImmediately(t *testing.T) {
	b, clock := newTestBreaker(t, Config{
		FailureThreshold: 1,
		Cooldown:         time.Second,
		HalfOpenMaxCalls: 3,
	})
	b.OnFailure()
	clock.Advance(time.Second)

	require.NoError(t, b.Allow())
	b.OnFailure()
	assert.Equal(t, StateOpen, b.CurrentState())

	// The fresh open period starts a new cooldown.
	assert.ErrorIs(t, b.Allow(), hosterr.ErrCircuitOpen)
	clock.Advance(time.Second)
	assert.NoError(t, b.Allow())
}

func TestCancelReleasesProbeSlotWithoutResult(t *testing.T) {
	b, clock := newTestBreaker(t, Config{
		FailureThreshold: 1,
		Cooldown:         time.Second,
		HalfOpenMaxCalls: 1,
	})
	b.OnFailure()
	clock.Advance(time.Second)

	// The admitted probe dies locally before reaching the backend. Its
	// slot is withdrawn and no result is recorded, so the circuit must
	// not close.
	require.NoError(t, b.Allow())
	b.Cancel()
	assert.Equal(t, StateHalfOpen, b.CurrentState())

	// The freed slot admits a real probe, whose success closes.
	require.NoError(t, b.Allow())
	b.OnSuccess()
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestCancelKeepsClosedFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 2})

	require.NoError(t, b.Allow())
	b.OnFailure()

	// A withdrawn call says nothing about backend health; the streak
	// of one failure stands.
	require.NoError(t, b.Allow())
	b.Cancel()
	assert.Equal(t, StateClosed, b.CurrentState())

	require.NoError(t, b.Allow())
	b.OnFailure()
	assert.Equal(t, StateOpen, b.CurrentState())
}

func TestRejectedCallsDoNotCount(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 2})

	b.OnFailure()
	b.OnFailure()
	require.Equal(t, StateOpen, b.CurrentState())

	// Many rejected calls must not disturb the open state or its
	// cooldown bookkeeping.
	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, b.Allow(), hosterr.ErrCircuitOpen)
	}
	assert.Equal(t, StateOpen, b.CurrentState())
}

func TestReset(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 1})
	b.OnFailure()
	require.Equal(t, StateOpen, b.CurrentState())

	b.Reset()
	assert.Equal(t, StateClosed, b.CurrentState())
	assert.NoError(t, b.Allow())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
