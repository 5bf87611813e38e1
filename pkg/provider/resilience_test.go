// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/ludicrypt/supacrypt-core/pkg/breaker"
	"github.com/ludicrypt/supacrypt-core/pkg/config"
	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestBreakerFailsFastWithoutNetworkCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker.FailureThreshold = 2
	p, srv := newTestProvider(t, cfg)
	ctx := context.Background()

	srv.Backend.FailNext(2, codes.Unavailable)
	for i := 0; i < 2; i++ {
		_, err := p.Health(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, hosterr.ErrConnect)
	}
	assert.Equal(t, breaker.StateOpen.String(), p.Stats().BreakerState)

	// Rejections inside the cooldown never touch the wire.
	before := srv.Backend.Calls()
	_, err := p.Health(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, hosterr.ErrCircuitOpen)
	assert.Equal(t, before, srv.Backend.Calls())

	ec, ok := p.LastError()
	require.True(t, ok)
	assert.Equal(t, hosterr.OriginGateway, ec.Origin)
}

func TestBreakerClosesAfterSuccessfulProbes(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker.FailureThreshold = 1
	cfg.Breaker.HalfOpenMaxCalls = 2
	p, srv := newTestProvider(t, cfg)
	ctx := context.Background()

	clock := newManualClock()
	p.gw.breaker.SetClock(clock.Now)

	srv.Backend.FailNext(1, codes.Unavailable)
	_, err := p.Health(ctx)
	require.Error(t, err)
	require.Equal(t, breaker.StateOpen, p.gw.breaker.CurrentState())

	// Still inside the cooldown.
	_, err = p.Health(ctx)
	assert.ErrorIs(t, err, hosterr.ErrCircuitOpen)

	clock.Advance(cfg.Breaker.Cooldown.Std() + time.Second)

	// Probes flow again and the all-success ratio closes the circuit.
	for i := 0; i < cfg.Breaker.HalfOpenMaxCalls; i++ {
		_, err = p.Health(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, breaker.StateClosed, p.gw.breaker.CurrentState())
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker.FailureThreshold = 1
	p, srv := newTestProvider(t, cfg)
	ctx := context.Background()

	clock := newManualClock()
	p.gw.breaker.SetClock(clock.Now)

	srv.Backend.FailNext(1, codes.Unavailable)
	_, err := p.Health(ctx)
	require.Error(t, err)

	clock.Advance(cfg.Breaker.Cooldown.Std() + time.Second)

	// The admitted probe fails, so the circuit trips again at once.
	srv.Backend.FailNext(1, codes.Unavailable)
	_, err = p.Health(ctx)
	require.Error(t, err)
	assert.Equal(t, breaker.StateOpen, p.gw.breaker.CurrentState())
}

func TestPoolExhaustionDoesNotCloseBreaker(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker.FailureThreshold = 1
	cfg.Breaker.HalfOpenMaxCalls = 1
	cfg.Pool.MaxConnections = 1
	cfg.Pool.ConnectTimeout = config.Duration(50 * time.Millisecond)
	p, srv := newTestProvider(t, cfg)
	ctx := context.Background()

	clock := newManualClock()
	p.gw.breaker.SetClock(clock.Now)

	srv.Backend.FailNext(1, codes.Unavailable)
	_, err := p.Health(ctx)
	require.Error(t, err)
	require.Equal(t, breaker.StateOpen, p.gw.breaker.CurrentState())

	clock.Advance(cfg.Breaker.Cooldown.Std() + time.Second)

	// Hold the pool's only connection so the admitted probe dies
	// locally without touching the wire. A call that never reached the
	// backend must not count as a probe success.
	conn, err := p.gw.pool.Acquire(ctx)
	require.NoError(t, err)

	before := srv.Backend.Calls()
	_, err = p.Health(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, hosterr.ErrPoolExhausted)
	assert.Equal(t, before, srv.Backend.Calls())
	assert.NotEqual(t, breaker.StateClosed, p.gw.breaker.CurrentState())

	// The withdrawn probe slot is free again; a probe that actually
	// reaches the healthy backend closes the circuit.
	conn.Release()
	_, err = p.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, breaker.StateClosed, p.gw.breaker.CurrentState())
}

func TestPoolExhaustionKeepsFailureStreak(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker.FailureThreshold = 2
	cfg.Pool.MaxConnections = 1
	cfg.Pool.ConnectTimeout = config.Duration(50 * time.Millisecond)
	p, srv := newTestProvider(t, cfg)
	ctx := context.Background()

	srv.Backend.FailNext(1, codes.Unavailable)
	_, err := p.Health(ctx)
	require.Error(t, err)

	// A locally rejected call between two backend failures must not
	// reset the consecutive-failure count.
	conn, err := p.gw.pool.Acquire(ctx)
	require.NoError(t, err)
	_, err = p.Health(ctx)
	assert.ErrorIs(t, err, hosterr.ErrPoolExhausted)
	conn.Release()

	srv.Backend.FailNext(1, codes.Unavailable)
	_, err = p.Health(ctx)
	require.Error(t, err)
	assert.Equal(t, breaker.StateOpen, p.gw.breaker.CurrentState())
}

func TestDomainRejectionsDoNotTripBreaker(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker.FailureThreshold = 2
	p, srv := newTestProvider(t, cfg)
	ctx := context.Background()
	srv.Backend.CreateContainer("empty")

	hProv, err := p.AcquireContext(ctx, "empty", 0)
	require.NoError(t, err)

	// A stream of key-not-found rejections leaves the circuit closed.
	for i := 0; i < 10; i++ {
		_, err = p.GetUserKey(ctx, hProv, KeySpecSignature)
		require.Error(t, err)
	}
	assert.Equal(t, breaker.StateClosed, p.gw.breaker.CurrentState())
}

func TestRequestDeadline(t *testing.T) {
	cfg := testConfig()
	cfg.Pool.RequestTimeout = config.Duration(100 * time.Millisecond)
	p, srv := newTestProvider(t, cfg)

	srv.Backend.SetLatency(2 * time.Second)
	defer srv.Backend.SetLatency(0)

	start := time.Now()
	_, err := p.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, hosterr.ErrDeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Retry.Enabled = true
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.InitialInterval = config.Duration(10 * time.Millisecond)
	p, srv := newTestProvider(t, cfg)

	srv.Backend.FailNext(1, codes.Unavailable)
	version, err := p.Health(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, version)
	assert.Equal(t, int64(2), srv.Backend.Calls())
}

func TestRetrySkipsNonTransientFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Retry.Enabled = true
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.InitialInterval = config.Duration(10 * time.Millisecond)
	p, srv := newTestProvider(t, cfg)

	srv.Backend.FailNext(1, codes.PermissionDenied)
	_, err := p.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, hosterr.ErrBackendRejected)
	// One attempt only.
	assert.Equal(t, int64(1), srv.Backend.Calls())
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.Retry.Enabled = true
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.InitialInterval = config.Duration(10 * time.Millisecond)
	cfg.Breaker.FailureThreshold = 100
	p, srv := newTestProvider(t, cfg)

	srv.Backend.FailNext(10, codes.Unavailable)
	_, err := p.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, hosterr.ErrConnect)
	assert.Equal(t, int64(2), srv.Backend.Calls())
}

func TestRateLimitRejectsBeforeWire(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 0.001
	cfg.RateLimit.Burst = 1
	p, srv := newTestProvider(t, cfg)
	ctx := context.Background()

	_, err := p.Health(ctx)
	require.NoError(t, err)

	before := srv.Backend.Calls()
	_, err = p.Health(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, hosterr.ErrPoolExhausted)
	assert.Equal(t, before, srv.Backend.Calls())
}

func TestStatsSnapshot(t *testing.T) {
	p, srv := newTestProvider(t, nil)
	ctx := context.Background()

	_, err := p.Health(ctx)
	require.NoError(t, err)

	srv.Backend.FailNext(1, codes.Unavailable)
	_, err = p.Health(ctx)
	require.Error(t, err)

	s := p.Stats()
	assert.Equal(t, uint64(2), s.Requests)
	assert.Equal(t, uint64(1), s.Succeeded)
	assert.Equal(t, uint64(1), s.Failed)
	assert.Zero(t, s.Rejected)
	assert.Equal(t, 4, s.Pool.MaxConnections)
	assert.Zero(t, s.LiveHandles)

	hProv, err := p.AcquireContext(ctx, "stats", FlagNewKeyset)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats().LiveHandles)
	require.NoError(t, p.ReleaseContext(hProv))
	assert.Zero(t, p.Stats().LiveHandles)
}

func TestLastErrorClearedExplicitly(t *testing.T) {
	p, _ := newTestProvider(t, nil)

	_, err := p.AcquireContext(context.Background(), "nope", 0)
	require.Error(t, err)

	_, ok := p.LastError()
	require.True(t, ok)

	p.ClearLastError()
	_, ok = p.LastError()
	assert.False(t, ok)
}
