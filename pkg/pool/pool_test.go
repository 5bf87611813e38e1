// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
)

// testDialer returns unconnected channels; grpc defers the actual
// network connection until first use, so no backend is needed.
func testDialer(dials *atomic.Int32) Dialer {
	return func(_ context.Context) (*grpc.ClientConn, error) {
		if dials != nil {
			dials.Add(1)
		}
		return grpc.NewClient("passthrough:///pooltest",
			grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
}

func failingDialer(err error) Dialer {
	return func(_ context.Context) (*grpc.ClientConn, error) {
		return nil, err
	}
}

func TestAcquireRelease(t *testing.T) {
	var dials atomic.Int32
	p := New(Config{MaxConnections: 2, ConnectTimeout: time.Second}, testDialer(&dials), nil)
	defer func() { _ = p.Close() }()

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn.ClientConn())
	assert.Equal(t, 1, p.Stats().InUse)

	conn.Release()
	assert.Equal(t, 0, p.Stats().InUse)
	assert.Equal(t, 1, p.Stats().Idle)
}

func TestAcquireReusesIdleConnection(t *testing.T) {
	var dials atomic.Int32
	p := New(Config{MaxConnections: 2, ConnectTimeout: time.Second}, testDialer(&dials), nil)
	defer func() { _ = p.Close() }()

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn.Release()

	conn2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn2.Release()

	assert.Equal(t, int32(1), dials.Load())
}

func TestExclusiveCheckout(t *testing.T) {
	var dials atomic.Int32
	p := New(Config{MaxConnections: 2, ConnectTimeout: time.Second}, testDialer(&dials), nil)
	defer func() { _ = p.Close() }()

	c1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	c2, err := p.Acquire(context.Background())
	require.NoError(t, err)

	// Both connections are checked out, so a second dial was required.
	assert.Equal(t, int32(2), dials.Load())
	assert.NotSame(t, c1.ClientConn(), c2.ClientConn())

	c1.Release()
	c2.Release()
}

func TestExhaustionAfterMaxConnections(t *testing.T) {
	p := New(Config{MaxConnections: 1, ConnectTimeout: 50 * time.Millisecond}, testDialer(nil), nil)
	defer func() { _ = p.Close() }()

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, hosterr.ErrPoolExhausted)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// A released slot makes the next acquire succeed.
	conn.Release()
	conn2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn2.Release()
}

func TestCallerContextCancellation(t *testing.T) {
	p := New(Config{MaxConnections: 1, ConnectTimeout: 10 * time.Second}, testDialer(nil), nil)
	defer func() { _ = p.Close() }()

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer conn.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, hosterr.ErrDeadlineExceeded)
}

func TestDialFailureIsConnectError(t *testing.T) {
	p := New(Config{MaxConnections: 1, ConnectTimeout: time.Second},
		failingDialer(errors.New("refused")), nil)
	defer func() { _ = p.Close() }()

	_, err := p.Acquire(context.Background())
	assert.ErrorIs(t, err, hosterr.ErrConnect)
	assert.NotErrorIs(t, err, hosterr.ErrPoolExhausted)

	// The failed dial must not leak the capacity slot.
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, hosterr.ErrConnect)
}

func TestDoubleReleasePanics(t *testing.T) {
	p := New(Config{MaxConnections: 1, ConnectTimeout: time.Second}, testDialer(nil), nil)
	defer func() { _ = p.Close() }()

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn.Release()

	assert.Panics(t, func() { conn.Release() })
}

func TestSweepClosesOnlyExpiredIdle(t *testing.T) {
	p := New(Config{MaxConnections: 2, IdleTimeout: time.Minute, ConnectTimeout: time.Second},
		testDialer(nil), nil)
	defer func() { _ = p.Close() }()

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	held, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn.Release()

	// Not yet expired.
	assert.Zero(t, p.SweepIdle(time.Now()))
	assert.Equal(t, 1, p.Stats().Idle)

	// Past the idle timeout the parked connection is closed; the held
	// one is untouched.
	assert.Equal(t, 1, p.SweepIdle(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, p.Stats().Idle)
	assert.Equal(t, 1, p.Stats().InUse)

	held.Release()
}

func TestCloseRejectsAcquire(t *testing.T) {
	p := New(Config{MaxConnections: 1, ConnectTimeout: time.Second}, testDialer(nil), nil)

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn.Release()

	require.NoError(t, p.Close())
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, hosterr.ErrConnect)

	// Close is idempotent.
	assert.NoError(t, p.Close())
}

func TestStats(t *testing.T) {
	p := New(Config{MaxConnections: 3, ConnectTimeout: time.Second}, testDialer(nil), nil)
	defer func() { _ = p.Close() }()

	s := p.Stats()
	assert.Equal(t, 3, s.MaxConnections)
	assert.Zero(t, s.Idle)
	assert.Zero(t, s.InUse)
}
