// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// Package pool implements the bounded gRPC connection pool in front of
// the supacrypt backend.
//
// The pool hands out exclusive connections: a connection acquired by
// one request is never shared until released. Capacity is a hard bound;
// when every connection is checked out, Acquire waits up to the connect
// timeout and then fails with ErrPoolExhausted. Connections idle past
// the idle timeout are closed by the sweeper and re-dialed on demand.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc"

	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
	"github.com/ludicrypt/supacrypt-core/pkg/logging"
	"github.com/ludicrypt/supacrypt-core/pkg/metrics"
)

// Dialer establishes one backend channel. The pool owns the returned
// connection and closes it when the connection is swept or the pool
// shuts down.
type Dialer func(ctx context.Context) (*grpc.ClientConn, error)

// Config bounds the pool.
type Config struct {
	// MaxConnections is the hard capacity. Zero means 1.
	MaxConnections int

	// IdleTimeout is how long an unused connection survives before the
	// sweeper closes it.
	IdleTimeout time.Duration

	// ConnectTimeout bounds both the wait for a free slot and the dial
	// of a new connection.
	ConnectTimeout time.Duration
}

// Conn is a checked-out pool connection. It must be returned with
// exactly one Release call.
type Conn struct {
	cc       *grpc.ClientConn
	pool     *Pool
	released bool
}

// ClientConn exposes the underlying channel for issuing calls.
func (c *Conn) ClientConn() grpc.ClientConnInterface {
	return c.cc
}

// Release returns the connection to the pool. Releasing twice is a
// programming error and panics.
func (c *Conn) Release() {
	if c.released {
		panic("pool: connection released twice")
	}
	c.released = true
	c.pool.put(c.cc)
}

// idleConn is a parked connection waiting for reuse.
type idleConn struct {
	cc       *grpc.ClientConn
	lastUsed time.Time
}

// Pool is a bounded pool of backend channels. All methods are safe for
// concurrent use.
type Pool struct {
	cfg    Config
	dial   Dialer
	sem    *semaphore.Weighted
	log    *logging.Logger
	stopCh chan struct{}

	mu     sync.Mutex
	idle   []idleConn
	inUse  int
	closed bool
}

// New creates a pool. The dialer is invoked lazily: no connections
// exist until the first Acquire.
func New(cfg Config, dial Dialer, log *logging.Logger) *Pool {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1
	}
	if log == nil {
		log = logging.DefaultLogger()
	}
	p := &Pool{
		cfg:    cfg,
		dial:   dial,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConnections)),
		log:    log,
		stopCh: make(chan struct{}),
	}
	if cfg.IdleTimeout > 0 {
		go p.sweeper()
	}
	return p
}

// Acquire returns an exclusive connection, reusing an idle one when
// possible and dialing otherwise. The wait for capacity is bounded by
// the connect timeout; expiry maps to ErrPoolExhausted. A failed dial
// maps to ErrConnect and does not consume capacity.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: pool is closed", hosterr.ErrConnect)
	}
	p.mu.Unlock()

	waitCtx := ctx
	if p.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.cfg.ConnectTimeout)
		defer cancel()
	}

	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		metrics.PoolExhaustedTotal.Inc()
		if ctx.Err() != nil {
			// The caller's own context expired, not the acquire bound.
			return nil, fmt.Errorf("%w: %v", hosterr.ErrDeadlineExceeded, ctx.Err())
		}
		return nil, fmt.Errorf("%w: no connection available within %s",
			hosterr.ErrPoolExhausted, p.cfg.ConnectTimeout)
	}

	// Capacity held from here; every failure path must release it.
	if cc := p.takeIdle(); cc != nil {
		p.markInUse(1)
		return &Conn{cc: cc, pool: p}, nil
	}

	dialCtx := ctx
	if p.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, p.cfg.ConnectTimeout)
		defer cancel()
	}
	cc, err := p.dial(dialCtx)
	if err != nil {
		p.sem.Release(1)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: dial timed out after %s",
				hosterr.ErrConnect, p.cfg.ConnectTimeout)
		}
		return nil, fmt.Errorf("%w: %v", hosterr.ErrConnect, err)
	}
	p.log.Debug("pool: dialed new backend connection")
	p.markInUse(1)
	return &Conn{cc: cc, pool: p}, nil
}

// takeIdle pops the most recently used idle connection, if any.
func (p *Pool) takeIdle() *grpc.ClientConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.idle)
	if n == 0 {
		return nil
	}
	ic := p.idle[n-1]
	p.idle = p.idle[:n-1]
	metrics.PoolConnections.WithLabelValues(metrics.PoolStateIdle).Set(float64(len(p.idle)))
	return ic.cc
}

// put parks a released connection and frees its capacity slot.
func (p *Pool) put(cc *grpc.ClientConn) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = cc.Close()
		p.sem.Release(1)
		p.markInUse(-1)
		return
	}
	p.idle = append(p.idle, idleConn{cc: cc, lastUsed: time.Now()})
	metrics.PoolConnections.WithLabelValues(metrics.PoolStateIdle).Set(float64(len(p.idle)))
	p.mu.Unlock()
	p.sem.Release(1)
	p.markInUse(-1)
}

func (p *Pool) markInUse(delta int) {
	p.mu.Lock()
	p.inUse += delta
	metrics.PoolConnections.WithLabelValues(metrics.PoolStateInUse).Set(float64(p.inUse))
	p.mu.Unlock()
}

// sweeper closes idle connections past the idle timeout. Checked-out
// connections are never touched.
func (p *Pool) sweeper() {
	interval := p.cfg.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.SweepIdle(time.Now())
		case <-p.stopCh:
			return
		}
	}
}

// SweepIdle closes connections idle since before now minus the idle
// timeout and returns how many were closed. Exposed for tests.
func (p *Pool) SweepIdle(now time.Time) int {
	cutoff := now.Add(-p.cfg.IdleTimeout)

	p.mu.Lock()
	var keep []idleConn
	var expired []*grpc.ClientConn
	for _, ic := range p.idle {
		if ic.lastUsed.Before(cutoff) {
			expired = append(expired, ic.cc)
		} else {
			keep = append(keep, ic)
		}
	}
	p.idle = keep
	metrics.PoolConnections.WithLabelValues(metrics.PoolStateIdle).Set(float64(len(p.idle)))
	p.mu.Unlock()

	for _, cc := range expired {
		_ = cc.Close()
	}
	if len(expired) > 0 {
		p.log.Debug("pool: swept idle connections", "count", len(expired))
	}
	return len(expired)
}

// Stats reports pool occupancy.
type Stats struct {
	MaxConnections int
	Idle           int
	InUse          int
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		MaxConnections: p.cfg.MaxConnections,
		Idle:           len(p.idle),
		InUse:          p.inUse,
	}
}

// Close shuts the pool down. Idle connections are closed immediately;
// checked-out connections are closed as they are released. Acquire
// fails after Close.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	metrics.PoolConnections.WithLabelValues(metrics.PoolStateIdle).Set(0)
	p.mu.Unlock()

	close(p.stopCh)
	var firstErr error
	for _, ic := range idle {
		if err := ic.cc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
