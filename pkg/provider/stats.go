// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package provider

import (
	"sync/atomic"

	"github.com/ludicrypt/supacrypt-core/pkg/pool"
)

// callStats counts gateway outcomes. Rejected calls never reached the
// pool; failed includes both transport and backend failures.
type callStats struct {
	requests  atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// Stats is a point-in-time snapshot of client health, backing the CLI
// status verb. Prometheus metrics carry the same data continuously.
type Stats struct {
	Requests  uint64
	Succeeded uint64
	Failed    uint64
	Rejected  uint64

	BreakerState string
	Pool         pool.Stats

	LiveHandles int
}

// Stats returns a snapshot of request counters, breaker position, and
// pool occupancy.
func (p *Provider) Stats() Stats {
	return Stats{
		Requests:     p.gw.stats.requests.Load(),
		Succeeded:    p.gw.stats.succeeded.Load(),
		Failed:       p.gw.stats.failed.Load(),
		Rejected:     p.gw.stats.rejected.Load(),
		BreakerState: p.gw.breaker.CurrentState().String(),
		Pool:         p.gw.pool.Stats(),
		LiveHandles:  p.table.Len(),
	}
}
