// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// Package metrics provides Prometheus instrumentation for
// supacrypt-core. It exposes operation counters and latency histograms,
// connection pool gauges, and circuit breaker state so hosts embedding
// the provider can scrape client-side health.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all supacrypt-core metrics.
	Namespace = "supacrypt"

	// Label names.
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelErrorKind = "error_kind"
	LabelState     = "state"

	// Status values.
	StatusSuccess = "success"
	StatusError   = "error"

	// Pool connection states.
	PoolStateIdle  = "idle"
	PoolStateInUse = "in_use"
)

var (
	// OperationsTotal counts host operations by name and outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of provider operations by name and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration tracks end-to-end operation latency, remote call
	// included. Buckets sized for network-bound cryptographic operations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of provider operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelOperation},
	)

	// ErrorsTotal counts failures by operation and taxonomy kind.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of failed operations by name and error kind",
		},
		[]string{LabelOperation, LabelErrorKind},
	)

	// PoolConnections tracks pooled backend channels by state.
	PoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "pool",
			Name:      "connections",
			Help:      "Number of pooled backend connections by state",
		},
		[]string{LabelState},
	)

	// PoolExhaustedTotal counts acquires that timed out waiting for a
	// connection.
	PoolExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "pool",
			Name:      "exhausted_total",
			Help:      "Total number of acquires that failed because the pool was exhausted",
		},
	)

	// BreakerState reports the circuit breaker state as a gauge:
	// 0 closed, 1 open, 2 half-open.
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)

	// BreakerRejectsTotal counts calls rejected while the breaker was open.
	BreakerRejectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "breaker",
			Name:      "rejects_total",
			Help:      "Total number of calls rejected by the open circuit breaker",
		},
	)

	// BreakerTransitionsTotal counts state transitions by target state.
	BreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "breaker",
			Name:      "transitions_total",
			Help:      "Total number of circuit breaker transitions by target state",
		},
		[]string{LabelState},
	)
)

// RecordOperation updates the operation counter and histogram in one
// call. errKind is empty on success.
func RecordOperation(op string, start time.Time, errKind string) {
	status := StatusSuccess
	if errKind != "" {
		status = StatusError
		ErrorsTotal.WithLabelValues(op, errKind).Inc()
	}
	OperationsTotal.WithLabelValues(op, status).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
