// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package timed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status values for timed fire metrics.
const (
	StatusOK    = "ok"
	StatusFault = "fault"
)

// Fires counts timed event invocations.
// Use RegisterMetrics to register this with a Prometheus registry.
var Fires = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hookbridge_timed_fires_total",
		Help: "Total number of timed event invocations by scope and status",
	},
	[]string{"scope", "status"},
)

// Pending reports how many timed events were waiting after the last sweep.
// Use RegisterMetrics to register this with a Prometheus registry.
var Pending = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "hookbridge_timed_pending",
		Help: "Number of scheduled timed events across all processors",
	},
)

// RegisterMetrics registers timed event metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Fires)
	reg.MustRegister(Pending)
}

// RecordFire increments the fire counter.
func RecordFire(scope, status string) {
	Fires.WithLabelValues(scope, status).Inc()
}

// RecordPending sets the pending gauge.
func RecordPending(n int) {
	Pending.Set(float64(n))
}
