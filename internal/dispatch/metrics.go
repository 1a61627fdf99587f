// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status values for callback invocation metrics.
const (
	StatusOK      = "ok"
	StatusFault   = "fault"
	StatusSkipped = "skipped"
)

// Fires counts Fire calls per family.
// Use RegisterMetrics to register this with a Prometheus registry.
var Fires = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hookbridge_dispatch_fires_total",
		Help: "Total number of events fired by family",
	},
	[]string{"family"},
)

// Invocations counts callback invocations by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Invocations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hookbridge_callback_invocations_total",
		Help: "Total number of callback invocations by family and status",
	},
	[]string{"family", "status"},
)

// Duration observes time spent running the callbacks of one fire.
// Use RegisterMetrics to register this with a Prometheus registry.
var Duration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "hookbridge_callback_duration_seconds",
		Help:    "Time spent invoking callbacks for one fired event",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"family"},
)

// Suppressions counts fires where at least one callback requested suppression.
// Use RegisterMetrics to register this with a Prometheus registry.
var Suppressions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hookbridge_suppressions_total",
		Help: "Total number of fired events whose default handling was suppressed",
	},
	[]string{"family"},
)

// RegisterMetrics registers dispatch metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Fires)
	reg.MustRegister(Invocations)
	reg.MustRegister(Duration)
	reg.MustRegister(Suppressions)
}

// RecordFire increments the fire counter for family.
func RecordFire(family string) {
	Fires.WithLabelValues(family).Inc()
}

// RecordInvocation increments the invocation counter.
// Parameters:
//   - family: the event family name
//   - status: invocation result (use Status* constants)
func RecordInvocation(family, status string) {
	Invocations.WithLabelValues(family, status).Inc()
}

// RecordDuration records how long one fire spent in callbacks.
func RecordDuration(family string, d time.Duration) {
	Duration.WithLabelValues(family).Observe(d.Seconds())
}

// RecordSuppression increments the suppression counter for family.
func RecordSuppression(family string) {
	Suppressions.WithLabelValues(family).Inc()
}
