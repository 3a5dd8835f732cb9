// Package metrics exports registry activity as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/fyrsmithlabs/locus/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "locus"

// Metrics holds the registry counters. It implements registry.Observer.
type Metrics struct {
	// Registration activity
	RegisteredTotal   *prometheus.CounterVec
	UnregisteredTotal *prometheus.CounterVec
	RejectedTotal     *prometheus.CounterVec

	// Lookups
	ResolvedTotal *prometheus.CounterVec

	// Bootstrap runs
	BootstrapsTotal   *prometheus.CounterVec
	BootstrapDuration prometheus.Histogram
}

var _ registry.Observer = (*Metrics)(nil)

// New creates the registry metrics and registers them with reg.
//
// Metrics:
//   - locus_registry_registered_total{capability,mode}
//   - locus_registry_unregistered_total{capability,mode}
//   - locus_registry_rejected_total{capability,mode,reason}
//   - locus_registry_resolved_total{capability,result}
//   - locus_bootstrap_runs_total{result}
//   - locus_bootstrap_duration_seconds
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegisteredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "registered_total",
				Help:      "Total number of capability registrations",
			},
			[]string{"capability", "mode"},
		),
		UnregisteredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "unregistered_total",
				Help:      "Total number of capability unregistrations",
			},
			[]string{"capability", "mode"},
		),
		RejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "rejected_total",
				Help:      "Total number of rejected registrations",
			},
			[]string{"capability", "mode", "reason"}, // "duplicate_primary", "ownership_conflict", "other"
		),
		ResolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "resolved_total",
				Help:      "Total number of single-valued lookups",
			},
			[]string{"capability", "result"}, // "hit" or "miss"
		),
		BootstrapsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bootstrap",
				Name:      "runs_total",
				Help:      "Total number of bootstrap runs",
			},
			[]string{"result"}, // "success" or "error"
		),
		BootstrapDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "bootstrap",
				Name:      "duration_seconds",
				Help:      "Duration of bootstrap runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
		),
	}
}

// Registered implements registry.Observer.
func (m *Metrics) Registered(info registry.EntryInfo) {
	m.RegisteredTotal.WithLabelValues(info.Key.String(), info.Mode.String()).Inc()
}

// Unregistered implements registry.Observer.
func (m *Metrics) Unregistered(info registry.EntryInfo) {
	m.UnregisteredTotal.WithLabelValues(info.Key.String(), info.Mode.String()).Inc()
}

// Rejected implements registry.Observer.
func (m *Metrics) Rejected(key registry.Key, mode registry.Mode, err error) {
	m.RejectedTotal.WithLabelValues(key.String(), mode.String(), rejectReason(err)).Inc()
}

// Resolved implements registry.Observer.
func (m *Metrics) Resolved(key registry.Key, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	m.ResolvedTotal.WithLabelValues(key.String(), result).Inc()
}

// RecordBootstrap records one bootstrap run.
func (m *Metrics) RecordBootstrap(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.BootstrapsTotal.WithLabelValues(result).Inc()
	m.BootstrapDuration.Observe(d.Seconds())
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, registry.ErrDuplicatePrimary):
		return "duplicate_primary"
	case errors.Is(err, registry.ErrOwnershipConflict):
		return "ownership_conflict"
	default:
		return "other"
	}
}
