package metrics

import (
	"github.com/marmos91/ransched/pkg/sched"
)

// NewSchedMetrics creates a new Prometheus-backed scheduler metrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to the scheduler, which
// results in zero overhead.
//
// Example usage:
//
//	metrics.InitRegistry()
//	s, err := sched.New(cfg, sched.WithMetrics(metrics.NewSchedMetrics()))
func NewSchedMetrics() sched.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusSchedMetrics()
}

// newPrometheusSchedMetrics is implemented in pkg/metrics/prometheus.
// The indirection avoids an import cycle while keeping the API clean.
var newPrometheusSchedMetrics func() sched.Metrics

// RegisterSchedMetricsConstructor registers the Prometheus scheduler metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterSchedMetricsConstructor(constructor func() sched.Metrics) {
	newPrometheusSchedMetrics = constructor
}
