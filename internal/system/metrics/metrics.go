// Released under an MIT license. See LICENSE.

// Package metrics holds the Prometheus collectors for runs. Collectors are
// created once and registered by the host with Register.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	OK        = "ok"
	Exception = "exception"
	Fatal     = "fatal"
)

// Metrics are the collectors updated by every run.
//
//nolint:gochecknoglobals
var Metrics = struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	AttributeDenials *prometheus.CounterVec
	ImportDenials    prometheus.Counter
}{
	RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enclave",
		Name:      "runs_total",
		Help:      "Total runs by outcome.",
	}, []string{"outcome"}),

	RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "enclave",
		Name:      "run_duration_seconds",
		Help:      "Run duration in seconds by outcome.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"outcome"}),

	AttributeDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enclave",
		Name:      "attribute_denials_total",
		Help:      "Total blocked attribute operations by receiver kind.",
	}, []string{"kind"}),

	ImportDenials: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "enclave",
		Name:      "import_denials_total",
		Help:      "Total blocked imports.",
	}),
}

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		Metrics.RunsTotal,
		Metrics.RunDuration,
		Metrics.AttributeDenials,
		Metrics.ImportDenials,
	}
}

// Register registers every collector with r. Collectors that are already
// registered with r are skipped.
func Register(r prometheus.Registerer) error {
	for _, c := range collectors() {
		err := r.Register(c)

		var are prometheus.AlreadyRegisteredError
		if err != nil && !errors.As(err, &are) {
			return err
		}
	}

	return nil
}

// Run records a finished run.
func Run(outcome string, seconds float64) {
	Metrics.RunsTotal.WithLabelValues(outcome).Inc()
	Metrics.RunDuration.WithLabelValues(outcome).Observe(seconds)
}

// AttributeDenied records a blocked attribute operation.
func AttributeDenied(kind string) {
	Metrics.AttributeDenials.WithLabelValues(kind).Inc()
}

// ImportDenied records a blocked import.
func ImportDenied() {
	Metrics.ImportDenials.Inc()
}
