// Package metrics exposes conversion counters in Prometheus format.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/coinconvert/internal/core"
)

const namespace = "coinconvert"

// Metrics counts conversions. It is a core.Recorder, so the service feeds
// it the same records the history store receives.
type Metrics struct {
	registry *prometheus.Registry

	Conversions *prometheus.CounterVec
	Rows        *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

var _ core.Recorder = (*Metrics)(nil)

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Conversions by schema, outcome and source.",
			},
			[]string{"schema", "status", "code", "source"},
		),
		Rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Converted rows kept or rejected by the row filter.",
			},
			[]string{"schema", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "conversion_duration_seconds",
				Help:      "Time spent converting one file.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(
		m.Conversions,
		m.Rows,
		m.Duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordConversion updates the counters for one run. It never fails.
func (m *Metrics) RecordConversion(_ context.Context, rec core.Record) error {
	schema := rec.Schema
	if schema == "" {
		schema = "unknown"
	}
	m.Conversions.WithLabelValues(schema, rec.Status, rec.ErrorCode, rec.Source).Inc()
	m.Duration.WithLabelValues(rec.Status).Observe(rec.Duration.Seconds())
	if rec.Status == core.StatusSucceeded {
		m.Rows.WithLabelValues(schema, "retained").Add(float64(rec.Retained))
		m.Rows.WithLabelValues(schema, "rejected").Add(float64(rec.Rejected))
	}
	return nil
}

// Gatherer returns the registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
