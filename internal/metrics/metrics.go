// Package metrics exposes fitness server counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"batfit/pkg/fitness/core"
)

type Metrics struct {
	registry *prometheus.Registry

	Loads           prometheus.Counter
	Batches         prometheus.Counter
	Chromosomes     prometheus.Counter
	Errors          *prometheus.CounterVec
	BatchLatency    prometheus.Histogram
	CacheGeneration prometheus.Gauge
}

// New registers the fitness collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Loads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batfit_cache_loads_total",
			Help: "Successful vector cache loads.",
		}),
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batfit_batches_total",
			Help: "Successfully evaluated batches.",
		}),
		Chromosomes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batfit_chromosomes_total",
			Help: "Chromosomes scored.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batfit_errors_total",
			Help: "Rejected requests by error class.",
		}, []string{"op", "class"}),
		BatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batfit_batch_latency_seconds",
			Help:    "Wall time of EvaluateBatch.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		CacheGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "batfit_cache_generation",
			Help: "Generation of the loaded vector cache.",
		}),
	}
	m.registry.MustRegister(
		m.Loads, m.Batches, m.Chromosomes, m.Errors, m.BatchLatency, m.CacheGeneration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, e.g. for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveError counts err under its class
func (m *Metrics) ObserveError(op string, err error) {
	m.Errors.WithLabelValues(op, Class(err)).Inc()
}

// Class names the error taxonomy bucket of err
func Class(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, core.ErrConfiguration):
		return "configuration"
	case errors.Is(err, core.ErrSequencing):
		return "sequencing"
	case errors.Is(err, core.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, core.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
