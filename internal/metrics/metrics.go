// Package metrics defines the Prometheus collectors for document processing and HTTP traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	documentsTotal     *prometheus.CounterVec
	extractionFailures *prometheus.CounterVec
	inferenceTotal     *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	cacheHitsTotal     prometheus.Counter
	cacheMissesTotal   prometheus.Counter
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studynotes_documents_total",
				Help: "Total number of processed documents",
			},
			[]string{"kind", "method"},
		),
		extractionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studynotes_extraction_failures_total",
				Help: "Total number of documents whose text could not be recovered",
			},
			[]string{"kind"},
		),
		inferenceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studynotes_inference_requests_total",
				Help: "Total number of study artifact generations",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studynotes_stage_duration_seconds",
				Help:    "Duration of extraction and generation stages",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		cacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "studynotes_cache_hits_total",
				Help: "Total number of artifact cache hits",
			},
		),
		cacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "studynotes_cache_misses_total",
				Help: "Total number of artifact cache misses",
			},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studynotes_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "studynotes_http_request_duration_seconds",
				Help: "Duration of HTTP requests",
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.documentsTotal,
		m.extractionFailures,
		m.inferenceTotal,
		m.stageDuration,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
		m.requestsTotal,
		m.requestDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) DocumentProcessed(kind, method string) {
	if m == nil {
		return
	}
	m.documentsTotal.WithLabelValues(kind, method).Inc()
}

func (m *Metrics) ExtractionFailed(kind string) {
	if m == nil {
		return
	}
	m.extractionFailures.WithLabelValues(kind).Inc()
}

// Inference records a generation outcome: "success", "error", "skipped" or "cached".
func (m *Metrics) Inference(status string) {
	if m == nil {
		return
	}
	m.inferenceTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMissesTotal.Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
