// Package metrics defines the Prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "canvas"

// Outcome labels.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeExpanded  = "expanded"
	OutcomeFallback  = "fallback"
	OutcomeSuccess   = "success"
)

// Metrics holds every collector the service reports.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	expansions         *prometheus.CounterVec
	extractions        *prometheus.CounterVec
	rateLimited        *prometheus.CounterVec
}

// New creates the collectors on a private registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Image generation attempts that reached the provider, by outcome.",
		}, []string{"outcome", "model"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time spent in the image provider and asset upload.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		}, []string{"outcome"}),
		expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_expansions_total",
			Help:      "Prompt expansion calls by outcome.",
		}, []string{"outcome"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_extractions_total",
			Help:      "Context extraction calls by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-user rate limiter.",
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.generations,
		m.generationDuration,
		m.expansions,
		m.extractions,
		m.rateLimited,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request. route is the mux pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveGeneration records a generation attempt.
func (m *Metrics) ObserveGeneration(outcome, model string, d time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome, model).Inc()
	m.generationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveExpansion(outcome string) {
	if m == nil {
		return
	}
	m.expansions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveExtraction(outcome string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}
