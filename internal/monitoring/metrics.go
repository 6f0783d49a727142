package monitoring

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/analysis"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/resilience"
)

const namespace = "aq10"

// Metrics holds the Prometheus collectors for the service on a private
// registry, plus a few counters mirrored for the health endpoint.
type Metrics struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	assessments       *prometheus.CounterVec
	questionnaire     *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
	inferenceFailures *prometheus.CounterVec
	reports           *prometheus.CounterVec
	breakerChanges    *prometheus.CounterVec
	rateLimitBlocks   *prometheus.CounterVec
	responseBytes     *prometheus.CounterVec

	requestCount int64
	errorCount   int64
	startTime    time.Time
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Completed assessments by combined recommendation tier.",
		}, []string{"tier"}),
		questionnaire: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questionnaire_scores_total",
			Help:      "Scored questionnaires by AQ-10 tier.",
		}, []string{"tier"}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Latency of image model calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		inferenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_failures_total",
			Help:      "Failed image model calls by adapter error kind.",
		}, []string{"kind"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Rendered PDF reports by outcome.",
		}, []string{"outcome"}),
		breakerChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state changes.",
		}, []string{"name", "to"}),
		rateLimitBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_blocks_total",
			Help:      "Requests rejected by the rate limiter, by backend.",
		}, []string{"backend"}),
		responseBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gzip_response_bytes_total",
			Help:      "Bytes of gzip-compressed responses before and after compression.",
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.assessments,
		m.questionnaire,
		m.inferenceDuration,
		m.inferenceFailures,
		m.reports,
		m.breakerChanges,
		m.rateLimitBlocks,
		m.responseBytes,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordRequest records one finished HTTP request
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	atomic.AddInt64(&m.requestCount, 1)
	if status >= 400 {
		atomic.AddInt64(&m.errorCount, 1)
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordAssessment counts a completed assessment
func (m *Metrics) RecordAssessment(a *analysis.Assessment) {
	m.assessments.WithLabelValues(a.Combined.RecommendationTier.String()).Inc()
	m.RecordQuestionnaire(a.AQ10.Tier)
}

// RecordQuestionnaire counts a scored questionnaire
func (m *Metrics) RecordQuestionnaire(tier analysis.Tier) {
	m.questionnaire.WithLabelValues(tier.String()).Inc()
}

// RecordInference records one image model call; kind is empty on success
func (m *Metrics) RecordInference(duration time.Duration, kind string) {
	m.inferenceDuration.Observe(duration.Seconds())
	if kind != "" {
		m.inferenceFailures.WithLabelValues(kind).Inc()
	}
}

// RecordReport counts a report render by outcome ("ok" or "error")
func (m *Metrics) RecordReport(outcome string) {
	m.reports.WithLabelValues(outcome).Inc()
}

// RecordRateLimitBlock counts a rejected request
func (m *Metrics) RecordRateLimitBlock(backend string) {
	m.rateLimitBlocks.WithLabelValues(backend).Inc()
}

// RecordCompression counts one gzip-compressed response body
func (m *Metrics) RecordCompression(raw, compressed int) {
	m.responseBytes.WithLabelValues("raw").Add(float64(raw))
	m.responseBytes.WithLabelValues("compressed").Add(float64(compressed))
}

// BreakerObserver returns a callback for resilience.CircuitBreakerConfig
func (m *Metrics) BreakerObserver() func(name string, from, to resilience.CircuitBreakerState) {
	return func(name string, from, to resilience.CircuitBreakerState) {
		m.breakerChanges.WithLabelValues(name, to.String()).Inc()
	}
}

// GetStats returns a summary for the health endpoint
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.requestCount)
	errs := atomic.LoadInt64(&m.errorCount)
	errorRate := 0.0
	if requests > 0 {
		errorRate = float64(errs) / float64(requests)
	}
	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.startTime).Seconds()),
		"requests_total": requests,
		"errors_total":   errs,
		"error_rate":     errorRate,
	}
}
