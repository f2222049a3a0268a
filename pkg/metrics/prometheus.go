package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeSuccess     = "success"
	OutcomeInput       = "input"
	OutcomeHTTP        = "http"
	OutcomeApplication = "application"
	OutcomeUnexpected  = "unexpected"
	OutcomeCancelled   = "cancelled"
	OutcomeRejected    = "rejected"
)

// Manager manages all Prometheus metrics for atscheck.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Submission metrics
	submissions         *prometheus.CounterVec
	submissionDuration  prometheus.Histogram
	submissionsInFlight prometheus.Gauge
	uploadBytes         prometheus.Histogram
	tokenReplays        prometheus.Counter

	// HTTP metrics for the web host
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "atscheck",
		subsystem:        "client",
		histogramBuckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submissions_total",
		Help:        "Total number of résumé submissions by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.submissionDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submission_duration_milliseconds",
		Help:        "Time from submit to settled response in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.submissionsInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submissions_in_flight",
		Help:        "Number of submissions waiting on the analyzer",
		ConstLabels: labels,
	})

	m.uploadBytes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "upload_bytes",
		Help:        "Size of submitted résumé files in bytes",
		Buckets:     prometheus.ExponentialBuckets(1024, 4, 8),
		ConstLabels: labels,
	})

	m.tokenReplays = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "token_replays_total",
		Help:        "Form submissions rejected because their token was already used",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordSubmission counts a settled submission and its duration.
func (m *Manager) RecordSubmission(outcome string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if outcome != OutcomeRejected && outcome != OutcomeInput {
		m.submissionDuration.Observe(durationMs)
	}
}

// SubmissionStarted marks a request to the analyzer as in flight.
func (m *Manager) SubmissionStarted() {
	if m.enabled {
		m.submissionsInFlight.Inc()
	}
}

// SubmissionFinished clears an in-flight mark.
func (m *Manager) SubmissionFinished() {
	if m.enabled {
		m.submissionsInFlight.Dec()
	}
}

// RecordUploadBytes observes the size of a submitted file.
func (m *Manager) RecordUploadBytes(n int64) {
	if m.enabled {
		m.uploadBytes.Observe(float64(n))
	}
}

// RecordTokenReplay counts a rejected form token.
func (m *Manager) RecordTokenReplay() {
	if m.enabled {
		m.tokenReplays.Inc()
	}
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Package-level helpers bound to the global manager.

// RecordSubmission counts a settled submission on the global manager.
func RecordSubmission(outcome string, durationMs float64) {
	globalManager.RecordSubmission(outcome, durationMs)
}

// SubmissionStarted marks an in-flight submission on the global manager.
func SubmissionStarted() { globalManager.SubmissionStarted() }

// SubmissionFinished clears an in-flight submission on the global manager.
func SubmissionFinished() { globalManager.SubmissionFinished() }

// RecordUploadBytes observes an upload size on the global manager.
func RecordUploadBytes(n int64) { globalManager.RecordUploadBytes(n) }

// RecordTokenReplay counts a rejected form token on the global manager.
func RecordTokenReplay() { globalManager.RecordTokenReplay() }

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
