// Package metrics provides Prometheus metrics for the Parley interview service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the Parley service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Event Log Metrics - append path health
	eventsAppended  *prometheus.CounterVec
	eventsDuplicate prometheus.Counter
	eventsRejected  prometheus.Counter
	storeLatency    *prometheus.HistogramVec

	// Decision Metrics - engine outcomes
	decisions          *prometheus.CounterVec
	followupSuppressed *prometheus.CounterVec
	refusalOverrides   prometheus.Counter

	// Evaluation Metrics - scoring pipeline
	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	evalQueueSize      prometheus.Gauge
	workerCount        prometheus.Gauge

	// Judge Metrics - external judgment calls
	judgeCalls          *prometheus.CounterVec
	judgeRetries        prometheus.Counter
	judgeSchemaFailures prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Interview Lifecycle Metrics
	interviewsCreated   prometheus.Counter
	interviewsCompleted *prometheus.CounterVec
	sectionTimeouts     prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "parley",
		subsystem:        "interview",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Event Log Metrics - append path health
	m.eventsAppended = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_appended_total",
			Help:      "Total number of events appended to the log by type",
		},
		[]string{"type"},
	)

	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Total number of duplicate appends short-circuited by client event id",
	})

	m.eventsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_rejected_total",
		Help:      "Total number of appends rejected by validation",
	})

	m.storeLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_latency_seconds",
			Help:      "Histogram of event store operation latency in seconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"operation"},
	)

	// Decision Metrics - engine outcomes
	m.decisions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "decisions_total",
			Help:      "Total number of decision engine outcomes by kind",
		},
		[]string{"kind"},
	)

	m.followupSuppressed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "followups_suppressed_total",
			Help:      "Total number of generated follow-ups discarded before asking",
		},
		[]string{"reason"},
	)

	m.refusalOverrides = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refusal_overrides_total",
		Help:      "Total number of re-engagement prompts issued after a refusal",
	})

	// Evaluation Metrics - scoring pipeline
	m.evaluations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "evaluations_total",
			Help:      "Total number of evaluation runs by terminal status",
		},
		[]string{"status"},
	)

	m.evaluationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_duration_seconds",
		Help:      "Histogram of end-to-end evaluation run duration in seconds",
		Buckets:   m.histogramBuckets,
	})

	m.evalQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "eval_queue_size",
		Help:      "Current size of the evaluation job queue (backlog indicator)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of evaluation workers (processing capacity)",
	})

	// Judge Metrics - external judgment calls
	m.judgeCalls = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "judge_calls_total",
			Help:      "Total number of judge calls by stage",
		},
		[]string{"stage"},
	)

	m.judgeRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "judge_retries_total",
		Help:      "Total number of judge calls retried after a schema violation",
	})

	m.judgeSchemaFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "judge_schema_failures_total",
		Help:      "Total number of judge responses rejected by schema validation",
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Interview Lifecycle Metrics
	m.interviewsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "interviews_created_total",
		Help:      "Total number of interviews created",
	})

	m.interviewsCompleted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "interviews_finished_total",
			Help:      "Total number of interviews reaching a terminal status",
		},
		[]string{"status"},
	)

	m.sectionTimeouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "section_timeouts_total",
		Help:      "Total number of sections ended by deadline expiry",
	})
}

// Event Log Metrics Functions.

// RecordEventAppended increments the appended events counter for a type.
func RecordEventAppended(eventType string) {
	globalManager.eventsAppended.WithLabelValues(eventType).Inc()
}

// RecordEventDuplicate increments the duplicate appends counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordEventRejected increments the rejected appends counter.
func RecordEventRejected() {
	globalManager.eventsRejected.Inc()
}

// ObserveStoreLatency records an event store operation latency in seconds.
func ObserveStoreLatency(operation string, seconds float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(seconds)
}

// Decision Metrics Functions.

// RecordDecision increments the decision counter for an outcome kind.
func RecordDecision(kind string) {
	globalManager.decisions.WithLabelValues(kind).Inc()
}

// RecordFollowupSuppressed increments the suppressed follow-up counter.
func RecordFollowupSuppressed(reason string) {
	globalManager.followupSuppressed.WithLabelValues(reason).Inc()
}

// RecordRefusalOverride increments the re-engagement prompt counter.
func RecordRefusalOverride() {
	globalManager.refusalOverrides.Inc()
}

// Evaluation Metrics Functions.

// RecordEvaluation increments the evaluation counter for a terminal status.
func RecordEvaluation(status string) {
	globalManager.evaluations.WithLabelValues(status).Inc()
}

// ObserveEvaluationDuration records an evaluation run duration in seconds.
func ObserveEvaluationDuration(seconds float64) {
	globalManager.evaluationDuration.Observe(seconds)
}

// UpdateEvalQueueSize sets the current evaluation queue size.
func UpdateEvalQueueSize(size int) {
	globalManager.evalQueueSize.Set(float64(size))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// Judge Metrics Functions.

// RecordJudgeCall increments the judge call counter for a stage.
func RecordJudgeCall(stage string) {
	globalManager.judgeCalls.WithLabelValues(stage).Inc()
}

// RecordJudgeRetry increments the judge retry counter.
func RecordJudgeRetry() {
	globalManager.judgeRetries.Inc()
}

// RecordJudgeSchemaFailure increments the judge schema failure counter.
func RecordJudgeSchemaFailure() {
	globalManager.judgeSchemaFailures.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// Interview Lifecycle Metrics Functions.

// RecordInterviewCreated increments the interviews created counter.
func RecordInterviewCreated() {
	globalManager.interviewsCreated.Inc()
}

// RecordInterviewFinished increments the terminal interview counter for a status.
func RecordInterviewFinished(status string) {
	globalManager.interviewsCompleted.WithLabelValues(status).Inc()
}

// RecordSectionTimeout increments the section timeout counter.
func RecordSectionTimeout() {
	globalManager.sectionTimeouts.Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
