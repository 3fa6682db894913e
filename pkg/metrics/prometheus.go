// Package metrics provides Prometheus metrics for the age-graded results service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the results pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Upstream feed metrics
	feedRequests *prometheus.CounterVec
	feedLatency  prometheus.Histogram

	// Result cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheWrites *prometheus.CounterVec

	// Grading metrics
	recordsGraded  prometheus.Counter
	recordsSkipped prometheus.Counter
	gradingLatency prometheus.Histogram

	// Slot allocation metrics
	dynamicSlotComputations prometheus.Counter
	dynamicSlotWaits        prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec
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
		namespace:        "agegrade",
		subsystem:        "results",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
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

	m.feedRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "feed_requests_total",
			Help:      "Total number of upstream feed requests by outcome",
		},
		[]string{"outcome"},
	)

	m.feedLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_latency_milliseconds",
		Help:      "Histogram of upstream feed round-trip latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.cacheHits = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of result cache hits by stage",
		},
		[]string{"stage"},
	)

	m.cacheMisses = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of result cache misses by stage",
		},
		[]string{"stage"},
	)

	m.cacheWrites = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "cache_writes_total",
			Help:      "Total number of result cache writes by stage",
		},
		[]string{"stage"},
	)

	m.recordsGraded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_graded_total",
		Help:      "Total number of athlete records graded",
	})

	m.recordsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_skipped_total",
		Help:      "Total number of athlete records dropped by the division or time filter",
	})

	m.gradingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "grading_latency_milliseconds",
		Help:      "Histogram of full grading pass latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.dynamicSlotComputations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dynamic_slot_computations_total",
		Help:      "Total number of dynamic slot allocations computed and persisted",
	})

	m.dynamicSlotWaits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dynamic_slot_waits_total",
		Help:      "Total number of requests answered before dynamic slots were ready",
	})

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
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)
}

// GetRegistry returns the custom Prometheus registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Global helpers delegating to the singleton manager.

// RecordFeedRequest records one upstream feed request with its outcome
// ("ok", "no_finishers", "transport_error", "parse_error").
func RecordFeedRequest(outcome string) {
	if globalManager.enabled {
		globalManager.feedRequests.WithLabelValues(outcome).Inc()
	}
}

// ObserveFeedLatency records the round-trip latency of one feed request.
func ObserveFeedLatency(ms float64) {
	if globalManager.enabled {
		globalManager.feedLatency.Observe(ms)
	}
}

// RecordCacheHit records a cache hit for the given stage.
func RecordCacheHit(stage string) {
	if globalManager.enabled {
		globalManager.cacheHits.WithLabelValues(stage).Inc()
	}
}

// RecordCacheMiss records a cache miss for the given stage.
func RecordCacheMiss(stage string) {
	if globalManager.enabled {
		globalManager.cacheMisses.WithLabelValues(stage).Inc()
	}
}

// RecordCacheWrite records a cache write for the given stage.
func RecordCacheWrite(stage string) {
	if globalManager.enabled {
		globalManager.cacheWrites.WithLabelValues(stage).Inc()
	}
}

// RecordRecordsGraded adds n to the graded-record counter.
func RecordRecordsGraded(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.recordsGraded.Add(float64(n))
	}
}

// RecordRecordsSkipped adds n to the skipped-record counter.
func RecordRecordsSkipped(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.recordsSkipped.Add(float64(n))
	}
}

// ObserveGradingLatency records the duration of a full grading pass.
func ObserveGradingLatency(ms float64) {
	if globalManager.enabled {
		globalManager.gradingLatency.Observe(ms)
	}
}

// RecordDynamicSlotComputation records one completed dynamic slot computation.
func RecordDynamicSlotComputation() {
	if globalManager.enabled {
		globalManager.dynamicSlotComputations.Inc()
	}
}

// RecordDynamicSlotWait records a request served before dynamic slots were ready.
func RecordDynamicSlotWait() {
	if globalManager.enabled {
		globalManager.dynamicSlotWaits.Inc()
	}
}

// RecordHTTPRequest records one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records the duration of one HTTP request.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
	}
}

// RecordError records one error attributed to a component.
func RecordError(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}
