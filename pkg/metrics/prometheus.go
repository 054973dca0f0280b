// Package metrics provides Prometheus metrics for the cinerec recommendation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the cinerec service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Ranking process metrics
	rankerInvocations  *prometheus.CounterVec
	rankerLatency      *prometheus.HistogramVec
	rankerBreakerState prometheus.Gauge

	// Recommendation quality metrics
	recommendationsServed *prometheus.CounterVec
	recommendationsEmpty  *prometheus.CounterVec
	droppedIdentifiers    *prometheus.CounterVec
	popularDroppedRows    prometheus.Counter

	// Queue Metrics - ranking job queue
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueRejections *prometheus.CounterVec

	// Worker Metrics
	workerCount prometheus.Gauge
	workerBusy  prometheus.Gauge

	// Store Metrics
	storeQueryLatency *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "cinerec",
		subsystem:        "api",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
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
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.rankerInvocations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "ranker_invocations_total",
			Help:        "Ranking process invocations by mode and outcome (ok, empty, process_error, decode_error, canceled)",
			ConstLabels: labels,
		},
		[]string{"mode", "outcome"},
	)

	m.rankerLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "ranker_latency_milliseconds",
			Help:        "Wall time of ranking process invocations in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"mode"},
	)

	m.rankerBreakerState = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ranker_breaker_state",
		Help:        "Ranking process circuit breaker state (0 closed, 1 half-open, 2 open)",
		ConstLabels: labels,
	})

	m.recommendationsServed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "recommendations_served_total",
			Help:        "Recommendation responses produced, by mode",
			ConstLabels: labels,
		},
		[]string{"mode"},
	)

	m.recommendationsEmpty = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "recommendations_empty_total",
			Help:        "Recommendation responses with no items, by mode",
			ConstLabels: labels,
		},
		[]string{"mode"},
	)

	m.droppedIdentifiers = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "recommend_dropped_ids_total",
			Help:        "Ranked identifiers that did not resolve to a catalog item",
			ConstLabels: labels,
		},
		[]string{"mode"},
	)

	m.popularDroppedRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "popular_dropped_rows_total",
		Help:        "Popularity rows dropped because the item is missing from the catalog",
		ConstLabels: labels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_size",
		Help:        "Current number of ranking jobs waiting for a worker",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_capacity",
		Help:        "Maximum number of queued ranking jobs",
		ConstLabels: labels,
	})

	m.queueRejections = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "queue_rejections_total",
			Help:        "Ranking jobs rejected by the queue, by reason",
			ConstLabels: labels,
		},
		[]string{"reason"},
	)

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_count",
		Help:        "Number of ranking workers",
		ConstLabels: labels,
	})

	m.workerBusy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_busy",
		Help:        "Number of ranking workers currently running a process",
		ConstLabels: labels,
	})

	m.storeQueryLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "store_query_latency_milliseconds",
			Help:        "Catalog store query latency in milliseconds, by operation",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	m.storeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "store_errors_total",
			Help:        "Catalog store failures, by operation",
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component and error type",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_type_total",
			Help:        "Total number of errors by error type and severity",
			ConstLabels: labels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "Total number of errors by endpoint, method and error type",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Ranker Metrics Functions.

// RecordRankerInvocation counts a ranking process run and its outcome.
func RecordRankerInvocation(mode, outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankerInvocations.WithLabelValues(mode, outcome).Inc()
	globalManager.rankerLatency.WithLabelValues(mode).Observe(latencyMs)
}

// UpdateRankerBreakerState sets the breaker state gauge.
func UpdateRankerBreakerState(state int) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankerBreakerState.Set(float64(state))
}

// Recommendation Metrics Functions.

// RecordRecommendationServed counts a recommendation response.
func RecordRecommendationServed(mode string, size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.recommendationsServed.WithLabelValues(mode).Inc()
	if size == 0 {
		globalManager.recommendationsEmpty.WithLabelValues(mode).Inc()
	}
}

// RecordDroppedIdentifiers counts ranked ids that did not resolve to an item.
func RecordDroppedIdentifiers(mode string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.droppedIdentifiers.WithLabelValues(mode).Add(float64(n))
}

// RecordPopularDroppedRows counts popularity rows without a catalog match.
func RecordPopularDroppedRows(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.popularDroppedRows.Add(float64(n))
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejection counts a job the queue refused.
func RecordQueueRejection(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueRejections.WithLabelValues(reason).Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// IncWorkerBusy marks a worker as running a job.
func IncWorkerBusy() {
	if !globalManager.enabled {
		return
	}
	globalManager.workerBusy.Inc()
}

// DecWorkerBusy marks a worker as idle again.
func DecWorkerBusy() {
	if !globalManager.enabled {
		return
	}
	globalManager.workerBusy.Dec()
}

// Store Metrics Functions.

// RecordStoreQuery records the latency of a store operation.
func RecordStoreQuery(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(operation string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// SetEnabled toggles recording for the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
