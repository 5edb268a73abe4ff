// Package metrics provides Prometheus metrics for the zeroflops ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ranking service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Query evaluation
	queriesEvaluated prometheus.Counter
	queryErrors      *prometheus.CounterVec
	queryLatency     prometheus.Histogram

	// Tournaments
	tournamentsStarted   prometheus.Counter
	tournamentsCompleted prometheus.Counter
	matchesResolved      prometheus.Counter
	matchesDuplicate     prometheus.Counter
	matchesRejected      *prometheus.CounterVec

	// Persistence
	versionConflicts prometheus.Counter
	saveRetries      prometheus.Counter
	storeLatency     *prometheus.HistogramVec
	storeRecords     *prometheus.GaugeVec

	// Import
	itemsImported  prometheus.Counter
	itemsDuplicate prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

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
		namespace:        "zeroflops",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.queriesEvaluated = m.counter("queries_evaluated_total", "Total number of queries evaluated against a list")
	m.queryErrors = m.counterVec("query_errors_total", "Total number of rejected queries by error kind", "kind")
	m.queryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "query_latency_milliseconds",
		Help:        "Parse plus evaluation latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})

	m.tournamentsStarted = m.counter("tournaments_started_total", "Total number of tournaments seeded")
	m.tournamentsCompleted = m.counter("tournaments_completed_total", "Total number of tournaments that produced a champion")
	m.matchesResolved = m.counter("matches_resolved_total", "Total number of match results applied")
	m.matchesDuplicate = m.counter("matches_duplicate_total", "Total number of repeated match results ignored")
	m.matchesRejected = m.counterVec("matches_rejected_total", "Total number of rejected match results by reason", "reason")

	m.versionConflicts = m.counter("version_conflicts_total", "Total number of stale writes rejected by the store")
	m.saveRetries = m.counter("save_retries_total", "Total number of load-mutate-save retries after a conflict")
	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_latency_milliseconds",
		Help:        "Store operation latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"operation"})
	m.storeRecords = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_records",
		Help:        "Number of records held by the store by kind",
		ConstLabels: m.customLabels,
	}, []string{"kind"})

	m.itemsImported = m.counter("items_imported_total", "Total number of new items added by imports")
	m.itemsDuplicate = m.counter("items_duplicate_total", "Total number of repeated entries skipped by imports")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")
}

// Global accessor functions.

// active returns the global manager when it records, nil otherwise.
func active() *Manager {
	if globalManager == nil || !globalManager.enabled {
		return nil
	}
	return globalManager
}

// RecordQueryEvaluated records one evaluated query and its latency.
func RecordQueryEvaluated(latencyMs float64) {
	if m := active(); m != nil {
		m.queriesEvaluated.Inc()
		m.queryLatency.Observe(latencyMs)
	}
}

// RecordQueryError records a rejected query by kind (parse, unknown_field, type_mismatch).
func RecordQueryError(kind string) {
	if m := active(); m != nil {
		m.queryErrors.WithLabelValues(kind).Inc()
	}
}

// RecordTournamentStarted records one seeded tournament.
func RecordTournamentStarted() {
	if m := active(); m != nil {
		m.tournamentsStarted.Inc()
	}
}

// RecordTournamentCompleted records one finished tournament.
func RecordTournamentCompleted() {
	if m := active(); m != nil {
		m.tournamentsCompleted.Inc()
	}
}

// RecordMatchResolved records one applied match result.
func RecordMatchResolved() {
	if m := active(); m != nil {
		m.matchesResolved.Inc()
	}
}

// RecordMatchDuplicate records a repeated result that changed nothing.
func RecordMatchDuplicate() {
	if m := active(); m != nil {
		m.matchesDuplicate.Inc()
	}
}

// RecordMatchRejected records a refused match result.
func RecordMatchRejected(reason string) {
	if m := active(); m != nil {
		m.matchesRejected.WithLabelValues(reason).Inc()
	}
}

// RecordVersionConflict records a stale write.
func RecordVersionConflict() {
	if m := active(); m != nil {
		m.versionConflicts.Inc()
	}
}

// RecordSaveRetry records one retry of a conflicting update.
func RecordSaveRetry() {
	if m := active(); m != nil {
		m.saveRetries.Inc()
	}
}

// RecordStoreLatency records the latency of one store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	if m := active(); m != nil {
		m.storeLatency.WithLabelValues(operation).Observe(latencyMs)
	}
}

// UpdateStoreRecords sets the number of records of one kind.
func UpdateStoreRecords(kind string, count int) {
	if m := active(); m != nil {
		m.storeRecords.WithLabelValues(kind).Set(float64(count))
	}
}

// RecordItemsImported records newly added and skipped duplicate entries.
func RecordItemsImported(added, duplicates int) {
	if m := active(); m != nil {
		m.itemsImported.Add(float64(added))
		m.itemsDuplicate.Add(float64(duplicates))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := active(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := active(); m != nil {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	if m := active(); m != nil {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
