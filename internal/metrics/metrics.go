package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Database query types
const (
	DBQueryTypeSelect = "select"
	DBQueryTypeInsert = "insert"
	DBQueryTypeUpdate = "update"
	DBQueryTypeDelete = "delete"
	DBQueryTypeRaw    = "raw"
)

// Message bus operations
const (
	MessageBusOperationSend       = "send"
	MessageBusOperationReceive    = "receive"
	MessageBusOperationComplete   = "complete"
	MessageBusOperationAbandon    = "abandon"
	MessageBusOperationDeadLetter = "dead_letter"
)

// Prometheus metrics for monitoring service health and performance
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relief_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relief_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	DBQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relief_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"type", "success"},
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relief_db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	EventsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relief_events_created_total",
			Help: "Total number of events created",
		},
	)

	RequestsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relief_requests_created_total",
			Help: "Total number of aid requests created",
		},
	)

	RequestsUpdatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relief_requests_updated_total",
			Help: "Total number of aid request updates applied",
		},
	)

	RejectedWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relief_rejected_writes_total",
			Help: "Total number of writes rejected by validation or integrity checks",
		},
		[]string{"reason"},
	)

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relief_cache_hits_total",
			Help: "Total number of list cache hits",
		},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relief_cache_misses_total",
			Help: "Total number of list cache misses",
		},
	)

	MessageBusOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relief_message_bus_operations_total",
			Help: "Total number of Service Bus operations",
		},
		[]string{"operation", "success"},
	)

	RequestsIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relief_requests_indexed_total",
			Help: "Total number of requests written to the search index",
		},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(DBQueriesTotal)
		prometheus.MustRegister(DBQueryDuration)
		prometheus.MustRegister(EventsCreatedTotal)
		prometheus.MustRegister(RequestsCreatedTotal)
		prometheus.MustRegister(RequestsUpdatedTotal)
		prometheus.MustRegister(RejectedWritesTotal)
		prometheus.MustRegister(CacheHitsTotal)
		prometheus.MustRegister(CacheMissesTotal)
		prometheus.MustRegister(MessageBusOperationsTotal)
		prometheus.MustRegister(RequestsIndexedTotal)
	})
}

// RecordDatabaseQuery records the outcome and duration of one query
func RecordDatabaseQuery(queryType string, success bool, seconds float64) {
	DBQueriesTotal.WithLabelValues(queryType, boolLabel(success)).Inc()
	DBQueryDuration.WithLabelValues(queryType).Observe(seconds)
}

// RecordMessageBusOperation records the outcome of one Service Bus call
func RecordMessageBusOperation(operation string, success bool) {
	MessageBusOperationsTotal.WithLabelValues(operation, boolLabel(success)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
