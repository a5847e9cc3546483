// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Indexer: Block Poller
	SlotsProcessed     prometheus.Counter
	SlotsSkipped       prometheus.Counter
	SlotDecodeErrors   prometheus.Counter
	LastProcessedSlot  prometheus.Gauge
	PollIterationDelay prometheus.Histogram

	// Indexer: Slot Decoder / Event Sink
	EventsEmitted      prometheus.Counter
	EventsInserted     prometheus.Counter
	EventInsertErrors  *prometheus.CounterVec
	MetadataUpsertErrs prometheus.Counter

	// Indexer: Live Tracker
	LiveTrackerAccounts     prometheus.Gauge
	LiveTrackerStaleReaped  prometheus.Counter
	ContentionScoreObserved prometheus.Histogram

	// API: Query Handlers
	APIRequestDuration *prometheus.HistogramVec
	APIRequestErrors   *prometheus.CounterVec
	WSConnections      prometheus.Gauge
	WSPushesSent       prometheus.Counter

	// Transport
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Database
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lock_signal"
	}

	return &Metrics{
		SlotsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "slots_processed_total",
			Help:      "Total number of slots successfully decoded",
		}),
		SlotsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "slots_skipped_total",
			Help:      "Total number of slots classified as skipped/not-found",
		}),
		SlotDecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "slot_decode_errors_total",
			Help:      "Total number of non-skip decode errors",
		}),
		LastProcessedSlot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "last_processed_slot",
			Help:      "Watermark slot the poller has advanced past",
		}),
		PollIterationDelay: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "iteration_seconds",
			Help:      "Wall time of one poll-loop iteration",
			Buckets:   prometheus.DefBuckets,
		}),

		EventsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "events_emitted_total",
			Help:      "Total number of write-lock events decoded",
		}),
		EventsInserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "events_inserted_total",
			Help:      "Total number of write-lock events successfully persisted",
		}),
		EventInsertErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "event_insert_errors_total",
			Help:      "Total number of batch insert failures by store",
		}, []string{"store"}),
		MetadataUpsertErrs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "metadata_upsert_errors_total",
			Help:      "Total number of account_metadata upsert failures",
		}),

		LiveTrackerAccounts: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live_tracker",
			Name:      "accounts_tracked",
			Help:      "Current number of accounts held in the Live Tracker",
		}),
		LiveTrackerStaleReaped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live_tracker",
			Name:      "stale_reaped_total",
			Help:      "Total number of accounts pruned by the Stale Reaper",
		}),
		ContentionScoreObserved: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "live_tracker",
			Name:      "contention_score",
			Help:      "Distribution of per-event contention scores",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		}),

		APIRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP handler duration by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
		APIRequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_errors_total",
			Help:      "Total number of non-2xx API responses by route",
		}, []string{"route", "status"}),
		WSConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_connections",
			Help:      "Current number of open push-channel connections",
		}),
		WSPushesSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_pushes_sent_total",
			Help:      "Total number of hot-account snapshots pushed to clients",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls by method",
		}, []string{"method"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSlotProcessed increments the slots-processed counter and updates
// the watermark gauge.
func RecordSlotProcessed(slot uint64) {
	DefaultMetrics.SlotsProcessed.Inc()
	DefaultMetrics.LastProcessedSlot.Set(float64(slot))
}

// RecordSlotSkipped increments the slots-skipped counter.
func RecordSlotSkipped() {
	DefaultMetrics.SlotsSkipped.Inc()
}

// RecordSlotDecodeError increments the slot-decode-error counter.
func RecordSlotDecodeError() {
	DefaultMetrics.SlotDecodeErrors.Inc()
}

// RecordEventsEmitted adds n to the events-emitted counter.
func RecordEventsEmitted(n int) {
	DefaultMetrics.EventsEmitted.Add(float64(n))
}

// RecordEventInsertError records a batch insert failure for store.
func RecordEventInsertError(store string) {
	DefaultMetrics.EventInsertErrors.WithLabelValues(store).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCError records a failed RPC call.
func RecordRPCError(method string) {
	DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordAPIRequest records one HTTP handler invocation.
func RecordAPIRequest(route, status string, seconds float64) {
	DefaultMetrics.APIRequestDuration.WithLabelValues(route, status).Observe(seconds)
	if status[0] != '2' {
		DefaultMetrics.APIRequestErrors.WithLabelValues(route, status).Inc()
	}
}
