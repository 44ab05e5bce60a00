package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Catalog metrics
	catalogRefreshesTotal *prometheus.CounterVec
	catalogRefreshDuration prometheus.Histogram
	catalogSnapshotSize   *prometheus.GaugeVec
	catalogQueriesTotal   *prometheus.CounterVec

	// Quote metrics
	quoteRequestsTotal   *prometheus.CounterVec
	quoteRequestDuration prometheus.Histogram
	quoteEditsCoalesced  prometheus.Counter
	quoteStaleDiscarded  prometheus.Counter

	// Solana RPC metrics
	rpcCallsTotal   *prometheus.CounterVec
	rpcCallDuration *prometheus.HistogramVec

	// Pool metrics
	poolExistenceChecksTotal *prometheus.CounterVec
	poolCreationsTotal       *prometheus.CounterVec
	poolCreationDuration     prometheus.Histogram

	// Swap metrics
	swapsTotal   *prometheus.CounterVec
	swapDuration prometheus.Histogram

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Catalog metrics
		catalogRefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_refreshes_total",
				Help: "Total number of token catalog refresh attempts by status",
			},
			[]string{"status"},
		),
		catalogRefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_refresh_duration_seconds",
				Help:    "Duration of token catalog refreshes in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		catalogSnapshotSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalog_snapshot_size",
				Help: "Number of tokens in the installed catalog snapshot",
			},
			[]string{"subset"},
		),
		catalogQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_queries_total",
				Help: "Total number of catalog queries by kind",
			},
			[]string{"kind"},
		),

		// Quote metrics
		quoteRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_requests_total",
				Help: "Total number of outbound quote requests by status",
			},
			[]string{"status"},
		),
		quoteRequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quote_request_duration_seconds",
				Help:    "Duration of outbound quote requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
		),
		quoteEditsCoalesced: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quote_edits_coalesced_total",
				Help: "Total number of intent edits absorbed by the quiet-period timer",
			},
		),
		quoteStaleDiscarded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quote_stale_responses_discarded_total",
				Help: "Total number of quote responses discarded because the intent changed",
			},
		),

		// Solana RPC metrics
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),

		// Pool metrics
		poolExistenceChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pool_existence_checks_total",
				Help: "Total number of pool existence checks by result",
			},
			[]string{"result"},
		),
		poolCreationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pool_creations_total",
				Help: "Total number of pool bootstrap attempts by status",
			},
			[]string{"status"},
		),
		poolCreationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pool_creation_duration_seconds",
				Help:    "Duration of pool bootstrap operations in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),

		// Swap metrics
		swapsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swaps_total",
				Help: "Total number of swap executions by status",
			},
			[]string{"status"},
		),
		swapDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "swap_duration_seconds",
				Help:    "Duration of swap executions in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		// HTTP metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Catalog metric helpers

// RecordCatalogRefresh records a catalog refresh attempt with duration.
func (m *Metrics) RecordCatalogRefresh(status string, duration float64) {
	if m == nil {
		return
	}
	m.catalogRefreshesTotal.WithLabelValues(status).Inc()
	m.catalogRefreshDuration.Observe(duration)
}

// RecordCatalogSnapshotSize records the size of the installed snapshot.
func (m *Metrics) RecordCatalogSnapshotSize(all, featured int) {
	if m == nil {
		return
	}
	m.catalogSnapshotSize.WithLabelValues("all").Set(float64(all))
	m.catalogSnapshotSize.WithLabelValues("featured").Set(float64(featured))
}

// RecordCatalogQuery records a catalog query. Kind is "featured" or "search".
func (m *Metrics) RecordCatalogQuery(kind string) {
	if m == nil {
		return
	}
	m.catalogQueriesTotal.WithLabelValues(kind).Inc()
}

// Quote metric helpers

// RecordQuoteRequest records an outbound quote request with duration.
func (m *Metrics) RecordQuoteRequest(status string, duration float64) {
	if m == nil {
		return
	}
	m.quoteRequestsTotal.WithLabelValues(status).Inc()
	m.quoteRequestDuration.Observe(duration)
}

// RecordQuoteEditCoalesced records an intent edit that rescheduled the timer.
func (m *Metrics) RecordQuoteEditCoalesced() {
	if m == nil {
		return
	}
	m.quoteEditsCoalesced.Inc()
}

// RecordQuoteStaleDiscarded records a stale quote response discard.
func (m *Metrics) RecordQuoteStaleDiscarded() {
	if m == nil {
		return
	}
	m.quoteStaleDiscarded.Inc()
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status string, duration float64) {
	if m == nil {
		return
	}
	m.rpcCallsTotal.WithLabelValues(method, status).Inc()
	m.rpcCallDuration.WithLabelValues(method).Observe(duration)
}

// Pool metric helpers

// RecordPoolExistenceCheck records a pool existence check.
// Result is "exists", "absent", or "memoized".
func (m *Metrics) RecordPoolExistenceCheck(result string) {
	if m == nil {
		return
	}
	m.poolExistenceChecksTotal.WithLabelValues(result).Inc()
}

// RecordPoolCreation records a pool bootstrap attempt with duration.
func (m *Metrics) RecordPoolCreation(status string, duration float64) {
	if m == nil {
		return
	}
	m.poolCreationsTotal.WithLabelValues(status).Inc()
	m.poolCreationDuration.Observe(duration)
}

// Swap metric helpers

// RecordSwap records a swap execution with duration.
func (m *Metrics) RecordSwap(status string, duration float64) {
	if m == nil {
		return
	}
	m.swapsTotal.WithLabelValues(status).Inc()
	m.swapDuration.Observe(duration)
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	if m == nil {
		return
	}
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
