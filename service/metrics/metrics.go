package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Transaction source metrics
	sourceCallsTotal    *prometheus.CounterVec
	sourceCallDuration  *prometheus.HistogramVec
	sourceRateLimitHits prometheus.Counter
	sourceRetries       *prometheus.CounterVec

	// Pipeline metrics
	transactionsFetchedTotal   *prometheus.CounterVec
	transactionsProcessedTotal *prometheus.CounterVec
	transactionsSkippedTotal   *prometheus.CounterVec

	// Position ledger metrics
	positionsOpenedTotal *prometheus.CounterVec
	positionsClosedTotal *prometheus.CounterVec
	orphanSellsTotal     *prometheus.CounterVec

	// Notification metrics
	notificationsSentTotal     *prometheus.CounterVec
	notificationsFilteredTotal *prometheus.CounterVec

	// Workflow metrics
	pollDuration     *prometheus.HistogramVec
	activityDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		sourceCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaling_source_calls_total",
				Help: "Total number of transaction source API calls by method and status",
			},
			[]string{"method", "status"},
		),
		sourceCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "whaling_source_call_duration_seconds",
				Help:    "Duration of transaction source API calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),
		sourceRateLimitHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "whaling_source_rate_limit_hits_total",
				Help: "Total number of transaction source rate limit hits (429 responses)",
			},
		),
		sourceRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaling_source_retries_total",
				Help: "Total number of transaction source retry attempts",
			},
			[]string{"method"},
		),

		transactionsFetchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaling_transactions_fetched_total",
				Help: "Total number of transactions fetched from the source",
			},
			[]string{"wallet"},
		),
		transactionsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaling_transactions_processed_total",
				Help: "Total number of transactions run through the pipeline",
			},
			[]string{"wallet"},
		),
		transactionsSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaling_transactions_skipped_total",
				Help: "Total number of transactions skipped by reason (watermark, already_processed, not_a_trade)",
			},
			[]string{"wallet", "reason"},
		),

		positionsOpenedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaling_positions_opened_total",
				Help: "Total number of positions opened",
			},
			[]string{"wallet"},
		),
		positionsClosedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaling_positions_closed_total",
				Help: "Total number of positions closed",
			},
			[]string{"wallet"},
		),
		orphanSellsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaling_orphan_sells_total",
				Help: "Total number of sells with no matching open position",
			},
			[]string{"wallet"},
		),

		notificationsSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaling_notifications_sent_total",
				Help: "Total number of notifications delivered by direction",
			},
			[]string{"direction"},
		),
		notificationsFilteredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whaling_notifications_filtered_total",
				Help: "Total number of notifications suppressed by the filter",
			},
			[]string{"direction"},
		),

		pollDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "whaling_poll_duration_seconds",
				Help:    "Duration of a full poll cycle for one wallet",
				Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"wallet"},
		),
		activityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "whaling_activity_duration_seconds",
				Help:    "Duration of Temporal activity executions",
				Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"activity"},
		),
	}
}

// RecordSourceCall records one transaction source API call.
func (m *Metrics) RecordSourceCall(method, status string, durationSeconds float64) {
	m.sourceCallsTotal.WithLabelValues(method, status).Inc()
	m.sourceCallDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordRateLimitHit records a 429 from the transaction source.
func (m *Metrics) RecordRateLimitHit() {
	m.sourceRateLimitHits.Inc()
}

// RecordSourceRetry records a retry attempt against the transaction source.
func (m *Metrics) RecordSourceRetry(method string) {
	m.sourceRetries.WithLabelValues(method).Inc()
}

// RecordTransactionsFetched records transactions returned by the source.
func (m *Metrics) RecordTransactionsFetched(wallet string, count int) {
	m.transactionsFetchedTotal.WithLabelValues(wallet).Add(float64(count))
}

// RecordTransactionProcessed records one transaction fully handled.
func (m *Metrics) RecordTransactionProcessed(wallet string) {
	m.transactionsProcessedTotal.WithLabelValues(wallet).Inc()
}

// RecordTransactionsSkipped records transactions skipped by reason.
func (m *Metrics) RecordTransactionsSkipped(wallet, reason string, count int) {
	if count > 0 {
		m.transactionsSkippedTotal.WithLabelValues(wallet, reason).Add(float64(count))
	}
}

// RecordPositionOpened records a newly opened position.
func (m *Metrics) RecordPositionOpened(wallet string) {
	m.positionsOpenedTotal.WithLabelValues(wallet).Inc()
}

// RecordPositionClosed records a closed position.
func (m *Metrics) RecordPositionClosed(wallet string) {
	m.positionsClosedTotal.WithLabelValues(wallet).Inc()
}

// RecordOrphanSell records a sell that had no matching open position.
func (m *Metrics) RecordOrphanSell(wallet string) {
	m.orphanSellsTotal.WithLabelValues(wallet).Inc()
}

// RecordNotificationSent records a delivered notification.
func (m *Metrics) RecordNotificationSent(direction string) {
	m.notificationsSentTotal.WithLabelValues(direction).Inc()
}

// RecordNotificationFiltered records a notification suppressed by the filter.
func (m *Metrics) RecordNotificationFiltered(direction string) {
	m.notificationsFilteredTotal.WithLabelValues(direction).Inc()
}

// RecordPollDuration records the duration of a wallet poll cycle.
func (m *Metrics) RecordPollDuration(wallet string, durationSeconds float64) {
	m.pollDuration.WithLabelValues(wallet).Observe(durationSeconds)
}

// RecordActivityDuration records the duration of a Temporal activity.
func (m *Metrics) RecordActivityDuration(activity string, durationSeconds float64) {
	m.activityDuration.WithLabelValues(activity).Observe(durationSeconds)
}
