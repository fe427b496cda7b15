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
	// Ingestion metrics
	BarsIngested    prometheus.Counter
	BarsStored      prometheus.Counter
	IngestionErrors *prometheus.CounterVec

	// Feed metrics
	FeedRequestLatency *prometheus.HistogramVec
	FeedRequestErrors  *prometheus.CounterVec
	StreamQuotes       prometheus.Counter
	StreamReconnects   prometheus.Counter

	// Backtest metrics
	BacktestRunsTotal *prometheus.CounterVec
	BacktestDuration  prometheus.Histogram
	IntentsGenerated  prometheus.Counter
	FillsSimulated    prometheus.Counter
	IntentsRejected   *prometheus.CounterVec
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulBacktest  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "equity_backtest_lab"
	}

	return &Metrics{
		// Ingestion metrics
		BarsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_ingested_total",
			Help:      "Total number of bars fetched from feeds",
		}),
		BarsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_stored_total",
			Help:      "Total number of bars stored to database",
		}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by type",
		}, []string{"error_type"}),

		// Feed metrics
		FeedRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "request_latency_seconds",
			Help:      "Market data feed request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		FeedRequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "request_errors_total",
			Help:      "Total number of feed request errors",
		}, []string{"operation"}),
		StreamQuotes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "stream_quotes_total",
			Help:      "Total number of quotes received over the stream",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "stream_reconnects_total",
			Help:      "Total number of stream reconnect attempts",
		}),

		// Backtest metrics
		BacktestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"scenario", "status"}),
		BacktestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		IntentsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "intents_generated_total",
			Help:      "Total number of order intents generated",
		}),
		FillsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "fills_simulated_total",
			Help:      "Total number of fills simulated",
		}),
		IntentsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "intents_rejected_total",
			Help:      "Total number of intents rejected by reason",
		}, []string{"reason"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
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

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulBacktest: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_backtest_timestamp",
			Help:      "Unix timestamp of last successful backtest run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBarsIngested adds to the bars ingested counter.
func RecordBarsIngested(n int) {
	DefaultMetrics.BarsIngested.Add(float64(n))
}

// RecordBarsStored adds to the bars stored counter.
func RecordBarsStored(n int) {
	DefaultMetrics.BarsStored.Add(float64(n))
}

// RecordIngestionError records an ingestion error by type.
func RecordIngestionError(errorType string) {
	DefaultMetrics.IngestionErrors.WithLabelValues(errorType).Inc()
}

// RecordFeedRequest records feed request metrics.
func RecordFeedRequest(operation string, seconds float64, err error) {
	DefaultMetrics.FeedRequestLatency.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.FeedRequestErrors.WithLabelValues(operation).Inc()
	}
}

// RecordBacktestRun records a backtest run.
func RecordBacktestRun(scenario, status string, durationSeconds float64) {
	DefaultMetrics.BacktestRunsTotal.WithLabelValues(scenario, status).Inc()
	DefaultMetrics.BacktestDuration.Observe(durationSeconds)
}

// RecordSimulation records intent and fill counts for one simulation.
func RecordSimulation(intents, fills int, rejectionsByReason map[string]int) {
	DefaultMetrics.IntentsGenerated.Add(float64(intents))
	DefaultMetrics.FillsSimulated.Add(float64(fills))
	for reason, n := range rejectionsByReason {
		DefaultMetrics.IntentsRejected.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
