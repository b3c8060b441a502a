package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the backend
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Sync Metrics
	SyncRecordsWritten  *prometheus.CounterVec
	SyncRecordsRejected *prometheus.CounterVec
	SyncStoreFailures   *prometheus.CounterVec
	SyncPagesFetched    *prometheus.CounterVec
	SyncPageFailures    *prometheus.CounterVec
	SyncRunsTotal       *prometheus.CounterVec
	SyncJobDuration     *prometheus.HistogramVec
	SyncLastSuccess     *prometheus.GaugeVec
	SyncInProgress      prometheus.Gauge
}

// NewMetricsRegistry registers every metric with reg and returns the registry.
// Pass prometheus.DefaultRegisterer in production and prometheus.NewRegistry() in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beerhike_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beerhike_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "beerhike_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		// Sync Metrics
		SyncRecordsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beerhike_sync_records_written_total",
				Help: "Records upserted into the spatial store by source",
			},
			[]string{"source"},
		),
		SyncRecordsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beerhike_sync_records_rejected_total",
				Help: "Upstream items skipped for missing fields or unusable geometry",
			},
			[]string{"source"},
		),
		SyncStoreFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beerhike_sync_store_failures_total",
				Help: "Per-item upsert failures by source",
			},
			[]string{"source"},
		),
		SyncPagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beerhike_sync_pages_fetched_total",
				Help: "Upstream pages fetched successfully by source",
			},
			[]string{"source"},
		),
		SyncPageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beerhike_sync_page_failures_total",
				Help: "Upstream page requests that ended a connector run",
			},
			[]string{"source", "code"},
		),
		SyncRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beerhike_sync_runs_total",
				Help: "Completed connector runs by source and terminal status",
			},
			[]string{"source", "status"},
		),
		SyncJobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beerhike_sync_job_duration_seconds",
				Help:    "Sync job execution time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"job_name"},
		),
		SyncLastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "beerhike_sync_last_success_timestamp_seconds",
				Help: "Unix time of the last fully successful connector run",
			},
			[]string{"source"},
		),
		SyncInProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "beerhike_sync_in_progress",
				Help: "1 while a SyncAll run holds the run lock in this process",
			},
		),
	}
}
