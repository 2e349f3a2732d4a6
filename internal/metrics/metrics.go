package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_http_requests_total",
			Help: "Total number of HTTP requests served.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_viewer_http_request_duration_seconds",
			Help:    "Duration of HTTP requests served.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_viewer_backend_request_duration_seconds",
			Help:    "Duration of calls to the archive backend.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"op", "status"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_cache_lookups_total",
			Help: "Snapshot list cache lookups by result.",
		},
		[]string{"result"}, // hit, miss, stale
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_viewer_exports_total",
			Help: "Export workflow runs by format and outcome.",
		},
		[]string{"format", "outcome"},
	)

	ExportJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archive_viewer_export_jobs",
			Help: "Export jobs currently held in memory.",
		},
	)
)

func ObserveBackend(op, status string, d time.Duration) {
	BackendRequestDuration.WithLabelValues(op, status).Observe(d.Seconds())
}
