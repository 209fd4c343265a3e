package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "olh_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "olh_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Material workflow
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "olh_uploads_total",
			Help: "Material uploads by outcome (pending, approved, duplicate, rejected_input)",
		},
		[]string{"outcome"},
	)

	ModerationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "olh_moderation_actions_total",
			Help: "Moderation actions by kind",
		},
		[]string{"action"},
	)

	PushDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "olh_push_deliveries_total",
			Help: "Push notification attempts by result",
		},
		[]string{"result"},
	)

	OrphanBlobsRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "olh_orphan_blobs_removed_total",
			Help: "Stored blobs removed because no material references them",
		},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "olh_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		UploadsTotal,
		ModerationActions,
		PushDeliveries,
		OrphanBlobsRemoved,
		RateLimited,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records one served HTTP request.
func RecordRequest(method, route, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
