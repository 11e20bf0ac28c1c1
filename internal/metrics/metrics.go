package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPActiveRequests  *prometheus.GaugeVec

	// Moderation pipeline: stage is "policy", "language" or "image";
	// outcome is "pass", "rejected" or "error"
	ModerationChecksTotal   *prometheus.CounterVec
	ModerationCheckDuration *prometheus.HistogramVec

	// Domain
	PostsCreated    *prometheus.CounterVec
	CommentsCreated *prometheus.CounterVec
	FailedWrites    *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the singleton metrics instance, registering collectors on
// first use
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveRequests: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_requests",
					Help: "Number of in-flight HTTP requests",
				},
				[]string{"method", "path"},
			),
			ModerationChecksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "moderation_checks_total",
					Help: "Moderation pipeline stage outcomes",
				},
				[]string{"stage", "outcome"},
			),
			ModerationCheckDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "moderation_check_duration_seconds",
					Help:    "Moderation classifier call latency in seconds",
					Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
				},
				[]string{"stage"},
			),
			PostsCreated: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "posts_created_total",
					Help: "Posts created, by type",
				},
				[]string{"post_type"},
			),
			CommentsCreated: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "comments_created_total",
					Help: "Comments created",
				},
				[]string{"anonymous"},
			),
			FailedWrites: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "failed_secondary_writes_total",
					Help: "Swallowed secondary-write failures recorded for reconciliation",
				},
				[]string{"kind"},
			),
		}
	})
	return instance
}
