package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uniroom/backend/internal/metrics"
)

// MetricsMiddleware collects HTTP metrics for Prometheus
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		method := c.Request.Method
		// FullPath keeps parameterized routes ("/api/v1/posts/:id") so the
		// label cardinality stays bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.HTTPActiveRequests.WithLabelValues(method, path).Inc()
		defer m.HTTPActiveRequests.WithLabelValues(method, path).Dec()

		startTime := time.Now()

		c.Next()

		duration := time.Since(startTime).Seconds()
		// Numeric status code as string ("200", "500") so Grafana queries
		// like status=~"5.." match 5xx errors
		statusStr := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)
	}
}
