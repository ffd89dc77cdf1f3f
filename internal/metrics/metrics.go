// Package metrics holds the prometheus collectors of the session service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rotation outcomes.
const (
	OutcomeRotated = "rotated"
	OutcomeInvalid = "invalid"
	OutcomeExpired = "expired"
	OutcomeReplay  = "replay"
	OutcomeError   = "error"
)

// Revocation reasons.
const (
	ReasonLogout = "logout"
	ReasonUser   = "user"
)

var (
	Issued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_tokens_issued_total",
		Help: "Total number of token pairs issued at login or rotation.",
	})

	Rotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_refresh_rotations_total",
		Help: "Refresh attempts by outcome.",
	}, []string{"outcome"})

	Revocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_refresh_revocations_total",
		Help: "Refresh tokens revoked, by reason.",
	}, []string{"reason"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"path", "method", "status"})
)

// Middleware records RED metrics per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpDuration.WithLabelValues(path, c.Request.Method, status).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(path, c.Request.Method, status).Inc()
	}
}

func RegisterHandlers(rg *gin.RouterGroup) {
	rg.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
