package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics live on a private registry, one per Server.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SessionsActive      prometheus.Gauge
	SessionsTotal       prometheus.Counter
	FramesEvaluated     *prometheus.CounterVec
	BridgeMessages      *prometheus.CounterVec
	BridgeSendErrors    prometheus.Counter
	CourseReloads       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursevideo_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursevideo_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		SessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "coursevideo_player_sessions_active",
				Help: "Number of connected player sessions",
			},
		),
		SessionsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "coursevideo_player_sessions_total",
				Help: "Total number of player sessions opened",
			},
		),
		FramesEvaluated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursevideo_frames_evaluated_total",
				Help: "Frames evaluated by player sessions",
			},
			[]string{"kind"},
		),
		BridgeMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursevideo_bridge_messages_total",
				Help: "Messages delivered to embedded slide documents",
			},
			[]string{"type"},
		),
		BridgeSendErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "coursevideo_bridge_send_errors_total",
				Help: "Bridge messages that could not be written to the socket",
			},
		),
		CourseReloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursevideo_course_reloads_total",
				Help: "Course loads by outcome",
			},
			[]string{"status"},
		),
	}
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}
