// Package metrics holds the prometheus collectors exported on /metrics
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reel_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WebhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reel_webhook_events_total",
		Help: "Provider webhook deliveries by event type and outcome",
	}, []string{"type", "outcome"})

	FeedPages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reel_feed_pages_total",
		Help: "Feed pages served by mode",
	}, []string{"mode"})

	AdSlots = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reel_ad_slots_total",
		Help: "Ad slots by outcome (filled, empty, source_error, impression_error)",
	}, []string{"outcome"})

	UploadSessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reel_upload_sessions_total",
		Help: "Upload sessions requested by outcome",
	}, []string{"outcome"})
)

func init() {
	for _, c := range []prometheus.Collector{HTTPRequestDuration, WebhookEvents, FeedPages, AdSlots, UploadSessions} {
		registerOrGet(c)
	}
}

func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}

	return c
}

// Middleware records the duration of every request under its route
// template so path parameters don't explode the label set.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
