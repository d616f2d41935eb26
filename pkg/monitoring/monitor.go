package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	TestInstancesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_test_instances_generated_total",
			Help: "Test instances generated, by mode",
		},
		[]string{"mode"},
	)

	AnswersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_answers_submitted_total",
			Help: "Answer submissions, by outcome",
		},
		[]string{"outcome"},
	)

	PageViewsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "course_page_views_closed_total",
			Help: "Page views closed and credited to a course view",
		},
	)

	PageViewSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "course_page_view_seconds",
			Help:    "Credited seconds per closed page view",
			Buckets: []float64{5, 30, 60, 180, 300, 600, 900},
		},
	)

	Retakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_retakes_total",
			Help: "Retake workflow events, by outcome",
		},
		[]string{"outcome"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(TestInstancesGenerated)
	prometheus.MustRegister(AnswersSubmitted)
	prometheus.MustRegister(PageViewsClosed)
	prometheus.MustRegister(PageViewSeconds)
	prometheus.MustRegister(Retakes)
}

func ModeLabel(isPractice bool) string {
	if isPractice {
		return "practice"
	}
	return "live"
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
