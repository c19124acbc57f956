package monitoring

import (
	"strconv"
	"sync"
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

	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lab_attempts_started_total",
			Help: "Total number of lab attempts created",
		},
	)

	AttemptsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lab_attempts_closed_total",
			Help: "Total number of lab attempts closed, by reason",
		},
		[]string{"reason"},
	)

	TaskExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lab_task_executions_total",
			Help: "Total number of task executions recorded in the ledger, by status",
		},
		[]string{"status"},
	)

	GradePushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lab_grade_pushes_total",
			Help: "Gradebook pushes, by outcome",
		},
		[]string{"outcome"},
	)

	ExternalCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lab_external_call_duration_seconds",
			Help:    "Duration of calls to Alloy, Steamfitter and the gradebook",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15},
		},
		[]string{"service", "op", "outcome"},
	)
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			AttemptsClosed,
			TaskExecutions,
			GradePushes,
			ExternalCallDuration,
		)
	})
}

// ObserveCall 记录一次外部调用耗时
func ObserveCall(service, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ExternalCallDuration.WithLabelValues(service, op, outcome).Observe(time.Since(start).Seconds())
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
