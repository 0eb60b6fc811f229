// Package middleware provides HTTP middleware and Prometheus
// instrumentation for both the HTTP surface and the background poller.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	pollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquawiz_poll_cycles_total",
			Help: "Total number of poll cycles against the AquaWiz cloud API",
		},
		[]string{"result"},
	)

	pollDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aquawiz_poll_duration_seconds",
			Help:    "Duration of a full poll cycle in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	backfillRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aquawiz_backfill_runs_total",
			Help: "Total number of historical backfill attempts",
		},
		[]string{"result"},
	)

	backfillPointsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aquawiz_backfill_points_total",
			Help: "Total number of statistic points written during backfill",
		},
	)
)

// RecordPollCycle records the outcome and duration of one poll cycle.
// Result is "success" or "error".
func RecordPollCycle(result string, duration time.Duration) {
	pollCyclesTotal.WithLabelValues(result).Inc()
	pollDurationSeconds.Observe(duration.Seconds())
}

// RecordBackfill records the outcome of the one-shot historical backfill
// and the number of statistic points it produced.
func RecordBackfill(result string, points int) {
	backfillRunsTotal.WithLabelValues(result).Inc()
	backfillPointsTotal.Add(float64(points))
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Metrics returns middleware that records request counts and latency.
func Metrics() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler returns the Prometheus scrape endpoint handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
