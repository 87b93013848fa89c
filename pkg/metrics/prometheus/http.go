package prometheus

import (
	"strconv"
	"time"

	"github.com/marmos91/tinyfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// httpMetrics is the Prometheus implementation of metrics.HTTPMetrics.
type httpMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter
}

// NewHTTPMetrics creates a new Prometheus-backed HTTPMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled.
func NewHTTPMetrics() metrics.HTTPMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopHTTPMetrics()
	}

	reg := metrics.GetRegistry()

	return &httpMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinyfs_http_requests_total",
				Help: "Total number of control API requests by route, method, and status code",
			},
			[]string{"route", "method", "code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tinyfs_http_request_duration_milliseconds",
				Help: "Duration of control API requests in milliseconds",
				Buckets: []float64{
					0.1, // 100µs
					1,   // 1ms
					10,  // 10ms
					100, // 100ms
				},
			},
			[]string{"route", "method"},
		),
		rateLimited: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "tinyfs_http_rate_limited_total",
				Help: "Total number of control API requests rejected by the rate limiter",
			},
		),
	}
}

func (m *httpMetrics) RecordRequest(route, method string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds() * 1000) // Convert to milliseconds
}

func (m *httpMetrics) RecordRateLimited() {
	m.rateLimited.Inc()
}
