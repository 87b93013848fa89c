package prometheus

import (
	"time"

	"github.com/marmos91/tinyfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// fsMetrics is the Prometheus implementation of metrics.FSMetrics.
type fsMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTotal        *prometheus.CounterVec
	blocksInUse       prometheus.Gauge
	blockCapacity     prometheus.Gauge
}

// NewFSMetrics creates a new Prometheus-backed FSMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewFSMetrics() metrics.FSMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopFSMetrics()
	}

	reg := metrics.GetRegistry()

	return &fsMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinyfs_operations_total",
				Help: "Total number of filesystem operations by operation, status, and error code",
			},
			[]string{"operation", "status", "error_code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tinyfs_operation_duration_seconds",
				Help: "Duration of filesystem operations in seconds",
				Buckets: []float64{
					0.000001, // 1µs
					0.00001,  // 10µs
					0.0001,   // 100µs
					0.001,    // 1ms
					0.01,     // 10ms
				},
			},
			[]string{"operation"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tinyfs_bytes_total",
				Help: "Total file payload bytes read or written",
			},
			[]string{"direction"},
		),
		blocksInUse: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "tinyfs_blocks_in_use",
				Help: "Current number of allocated blocks, root included",
			},
		),
		blockCapacity: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "tinyfs_block_capacity",
				Help: "Total number of blocks of the arena",
			},
		),
	}
}

func (m *fsMetrics) RecordOperation(operation string, duration time.Duration, errorCode string) {
	status := "success"
	if errorCode != "" {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, status, errorCode).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *fsMetrics) RecordBytes(direction string, bytes int) {
	m.bytesTotal.WithLabelValues(direction).Add(float64(bytes))
}

func (m *fsMetrics) SetBlocksInUse(count int) {
	m.blocksInUse.Set(float64(count))
}

func (m *fsMetrics) SetBlockCapacity(count int) {
	m.blockCapacity.Set(float64(count))
}
