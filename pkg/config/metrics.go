package config

import (
	"github.com/marmos91/tinyfs/pkg/metrics"
	promMetrics "github.com/marmos91/tinyfs/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// FSMetrics observes filesystem operations (never nil, no-op if disabled)
	FSMetrics metrics.FSMetrics

	// HTTPMetrics observes control API requests (never nil, no-op if disabled)
	HTTPMetrics metrics.HTTPMetrics
}

// InitializeMetrics creates the metrics components described by cfg.
//
// When metrics are disabled the server is nil and the collectors are no-ops.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			FSMetrics:   metrics.NewNoopFSMetrics(),
			HTTPMetrics: metrics.NewNoopHTTPMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Server.Metrics.Port,
		}),
		FSMetrics:   promMetrics.NewFSMetrics(),
		HTTPMetrics: promMetrics.NewHTTPMetrics(),
	}
}
