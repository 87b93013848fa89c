// Package metrics provides Prometheus metrics collection for tinyfs components.
//
// All metrics are optional - if the registry is not initialized, components use
// no-op implementations with zero overhead, so the filesystem core runs the
// same with or without observability.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	fsMetrics := prometheus.NewFSMetrics()
//	fs, _ := tinyfs.New(ctx, tinyfs.Config{Metrics: fsMetrics})
//
//	// Or use nil for no-op behavior
//	fs, _ := tinyfs.New(ctx, tinyfs.Config{})
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all tinyfs metrics.
	// Written once under registryOnce, read many times afterwards.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Must be called before creating metrics instances. Subsequent calls are
// ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil when metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
