package config

import (
	"strings"
	"time"

	"github.com/marmos91/tinyfs/pkg/adapter/fuse"
	"github.com/marmos91/tinyfs/pkg/block"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific map keys are filled for every store type, so a
//     generated config file documents all of them
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyGeometryDefaults(&cfg.Filesystem)
	applySnapshotsDefaults(&cfg.Snapshots)
	applyAdaptersDefaults(&cfg.Adapters)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyGeometryDefaults fills each zero capacity from block.DefaultGeometry.
func applyGeometryDefaults(cfg *block.Geometry) {
	def := block.DefaultGeometry()

	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = def.MaxFiles
	}
	if cfg.MaxSubdirFiles == 0 {
		cfg.MaxSubdirFiles = def.MaxSubdirFiles
	}
	if cfg.MaxLen == 0 {
		cfg.MaxLen = def.MaxLen
	}
	if cfg.FileBufferSize == 0 {
		cfg.FileBufferSize = def.FileBufferSize
	}
}

func applySnapshotsDefaults(cfg *SnapshotsConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.MaxSnapshots == 0 {
		cfg.MaxSnapshots = 16
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if _, ok := cfg.Badger["block_cache_mb"]; !ok {
		cfg.Badger["block_cache_mb"] = 16
	}
	if _, ok := cfg.Badger["index_cache_mb"]; !ok {
		cfg.Badger["index_cache_mb"] = 8
	}
}

func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// A config without any adapter section (no file at all, typically)
	// gets the HTTP control API so it passes validation. An explicit
	// port marks the section as configured and is left alone.
	if !cfg.FUSE.Enabled && !cfg.HTTP.Enabled && cfg.HTTP.Port == 0 {
		cfg.HTTP.Enabled = true
	}

	if cfg.FUSE.FSName == "" {
		cfg.FUSE.FSName = "tinyfs"
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 10 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.RateLimit.RequestsPerSecond > 0 && cfg.HTTP.RateLimit.Burst == 0 {
		cfg.HTTP.RateLimit.Burst = cfg.HTTP.RateLimit.RequestsPerSecond * 2
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Snapshots: SnapshotsConfig{
			Enabled: true,
		},
		Adapters: AdaptersConfig{
			FUSE: fuse.Config{Mountpoint: "/mnt/tinyfs"},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
