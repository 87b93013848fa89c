package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ValidConfig", func(*Config) {}, ""},
		{"InvalidLogLevel", func(c *Config) { c.Logging.Level = "INVALID" }, "oneof"},
		{"InvalidLogFormat", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"MissingLogOutput", func(c *Config) { c.Logging.Output = "" }, "required"},
		{"ZeroShutdownTimeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "required"},
		{"InvalidSnapshotType", func(c *Config) { c.Snapshots.Type = "s3" }, "oneof"},
		{"NegativeMaxSnapshots", func(c *Config) { c.Snapshots.MaxSnapshots = -1 }, "min"},
		{"InvalidMetricsPort", func(c *Config) { c.Server.Metrics.Port = 70000 }, "max"},
		{"InvalidGeometry", func(c *Config) { c.Filesystem.MaxLen = 1 }, "max_name_len"},
		{"NoAdapters", func(c *Config) { c.Adapters.HTTP.Enabled = false }, "at least one adapter"},
		{"FUSEWithoutMountpoint", func(c *Config) {
			c.Adapters.FUSE.Enabled = true
			c.Adapters.FUSE.Mountpoint = ""
		}, "mountpoint is required"},
		{"MetricsPortClash", func(c *Config) {
			c.Server.Metrics.Enabled = true
			c.Server.Metrics.Port = c.Adapters.HTTP.Port
		}, "already used"},
		{"MetricsPortClashIgnoredWhenDisabled", func(c *Config) {
			c.Server.Metrics.Port = c.Adapters.HTTP.Port
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
