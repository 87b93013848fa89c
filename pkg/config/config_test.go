package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

adapters:
  http:
    enabled: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Adapters.HTTP.Port != 8080 {
		t.Errorf("Expected default HTTP port 8080, got %d", cfg.Adapters.HTTP.Port)
	}
	if cfg.Filesystem.MaxFiles != 32 {
		t.Errorf("Expected default max_files 32, got %d", cfg.Filesystem.MaxFiles)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Snapshots.Type != "memory" {
		t.Errorf("Expected default snapshot type 'memory', got %q", cfg.Snapshots.Type)
	}
	if !cfg.Adapters.HTTP.Enabled {
		t.Error("Expected HTTP adapter enabled when nothing is configured")
	}
}

func TestLoad_Geometry(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
filesystem:
  max_files: 128
  max_name_len: 32

adapters:
  http:
    enabled: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Filesystem.MaxFiles != 128 {
		t.Errorf("Expected max_files 128, got %d", cfg.Filesystem.MaxFiles)
	}
	if cfg.Filesystem.MaxLen != 32 {
		t.Errorf("Expected max_name_len 32, got %d", cfg.Filesystem.MaxLen)
	}
	if cfg.Filesystem.MaxSubdirFiles != 4 {
		t.Errorf("Expected default max_subdir_files 4, got %d", cfg.Filesystem.MaxSubdirFiles)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
adapters:
  fuse:
    enabled: true
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for FUSE adapter without mountpoint")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[snapshots]
enabled = true
type = "badger"

[adapters.http]
enabled = true
port = 8181
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Snapshots.Type != "badger" {
		t.Errorf("Expected snapshot type 'badger', got %q", cfg.Snapshots.Type)
	}
	if cfg.Adapters.HTTP.Port != 8181 {
		t.Errorf("Expected port 8181, got %d", cfg.Adapters.HTTP.Port)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("TINYFS_LOGGING_LEVEL", "ERROR")
	t.Setenv("TINYFS_ADAPTERS_HTTP_PORT", "5080")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

adapters:
  http:
    enabled: true
    port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.HTTP.Port != 5080 {
		t.Errorf("Expected port 5080 from env var, got %d", cfg.Adapters.HTTP.Port)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := GetDefaultConfigPath()
	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
	if filepath.Base(GetConfigDir()) != "tinyfs" {
		t.Errorf("Expected directory name 'tinyfs', got %q", filepath.Base(GetConfigDir()))
	}
}

func TestConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Fatal("Expected no config in a fresh XDG_CONFIG_HOME")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !ConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}
