package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// section is one top-level key of the generated file with its comment.
type section struct {
	key     string
	comment string
	value   any
}

// InitConfig writes the default configuration to GetDefaultConfigPath and
// returns that path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path, creating the
// parent directory if needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := GenerateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateYAMLWithComments renders cfg as YAML, one commented block per
// top-level section.
func GenerateYAMLWithComments(cfg *Config) (string, error) {
	sections := []section{
		{"logging", "Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json), output (stdout, stderr, path)", cfg.Logging},
		{"server", "Server-wide settings. Metrics are exposed on /metrics when enabled", cfg.Server},
		{"filesystem", "Arena capacities. Names keep at most max_name_len-1 bytes", cfg.Filesystem},
		{"snapshots", "Volatile snapshots of the whole tree (type: memory, badger)", cfg.Snapshots},
		{"adapters", "Protocol adapters. At least one must be enabled", cfg.Adapters},
	}

	var buf bytes.Buffer
	buf.WriteString("# tinyfs Configuration File\n")
	buf.WriteString("#\n")
	buf.WriteString("# Environment variables override this file, e.g. TINYFS_LOGGING_LEVEL=DEBUG\n")

	for _, s := range sections {
		out, err := yaml.Marshal(map[string]any{s.key: s.value})
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s section: %w", s.key, err)
		}
		fmt.Fprintf(&buf, "\n# %s\n", s.comment)
		buf.Write(out)
	}

	return buf.String(), nil
}
