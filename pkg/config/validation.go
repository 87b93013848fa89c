package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tags cover the per-field checks; validateCustomRules covers the
// cross-field ones.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if err := cfg.Filesystem.Validate(); err != nil {
		return fmt.Errorf("filesystem: %w", err)
	}

	if !cfg.Adapters.FUSE.Enabled && !cfg.Adapters.HTTP.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	if cfg.Adapters.FUSE.Enabled && cfg.Adapters.FUSE.Mountpoint == "" {
		return fmt.Errorf("adapters.fuse: mountpoint is required when the adapter is enabled")
	}

	if cfg.Adapters.HTTP.Enabled && cfg.Server.Metrics.Enabled &&
		cfg.Adapters.HTTP.Port == cfg.Server.Metrics.Port {
		return fmt.Errorf("server.metrics: port %d already used by adapters.http", cfg.Server.Metrics.Port)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
