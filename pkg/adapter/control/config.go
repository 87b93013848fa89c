package control

import (
	"fmt"
	"time"
)

// Config holds the HTTP control adapter settings.
//
// Default values (applied by New if zero):
//   - Port: 8080
//   - ReadTimeout: 10s
//   - WriteTimeout: 10s
//   - ShutdownTimeout: 10s
//   - RateLimit: 0 requests/s (unlimited)
type Config struct {
	// Enabled controls whether the control adapter is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Port is the TCP port of the control API. 0 selects the default.
	Port int `mapstructure:"port" yaml:"port" json:"port" validate:"min=0,max=65535"`

	// ReadTimeout bounds reading one request, body included.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing one response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout" validate:"min=0"`

	// ShutdownTimeout bounds the graceful drain of in-flight requests.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"min=0"`

	// RateLimit throttles the whole API.
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig configures the token bucket in front of the API.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. 0 disables limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second"`

	// Burst is the bucket size.
	Burst uint `mapstructure:"burst" yaml:"burst" json:"burst"`
}

func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = c.RateLimit.RequestsPerSecond * 2
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return nil
}
