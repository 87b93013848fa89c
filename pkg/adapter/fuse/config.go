// Package fuse mounts a tinyfs filesystem through the kernel FUSE interface
// using bazil.org/fuse. Mounting is supported on Linux and FreeBSD; other
// platforms get an adapter whose Serve returns ErrNotSupported.
package fuse

import (
	"errors"
	"fmt"
)

// ErrNotSupported is returned by Serve on platforms without FUSE support.
var ErrNotSupported = errors.New("fuse: mounting is not supported on this platform")

// Config holds the FUSE adapter settings.
type Config struct {
	// Enabled controls whether the FUSE adapter is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Mountpoint is an existing, empty directory. Required when enabled.
	Mountpoint string `mapstructure:"mountpoint" yaml:"mountpoint" json:"mountpoint"`

	// AllowOther lets users other than the mounting user access the mount.
	AllowOther bool `mapstructure:"allow_other" yaml:"allow_other" json:"allow_other"`

	// FSName is the source name shown by mount(8). Default: "tinyfs".
	FSName string `mapstructure:"fs_name" yaml:"fs_name" json:"fs_name"`
}

func (c *Config) applyDefaults() {
	if c.FSName == "" {
		c.FSName = "tinyfs"
	}
}

func (c *Config) validate() error {
	if c.Mountpoint == "" {
		return fmt.Errorf("mountpoint is required")
	}
	return nil
}
