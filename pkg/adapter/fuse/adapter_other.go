//go:build !(linux || freebsd)

package fuse

import (
	"context"
	"fmt"

	"github.com/marmos91/tinyfs/pkg/tinyfs"
)

// FUSEAdapter is a placeholder on platforms without FUSE support.
type FUSEAdapter struct {
	config Config
}

// New creates a FUSEAdapter. It panics if the config is invalid.
func New(config Config) *FUSEAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid FUSE config: %v", err))
	}
	return &FUSEAdapter{config: config}
}

// SetFileSystem is a no-op; there is nothing to serve it through.
func (a *FUSEAdapter) SetFileSystem(*tinyfs.FileSystem) {}

// Serve always returns ErrNotSupported.
func (a *FUSEAdapter) Serve(context.Context) error {
	return ErrNotSupported
}

// Stop is a no-op since nothing is ever mounted.
func (a *FUSEAdapter) Stop(context.Context) error { return nil }

// Protocol returns "FUSE".
func (a *FUSEAdapter) Protocol() string { return "FUSE" }

// Port returns 0: the adapter does not listen on the network.
func (a *FUSEAdapter) Port() int { return 0 }
