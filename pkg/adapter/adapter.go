package adapter

import (
	"context"

	"github.com/marmos91/tinyfs/pkg/tinyfs"
)

// Adapter exposes a tinyfs.FileSystem through one external interface (a FUSE
// mount, an HTTP control API, ...) and is driven by server.TinyServer.
//
// Adapters map their own objects to block indices, add the "." and ".."
// pseudo-entries where their protocol needs them, and copy bytes across
// their boundary. All adapters of a server share one FileSystem.
//
// Lifecycle:
//  1. Creation: the adapter is built from its configuration section
//  2. Injection: SetFileSystem() provides the shared filesystem
//  3. Startup: Serve() runs the adapter and blocks until shutdown
//  4. Shutdown: Stop() releases listeners and mounts
//
// Thread safety:
// SetFileSystem() is called once before Serve(). Stop() may be called
// concurrently with Serve() and more than once.
type Adapter interface {
	// Serve runs the adapter until ctx is cancelled or it fails.
	//
	// Returning nil or context.Canceled after cancellation is a graceful
	// stop. Returning before cancellation is treated as a fatal error and
	// stops every other adapter.
	Serve(ctx context.Context) error

	// SetFileSystem injects the filesystem served by the adapter.
	SetFileSystem(fs *tinyfs.FileSystem)

	// Stop initiates shutdown. It must be idempotent and respect ctx's
	// deadline.
	Stop(ctx context.Context) error

	// Protocol returns a constant name for logging and metrics, e.g. "FUSE".
	Protocol() string

	// Port returns the TCP port the adapter listens on, or 0 if it does
	// not listen on the network.
	Port() int
}
