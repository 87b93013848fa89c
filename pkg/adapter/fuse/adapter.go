//go:build linux || freebsd

package fuse

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
)

// FUSEAdapter mounts the filesystem at Config.Mountpoint and serves kernel
// requests until the context is cancelled or Stop is called.
//
// The kernel caches nodes by block index. Resetting the filesystem or
// restoring a snapshot while mounted leaves those cached nodes pointing at
// indices that may now hold other blocks, so both are unsupported with an
// active mount.
//
// Thread safety:
// Serve must be called once. Stop is safe to call concurrently and more
// than once; a failed unmount can be retried.
type FUSEAdapter struct {
	config Config
	fs     *tinyfs.FileSystem

	// stopMu serializes unmount attempts
	stopMu  sync.Mutex
	mounted atomic.Bool
}

// unmount is swapped in tests.
var unmount = fuse.Unmount

// New creates a FUSEAdapter. It panics if the config is invalid.
func New(config Config) *FUSEAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid FUSE config: %v", err))
	}
	return &FUSEAdapter{config: config}
}

// SetFileSystem injects the filesystem to serve. Called by the server
// before Serve.
func (a *FUSEAdapter) SetFileSystem(fs *tinyfs.FileSystem) {
	a.fs = fs
}

// Serve mounts the filesystem and blocks until the mount goes away.
// Cancelling ctx unmounts and returns ctx.Err(), joined with the unmount
// error when the kernel refuses to let go of the mountpoint.
func (a *FUSEAdapter) Serve(ctx context.Context) error {
	if a.fs == nil {
		return fmt.Errorf("fuse: no filesystem set")
	}

	options := []fuse.MountOption{
		fuse.FSName(a.config.FSName),
		fuse.Subtype("tinyfs"),
	}
	if a.config.AllowOther {
		options = append(options, fuse.AllowOther())
	}

	conn, err := fuse.Mount(a.config.Mountpoint, options...)
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", a.config.Mountpoint, err)
	}
	defer conn.Close()
	a.mounted.Store(true)

	logger.Info("FUSE filesystem mounted at %s", a.config.Mountpoint)

	errChan := make(chan error, 1)
	go func() {
		errChan <- fusefs.Serve(conn, NewFS(a.fs))
	}()

	return a.wait(ctx, errChan)
}

// wait blocks until the serve loop ends or ctx is done. fusefs.Serve only
// returns once the kernel drops the mount, so a failed unmount (EBUSY while
// a process sits inside the mountpoint) returns right away instead of
// waiting on errChan.
func (a *FUSEAdapter) wait(ctx context.Context, errChan <-chan error) error {
	select {
	case <-ctx.Done():
		logger.Debug("FUSE shutdown signal received: %v", ctx.Err())
		if err := a.Stop(context.Background()); err != nil {
			logger.Warn("FUSE unmount failed, abandoning serve loop: %v", err)
			return fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		<-errChan
		return ctx.Err()

	case err := <-errChan:
		a.mounted.Store(false)
		if err != nil {
			return fmt.Errorf("fuse serve error: %w", err)
		}
		logger.Info("FUSE filesystem at %s unmounted", a.config.Mountpoint)
		return nil
	}
}

// Stop unmounts the filesystem, which makes Serve return. It is a no-op when
// nothing is mounted.
func (a *FUSEAdapter) Stop(ctx context.Context) error {
	a.stopMu.Lock()
	defer a.stopMu.Unlock()

	if !a.mounted.Load() {
		return nil
	}
	logger.Debug("unmounting %s", a.config.Mountpoint)
	if err := unmount(a.config.Mountpoint); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", a.config.Mountpoint, err)
	}
	a.mounted.Store(false)
	return nil
}

// Protocol returns "FUSE".
func (a *FUSEAdapter) Protocol() string {
	return "FUSE"
}

// Port returns 0: the adapter does not listen on the network.
func (a *FUSEAdapter) Port() int {
	return 0
}
