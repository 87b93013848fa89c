// Package server runs a set of protocol adapters over one shared filesystem.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/pkg/adapter"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
	"go.uber.org/multierr"
)

// DefaultStopTimeout bounds the Stop calls issued during shutdown.
const DefaultStopTimeout = 30 * time.Second

// ErrAlreadyServed is returned by a second call to Serve.
var ErrAlreadyServed = errors.New("server: Serve has already been called")

// TinyServer manages the lifecycle of the protocol adapters that expose one
// tinyfs filesystem.
//
// Every adapter sees the same FileSystem, so a file created through the FUSE
// mount is immediately visible through the HTTP control API and vice versa.
//
// Lifecycle:
//  1. Creation: New() with the filesystem
//  2. Registration: AddAdapter() for each protocol
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation or the first adapter failure stops all
//     adapters in reverse registration order
//
// Thread safety:
// AddAdapter may be called concurrently until Serve is called. Serve runs at
// most once.
type TinyServer struct {
	fs *tinyfs.FileSystem

	// mu protects adapters and served
	mu       sync.RWMutex
	adapters []adapter.Adapter
	served   bool

	stopTimeout time.Duration
}

// New creates a TinyServer around fs. It panics if fs is nil.
func New(fs *tinyfs.FileSystem) *TinyServer {
	if fs == nil {
		panic("filesystem cannot be nil")
	}

	return &TinyServer{
		fs:          fs,
		adapters:    make([]adapter.Adapter, 0, 2),
		stopTimeout: DefaultStopTimeout,
	}
}

// SetStopTimeout overrides DefaultStopTimeout. Non-positive values are ignored.
func (s *TinyServer) SetStopTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.stopTimeout = d
	s.mu.Unlock()
}

// AddAdapter injects the filesystem into a and registers it.
//
// Protocols must be unique, and so must non-zero ports. Adapters that do not
// listen on the network report port 0 and never conflict.
//
// Panics if a is nil or Serve has already been called.
func (s *TinyServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetFileSystem(s.fs)
	s.adapters = append(s.adapters, a)

	if port != 0 {
		logger.Info("Registered %s adapter on port %d", protocol, port)
	} else {
		logger.Info("Registered %s adapter", protocol)
	}
	return nil
}

// Serve starts all registered adapters and blocks until ctx is cancelled or
// an adapter fails. Either way every adapter is stopped and awaited.
//
// Returns ctx.Err() after a cancellation, the wrapped adapter error after a
// failure, and ErrAlreadyServed on every call after the first.
func (s *TinyServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	stopTimeout := s.stopTimeout
	s.mu.Unlock()

	if len(adapters) == 0 {
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}

	logger.Info("Starting tinyfs server with %d adapter(s)", len(adapters))

	// Adapters that have not finished starting when another one fails can
	// miss Stop, so they also watch serveCtx
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so failing adapters never block after shutdown began
	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Debug("Starting %s adapter", protocol)

			err := a.Serve(serveCtx)
			switch {
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
			case errors.Is(err, context.Canceled) || serveCtx.Err() != nil:
				logger.Debug("%s adapter stopped gracefully", protocol)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	cancel()
	if err := stopAllAdapters(adapters, stopTimeout); err != nil {
		logger.Warn("Errors while stopping adapters: %v", err)
	}

	wg.Wait()
	logger.Info("tinyfs server stopped")

	return shutdownErr
}

type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters calls Stop on every adapter in reverse registration order
// and combines the failures.
func stopAllAdapters(adapters []adapter.Adapter, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs error
	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = multierr.Append(errs, fmt.Errorf("stop %s: %w", adp.Protocol(), err))
			continue
		}
		logger.Debug("%s adapter stop signal sent", adp.Protocol())
	}
	return errs
}

// Adapters returns a copy of the registered adapters.
func (s *TinyServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
