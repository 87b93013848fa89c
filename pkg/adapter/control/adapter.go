// Package control implements an HTTP/JSON control API over a tinyfs
// filesystem: inspect blocks, manage entries, move file bytes and take
// snapshots without mounting anything.
package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/internal/ratelimiter"
	"github.com/marmos91/tinyfs/pkg/metrics"
	"github.com/marmos91/tinyfs/pkg/snapshot"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
)

// ControlAdapter implements adapter.Adapter for the HTTP control API.
//
// Routes are served by an httprouter.Router wrapped in the rate limiter.
// Snapshot routes are registered only when a snapshot store is configured.
//
// POST /v1/reset and snapshot restore replace the whole tree. Running them
// while the FUSE adapter has the filesystem mounted is unsupported: the
// kernel keeps its cached nodes, which may then alias reused block indices.
//
// Thread safety:
// Serve is called once. Stop is idempotent and may race with Serve.
type ControlAdapter struct {
	config    Config
	fs        *tinyfs.FileSystem
	snapshots snapshot.Store
	metrics   metrics.HTTPMetrics
	limiter   *ratelimiter.RateLimiter

	server       *http.Server
	serverMu     sync.Mutex
	shutdownOnce sync.Once

	// port is the bound port, which differs from config.Port when it is 0
	port atomic.Int32
}

// New creates a ControlAdapter. snapshots and httpMetrics may be nil.
//
// Panics if config validation fails.
func New(config Config, snapshots snapshot.Store, httpMetrics metrics.HTTPMetrics) *ControlAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid control config: %v", err))
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	a := &ControlAdapter{
		config:    config,
		snapshots: snapshots,
		metrics:   httpMetrics,
		limiter:   ratelimiter.New(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst),
	}
	a.port.Store(int32(config.Port))
	return a
}

// SetFileSystem implements adapter.Adapter.
func (a *ControlAdapter) SetFileSystem(fs *tinyfs.FileSystem) {
	a.fs = fs
}

// Handler returns the rate-limited router. Serve uses it; tests can mount
// it on an httptest.Server.
func (a *ControlAdapter) Handler() http.Handler {
	router := httprouter.New()

	a.handle(router, http.MethodGet, "/v1/fs", a.statFS)
	a.handle(router, http.MethodPost, "/v1/reset", a.reset)

	a.handle(router, http.MethodGet, "/v1/blocks/:index", a.stat)
	a.handle(router, http.MethodGet, "/v1/blocks/:index/children", a.listChildren)
	a.handle(router, http.MethodPost, "/v1/blocks/:index/children", a.create)
	a.handle(router, http.MethodGet, "/v1/blocks/:index/children/:name", a.lookup)
	a.handle(router, http.MethodDelete, "/v1/blocks/:index/children/:name", a.remove)
	a.handle(router, http.MethodGet, "/v1/blocks/:index/data", a.read)
	a.handle(router, http.MethodPut, "/v1/blocks/:index/data", a.write)
	a.handle(router, http.MethodPut, "/v1/blocks/:index/size", a.truncate)

	if a.snapshots != nil {
		a.handle(router, http.MethodGet, "/v1/snapshots", a.listSnapshots)
		a.handle(router, http.MethodPost, "/v1/snapshots", a.saveSnapshot)
		a.handle(router, http.MethodPost, "/v1/snapshots/:id/restore", a.restoreSnapshot)
		a.handle(router, http.MethodDelete, "/v1/snapshots/:id", a.deleteSnapshot)
	}

	return a.limiter.Middleware(router, a.metrics.RecordRateLimited)
}

// handle registers h and records its status and latency under the route
// pattern rather than the concrete path.
func (a *ControlAdapter) handle(router *httprouter.Router, method, route string, h httprouter.Handle) {
	router.Handle(method, route, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r, ps)
		a.metrics.RecordRequest(route, method, rec.status, time.Since(start))
	})
}

// Serve implements adapter.Adapter.
func (a *ControlAdapter) Serve(ctx context.Context) error {
	if a.fs == nil {
		return errors.New("control adapter: no filesystem set")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.Port))
	if err != nil {
		return fmt.Errorf("failed to create control listener on port %d: %w", a.config.Port, err)
	}
	a.port.Store(int32(listener.Addr().(*net.TCPAddr).Port))

	server := &http.Server{
		Handler:      a.Handler(),
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
	}
	a.serverMu.Lock()
	a.server = server
	a.serverMu.Unlock()

	logger.Info("Control API listening on port %d", a.Port())
	logger.Debug("Control config: read_timeout=%v write_timeout=%v rate_limit=%d/s burst=%d",
		a.config.ReadTimeout, a.config.WriteTimeout, a.config.RateLimit.RequestsPerSecond, a.config.RateLimit.Burst)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Control API shutdown signal received: %v", ctx.Err())
		stopCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		if err := a.Stop(stopCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err, ok := <-errChan:
		if !ok {
			// Stop was called directly
			return nil
		}
		return fmt.Errorf("control API failed: %w", err)
	}
}

// Stop implements adapter.Adapter.
func (a *ControlAdapter) Stop(ctx context.Context) error {
	a.serverMu.Lock()
	server := a.server
	a.serverMu.Unlock()

	if server == nil {
		return nil
	}

	var shutdownErr error
	a.shutdownOnce.Do(func() {
		if err := server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("control API shutdown error: %w", err)
			return
		}
		logger.Info("Control API stopped")
	})
	return shutdownErr
}

// Protocol implements adapter.Adapter.
func (a *ControlAdapter) Protocol() string {
	return "HTTP"
}

// Port implements adapter.Adapter.
func (a *ControlAdapter) Port() int {
	return int(a.port.Load())
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
