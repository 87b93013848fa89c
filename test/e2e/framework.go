//go:build e2e && linux

// Package e2e mounts a real tinyfs through FUSE and drives it with ordinary
// file operations, checking the results through the HTTP control API.
//
// The tests need /dev/fuse and root privileges:
//
//	sudo go test -tags e2e ./test/e2e/...
package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/pkg/adapter/control"
	"github.com/marmos91/tinyfs/pkg/adapter/fuse"
	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/server"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
)

// TestContext provides a complete testing environment with:
// - a running server with the FUSE and HTTP adapters
// - the filesystem mounted in a temporary directory
// - cleanup mechanisms
type TestContext struct {
	T         *testing.T
	FS        *tinyfs.FileSystem
	Server    *server.TinyServer
	MountPath string
	APIURL    string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewTestContext starts a server over a filesystem with the given geometry
// and mounts it. The test is skipped when FUSE is unavailable.
func NewTestContext(t *testing.T, geom block.Geometry) *TestContext {
	t.Helper()

	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("FUSE is not available: /dev/fuse missing")
	}
	if os.Geteuid() != 0 {
		t.Skip("FUSE e2e tests must run as root")
	}

	logger.SetLevel("ERROR")

	ctx, cancel := context.WithCancel(context.Background())
	tc := &TestContext{T: t, ctx: ctx, cancel: cancel, MountPath: t.TempDir()}

	fs, err := tinyfs.New(ctx, tinyfs.Config{Geometry: geom})
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}
	tc.FS = fs

	port := findFreePort(t)
	tc.APIURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	tc.Server = server.New(fs)
	tc.Server.SetStopTimeout(5 * time.Second)
	if err := tc.Server.AddAdapter(fuse.New(fuse.Config{Enabled: true, Mountpoint: tc.MountPath})); err != nil {
		t.Fatalf("Failed to add FUSE adapter: %v", err)
	}
	if err := tc.Server.AddAdapter(control.New(control.Config{Enabled: true, Port: port}, nil, nil)); err != nil {
		t.Fatalf("Failed to add HTTP adapter: %v", err)
	}

	tc.wg.Add(1)
	go func() {
		defer tc.wg.Done()
		if err := tc.Server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.Logf("Server error: %v", err)
		}
	}()

	t.Cleanup(tc.Cleanup)
	tc.waitForMount()
	return tc
}

// waitForMount waits until the mount shows up in /proc/self/mounts and the
// control API accepts connections.
func (tc *TestContext) waitForMount() {
	tc.T.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if isMounted(tc.MountPath) {
			conn, err := net.DialTimeout("tcp", strings.TrimPrefix(tc.APIURL, "http://"), time.Second)
			if err == nil {
				_ = conn.Close()
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	tc.T.Fatal("Timeout waiting for the FUSE mount")
}

// Cleanup unmounts the filesystem and stops the server.
func (tc *TestContext) Cleanup() {
	tc.cancel()
	tc.wg.Wait()
}

// Path returns the absolute path for a relative path within the mount.
func (tc *TestContext) Path(relativePath string) string {
	return filepath.Join(tc.MountPath, relativePath)
}

// GetJSON decodes the control API response for path into v.
func (tc *TestContext) GetJSON(path string, v any) int {
	tc.T.Helper()

	resp, err := http.Get(tc.APIURL + path)
	if err != nil {
		tc.T.Fatalf("GET %s failed: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		tc.T.Fatalf("Failed to decode %s: %v", path, err)
	}
	return resp.StatusCode
}

// Post sends a JSON body to the control API and returns the status code.
func (tc *TestContext) Post(path, body string) int {
	tc.T.Helper()

	resp, err := http.Post(tc.APIURL+path, "application/json", strings.NewReader(body))
	if err != nil {
		tc.T.Fatalf("POST %s failed: %v", path, err)
	}
	_ = resp.Body.Close()
	return resp.StatusCode
}

func isMounted(path string) bool {
	data, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 1 && fields[1] == path {
			return true
		}
	}
	return false
}

func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port
}
