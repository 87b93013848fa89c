package metrics_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/tinyfs/pkg/metrics"
	"github.com/marmos91/tinyfs/pkg/metrics/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestHandlerExposesFSMetrics(t *testing.T) {
	metrics.InitRegistry()
	m := prometheus.NewFSMetrics()
	m.SetBlockCapacity(32)
	m.RecordOperation("Create", time.Millisecond, "")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tinyfs_")
}

func TestServerStartAndCancel(t *testing.T) {
	metrics.InitRegistry()
	port := freePort(t)
	srv := metrics.NewServer(metrics.ServerConfig{Port: port, ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get("http://127.0.0.1:" + strconv.Itoa(port) + "/")
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 2*time.Second, 20*time.Millisecond)

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "/metrics"))
	assert.Equal(t, port, srv.Port())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	// Stop after shutdown is a no-op
	assert.NoError(t, srv.Stop(context.Background()))
}

func TestServerPortInUse(t *testing.T) {
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer l.Close()

	srv := metrics.NewServer(metrics.ServerConfig{Port: l.Addr().(*net.TCPAddr).Port})
	err = srv.Start(context.Background())
	assert.Error(t, err)
}
