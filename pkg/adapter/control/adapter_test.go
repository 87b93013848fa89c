package control

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/snapshot"
	"github.com/marmos91/tinyfs/pkg/snapshot/memory"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	t      *testing.T
	fs     *tinyfs.FileSystem
	server *httptest.Server
}

func newTestAPI(t *testing.T, cfg Config) *testAPI {
	t.Helper()
	fs := tinyfs.NewWithDefaults()
	a := New(cfg, memory.NewMemorySnapshotStore(memory.Config{}), nil)
	a.SetFileSystem(fs)

	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)
	return &testAPI{t: t, fs: fs, server: server}
}

func (api *testAPI) do(method, path string, body []byte) *http.Response {
	api.t.Helper()
	req, err := http.NewRequest(method, api.server.URL+path, bytes.NewReader(body))
	require.NoError(api.t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(api.t, err)
	api.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (api *testAPI) doJSON(method, path string, in any, out any) int {
	api.t.Helper()
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		require.NoError(api.t, err)
	}
	resp := api.do(method, path, body)
	if out != nil {
		require.NoError(api.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestNamespaceRoutes(t *testing.T) {
	api := newTestAPI(t, Config{})

	var created block.DirEntry
	status := api.doJSON(http.MethodPost, "/v1/blocks/1/children", createRequest{Name: "docs", Type: "dir"}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "docs", created.Name)
	assert.Equal(t, block.Index(2), created.Target)

	var attr attrResponse
	status = api.doJSON(http.MethodGet, "/v1/blocks/2", nil, &attr)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dir", attr.Type)
	assert.Equal(t, "drwxr-xr-x", attr.Mode)

	var entries entriesResponse
	status = api.doJSON(http.MethodGet, "/v1/blocks/1/children", nil, &entries)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []block.DirEntry{{Name: "docs", Target: 2}}, entries.Entries)

	var found block.DirEntry
	status = api.doJSON(http.MethodGet, "/v1/blocks/1/children/docs", nil, &found)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, block.Index(2), found.Target)

	resp := api.do(http.MethodDelete, "/v1/blocks/1/children/docs?dir=true", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var st tinyfs.FSStat
	status = api.doJSON(http.MethodGet, "/v1/fs", nil, &st)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, st.UsedBlocks)
}

func TestFileRoutes(t *testing.T) {
	api := newTestAPI(t, Config{})

	var created block.DirEntry
	require.Equal(t, http.StatusCreated,
		api.doJSON(http.MethodPost, "/v1/blocks/1/children", createRequest{Name: "f", Type: "file"}, &created))

	var written writeResponse
	resp := api.do(http.MethodPut, "/v1/blocks/2/data?offset=0", []byte("hello"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&written))
	assert.Equal(t, 5, written.Written)

	resp = api.do(http.MethodGet, "/v1/blocks/2/data?offset=1&length=3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ell", string(data))

	require.Equal(t, http.StatusNoContent, api.do(http.MethodPut, "/v1/blocks/2/size", []byte(`{"size":2}`)).StatusCode)
	resp = api.do(http.MethodGet, "/v1/blocks/2/data", nil)
	data, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "he", string(data))

	resp = api.do(http.MethodPut, "/v1/blocks/2/data", bytes.Repeat([]byte("x"), block.FileBufferSize+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestFileRoutesHugeQueryValues(t *testing.T) {
	api := newTestAPI(t, Config{})

	require.Equal(t, http.StatusCreated,
		api.doJSON(http.MethodPost, "/v1/blocks/1/children", createRequest{Name: "f", Type: "file"}, nil))
	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/v1/blocks/2/data", []byte("hello")).StatusCode)

	resp := api.do(http.MethodGet, "/v1/blocks/2/data?offset=1&length=9223372036854775807", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ello", string(data))

	resp = api.do(http.MethodPut, "/v1/blocks/2/data?offset=9223372036854775805", []byte("hello"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t, Config{})
	for i, name := range []string{"a", "b", "c", "d"} {
		var created block.DirEntry
		require.Equal(t, http.StatusCreated,
			api.doJSON(http.MethodPost, "/v1/blocks/1/children", createRequest{Name: name, Type: "dir"}, &created), "entry %d", i)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"NotFound", http.MethodGet, "/v1/blocks/1/children/zzz", nil, http.StatusNotFound, "NotFound"},
		{"FreeBlock", http.MethodGet, "/v1/blocks/20", nil, http.StatusNotFound, "InvalidHandle"},
		{"BadIndex", http.MethodGet, "/v1/blocks/abc", nil, http.StatusBadRequest, "InvalidArgument"},
		{"DirectoryFull", http.MethodPost, "/v1/blocks/1/children", createRequest{Name: "e", Type: "file"}, http.StatusInsufficientStorage, "DirectoryFull"},
		{"CreateInSubdir", http.MethodPost, "/v1/blocks/2/children", createRequest{Name: "x", Type: "file"}, http.StatusCreated, ""},
		{"Duplicate", http.MethodPost, "/v1/blocks/2/children", createRequest{Name: "x", Type: "file"}, http.StatusConflict, "AlreadyExists"},
		{"NotEmpty", http.MethodDelete, "/v1/blocks/1/children/a?dir=true", nil, http.StatusConflict, "NotEmpty"},
		{"BadType", http.MethodPost, "/v1/blocks/3/children", createRequest{Name: "y", Type: "fifo"}, http.StatusBadRequest, "InvalidArgument"},
		{"ReadDirectory", http.MethodGet, "/v1/blocks/1/data", nil, http.StatusBadRequest, "IsADirectory"},
		{"SnapshotNotFound", http.MethodPost, "/v1/snapshots/nope/restore", nil, http.StatusNotFound, "SnapshotNotFound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp errorResponse
			status := api.doJSON(tt.method, tt.path, tt.body, &resp)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestSnapshotRoutes(t *testing.T) {
	api := newTestAPI(t, Config{})

	var created block.DirEntry
	require.Equal(t, http.StatusCreated,
		api.doJSON(http.MethodPost, "/v1/blocks/1/children", createRequest{Name: "keep", Type: "file"}, &created))

	var info snapshot.Info
	require.Equal(t, http.StatusCreated, api.doJSON(http.MethodPost, "/v1/snapshots", saveSnapshotRequest{Label: "before"}, &info))
	assert.Equal(t, "before", info.Label)

	require.Equal(t, http.StatusNoContent, api.do(http.MethodPost, "/v1/reset", nil).StatusCode)
	_, err := api.fs.Lookup(context.Background(), api.fs.Root(), "keep")
	require.Error(t, err)

	require.Equal(t, http.StatusNoContent, api.do(http.MethodPost, "/v1/snapshots/"+info.ID+"/restore", nil).StatusCode)
	_, err = api.fs.Lookup(context.Background(), api.fs.Root(), "keep")
	require.NoError(t, err)

	var list snapshotsResponse
	require.Equal(t, http.StatusOK, api.doJSON(http.MethodGet, "/v1/snapshots", nil, &list))
	require.Len(t, list.Snapshots, 1)

	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/v1/snapshots/"+info.ID, nil).StatusCode)
	require.Equal(t, http.StatusOK, api.doJSON(http.MethodGet, "/v1/snapshots", nil, &list))
	assert.Empty(t, list.Snapshots)
}

func TestSnapshotRoutesDisabled(t *testing.T) {
	a := New(Config{}, nil, nil)
	a.SetFileSystem(tinyfs.NewWithDefaults())

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/snapshots", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, Config{RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 1}})

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/v1/fs", nil).StatusCode)

	var resp errorResponse
	assert.Equal(t, http.StatusTooManyRequests, api.doJSON(http.MethodGet, "/v1/fs", nil, &resp))
	assert.Equal(t, "RateLimited", resp.Code)
}

func TestServeAndStop(t *testing.T) {
	a := New(Config{}, nil, nil)
	a.config.Port = 0
	a.port.Store(0)
	a.SetFileSystem(tinyfs.NewWithDefaults())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	require.Eventually(t, func() bool { return a.Port() != 0 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.Equal(t, "HTTP", a.Protocol())
}
