package tinyfs_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
	fstest "github.com/marmos91/tinyfs/pkg/tinyfs/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFS(t *testing.T, geom block.Geometry) *tinyfs.FileSystem {
	t.Helper()
	fs, err := tinyfs.New(context.Background(), tinyfs.Config{Geometry: geom})
	require.NoError(t, err)
	return fs
}

func TestFileSystemSuite(t *testing.T) {
	geometries := map[string]block.Geometry{
		"Default": block.DefaultGeometry(),
		"Small":   {MaxFiles: 8, MaxSubdirFiles: 2, MaxLen: 4, FileBufferSize: 8},
		"Chain":   {MaxFiles: 6, MaxSubdirFiles: 1, MaxLen: 3, FileBufferSize: 5},
		"Large":   {MaxFiles: 128, MaxSubdirFiles: 16, MaxLen: 32, FileBufferSize: 4096},
	}

	for name, geom := range geometries {
		t.Run(name, func(t *testing.T) {
			suite := &fstest.FileSystemTestSuite{
				NewFileSystem: func(t *testing.T) *tinyfs.FileSystem {
					return newFS(t, geom)
				},
			}
			suite.Run(t)
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("ZeroGeometryUsesDefaults", func(t *testing.T) {
		fs := newFS(t, block.Geometry{})
		assert.Equal(t, block.DefaultGeometry(), fs.Geometry())
	})

	t.Run("InvalidGeometry", func(t *testing.T) {
		_, err := tinyfs.New(context.Background(), tinyfs.Config{
			Geometry: block.Geometry{MaxFiles: 1, MaxSubdirFiles: 1, MaxLen: 8, FileBufferSize: 1},
		})
		fstest.AssertCode(t, tinyfs.ErrInvalidArgument, err)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := tinyfs.New(ctx, tinyfs.Config{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDefaultGeometryCapacity(t *testing.T) {
	fs := tinyfs.NewWithDefaults()
	ctx := context.Background()

	st, err := fs.StatFS(ctx)
	require.NoError(t, err)
	assert.Equal(t, tinyfs.FSStat{
		TotalBlocks:  32,
		UsedBlocks:   1,
		FreeBlocks:   30,
		MaxChildren:  4,
		MaxNameLen:   7,
		FileCapacity: 36,
	}, st)

	// 30 creates: a chain of directories, one file per level where room is left.
	created := 0
	dir := fs.Root()
	for created < 30 {
		next, err := fs.Mkdir(ctx, dir, "d", 0755)
		require.NoError(t, err, "create %d", created+1)
		created++
		for i := 0; i < 3 && created < 30; i++ {
			_, err := fs.CreateFile(ctx, dir, fmt.Sprintf("f%d", i), 0644)
			require.NoError(t, err, "create %d", created+1)
			created++
		}
		dir = next
	}

	_, err = fs.CreateFile(ctx, dir, "last", 0644)
	fstest.AssertCode(t, tinyfs.ErrNoSpace, err)
}

func TestDirectoryFullBeforeNoSpaceIsNotReported(t *testing.T) {
	fs := tinyfs.NewWithDefaults()
	ctx := context.Background()

	for i := 0; i < block.MaxSubdirFiles; i++ {
		_, err := fs.CreateFile(ctx, fs.Root(), fmt.Sprintf("f%d", i), 0644)
		require.NoError(t, err)
	}

	_, err := fs.CreateFile(ctx, fs.Root(), "f4", 0644)
	fstest.AssertCode(t, tinyfs.ErrDirectoryFull, err)
}

func TestImageRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := tinyfs.NewWithDefaults()

	dir, err := src.Mkdir(ctx, src.Root(), "docs", 0750)
	require.NoError(t, err)
	file, err := src.CreateFile(ctx, dir, "readme", 0640)
	require.NoError(t, err)
	_, err = src.Write(ctx, file, 0, []byte("hello"))
	require.NoError(t, err)

	img, err := src.Image(ctx)
	require.NoError(t, err)

	dst := tinyfs.NewWithDefaults()
	require.NoError(t, dst.LoadImage(ctx, img))

	got, err := dst.Lookup(ctx, dst.Root(), "docs")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	data, err := dst.Read(ctx, file, 0, 36)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	st, err := dst.StatFS(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.UsedBlocks)
}

func TestLoadImageRejectsForeignGeometry(t *testing.T) {
	ctx := context.Background()
	small, err := tinyfs.New(ctx, tinyfs.Config{
		Geometry: block.Geometry{MaxFiles: 8, MaxSubdirFiles: 2, MaxLen: 4, FileBufferSize: 8},
	})
	require.NoError(t, err)

	img, err := small.Image(ctx)
	require.NoError(t, err)

	fs := tinyfs.NewWithDefaults()
	_, err = fs.CreateFile(ctx, fs.Root(), "keep", 0644)
	require.NoError(t, err)

	err = fs.LoadImage(ctx, img)
	fstest.AssertCode(t, tinyfs.ErrInvalidArgument, err)

	_, err = fs.Lookup(ctx, fs.Root(), "keep")
	assert.NoError(t, err, "rejected image leaves the tree untouched")
}

func TestErrors(t *testing.T) {
	err := &tinyfs.FSError{Code: tinyfs.ErrNotFound, Message: "name not found", Name: "a"}
	assert.Equal(t, "name not found: a", err.Error())
	assert.ErrorIs(t, fmt.Errorf("lookup: %w", err), &tinyfs.FSError{Code: tinyfs.ErrNotFound})
	assert.NotErrorIs(t, err, &tinyfs.FSError{Code: tinyfs.ErrNoSpace})

	assert.True(t, tinyfs.IsCode(fmt.Errorf("wrapped: %w", err), tinyfs.ErrNotFound))
	assert.False(t, tinyfs.IsCode(context.Canceled, tinyfs.ErrNotFound))

	assert.Equal(t, "NotADirectory", tinyfs.ErrNotDirectory.String())
	assert.Equal(t, "Unknown", tinyfs.ErrorCode(99).String())
}

// recordingMetrics captures operation observations.
type recordingMetrics struct {
	mu       sync.Mutex
	ops      map[string]int
	codes    map[string]int
	bytes    map[string]int
	inUse    int
	capacity int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ops: map[string]int{}, codes: map[string]int{}, bytes: map[string]int{}}
}

func (m *recordingMetrics) RecordOperation(operation string, _ time.Duration, errorCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[operation]++
	if errorCode != "" {
		m.codes[errorCode]++
	}
}

func (m *recordingMetrics) RecordBytes(direction string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes[direction] += n
}

func (m *recordingMetrics) SetBlocksInUse(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inUse = count
}

func (m *recordingMetrics) SetBlockCapacity(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacity = count
}

func TestMetricsHooks(t *testing.T) {
	ctx := context.Background()
	m := newRecordingMetrics()
	fs, err := tinyfs.New(ctx, tinyfs.Config{Metrics: m})
	require.NoError(t, err)
	assert.Equal(t, block.MaxFiles, m.capacity)
	assert.Equal(t, 1, m.inUse)

	file, err := fs.CreateFile(ctx, fs.Root(), "f", 0644)
	require.NoError(t, err)
	_, err = fs.Write(ctx, file, 0, []byte("abc"))
	require.NoError(t, err)
	_, err = fs.Read(ctx, file, 1, 10)
	require.NoError(t, err)
	_, err = fs.Lookup(ctx, fs.Root(), "missing")
	require.Error(t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 1, m.ops["Create"])
	assert.Equal(t, 1, m.ops["Write"])
	assert.Equal(t, 1, m.ops["Read"])
	assert.Equal(t, 1, m.ops["Lookup"])
	assert.Equal(t, 1, m.codes["NotFound"])
	assert.Equal(t, 3, m.bytes["write"])
	assert.Equal(t, 2, m.bytes["read"])
	assert.Equal(t, 2, m.inUse)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	fs := tinyfs.NewWithDefaults()

	files := make([]block.Index, block.MaxSubdirFiles)
	for i := range files {
		idx, err := fs.CreateFile(ctx, fs.Root(), fmt.Sprintf("f%d", i), 0644)
		require.NoError(t, err)
		files[i] = idx
	}

	var wg sync.WaitGroup
	for i, idx := range files {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				_, err := fs.Write(ctx, idx, 0, []byte(fmt.Sprintf("w%d-%03d", i, n)))
				assert.NoError(t, err)
			}
		}()
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				_, err := fs.Read(ctx, idx, 0, block.FileBufferSize)
				assert.NoError(t, err)
				_, err = fs.ListChildren(ctx, fs.Root())
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for i, idx := range files {
		data, err := fs.Read(ctx, idx, 0, block.FileBufferSize)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("w%d-099", i), string(data))
	}
}
