package testing

import (
	"context"
	"testing"

	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/snapshot"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a behavioral test suite for snapshot.Store
// implementations.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &snaptest.StoreTestSuite{
//	        NewStore: func(t *testing.T, maxSnapshots int) snapshot.Store {
//	            return mystore.New(maxSnapshots)
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates an empty store keeping at most maxSnapshots
	// snapshots (0 means unbounded).
	NewStore func(t *testing.T, maxSnapshots int) snapshot.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("SaveLoad_RestoresTree", suite.testSaveLoadRestoresTree)
	t.Run("List_OldestFirst", suite.testListOldestFirst)
	t.Run("Delete", suite.testDelete)
	t.Run("NotFound", suite.testNotFound)
	t.Run("Evicts_Oldest", suite.testEvictsOldest)
	t.Run("CanceledContext", suite.testCanceledContext)
}

func (suite *StoreTestSuite) newStore(t *testing.T, maxSnapshots int) snapshot.Store {
	t.Helper()
	store := suite.NewStore(t, maxSnapshots)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// sampleImage builds root -> docs/ -> readme ("hello") and returns its image.
func sampleImage(t *testing.T) (*tinyfs.FileSystem, block.Image) {
	t.Helper()
	ctx := context.Background()
	fs := tinyfs.NewWithDefaults()

	dir, err := fs.Mkdir(ctx, fs.Root(), "docs", 0755)
	require.NoError(t, err)
	file, err := fs.CreateFile(ctx, dir, "readme", 0644)
	require.NoError(t, err)
	_, err = fs.Write(ctx, file, 0, []byte("hello"))
	require.NoError(t, err)

	img, err := fs.Image(ctx)
	require.NoError(t, err)
	return fs, img
}

func (suite *StoreTestSuite) testSaveLoadRestoresTree(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t, 0)
	src, img := sampleImage(t)

	info, err := store.Save(ctx, "first", img)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "first", info.Label)
	assert.Equal(t, 3, info.UsedBlocks)
	assert.Positive(t, info.SizeBytes)
	assert.False(t, info.CreatedAt.IsZero())

	loaded, err := store.Load(ctx, info.ID)
	require.NoError(t, err)

	dst := tinyfs.NewWithDefaults()
	require.NoError(t, dst.LoadImage(ctx, loaded))

	want, err := src.Image(ctx)
	require.NoError(t, err)
	got, err := dst.Image(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func (suite *StoreTestSuite) testListOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t, 0)
	_, img := sampleImage(t)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)

	var ids []string
	for _, label := range []string{"a", "b", "c"} {
		info, err := store.Save(ctx, label, img)
		require.NoError(t, err)
		ids = append(ids, info.ID)
	}

	infos, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	for i, info := range infos {
		assert.Equal(t, ids[i], info.ID)
	}
	assert.Equal(t, "a", infos[0].Label)
	assert.Equal(t, "c", infos[2].Label)
}

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t, 0)
	_, img := sampleImage(t)

	keep, err := store.Save(ctx, "keep", img)
	require.NoError(t, err)
	drop, err := store.Save(ctx, "drop", img)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, drop.ID))

	_, err = store.Load(ctx, drop.ID)
	assert.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, keep.ID, infos[0].ID)
}

func (suite *StoreTestSuite) testNotFound(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t, 0)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)

	err = store.Delete(ctx, "missing")
	assert.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)
}

func (suite *StoreTestSuite) testEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := suite.newStore(t, 2)
	_, img := sampleImage(t)

	first, err := store.Save(ctx, "1", img)
	require.NoError(t, err)
	_, err = store.Save(ctx, "2", img)
	require.NoError(t, err)
	_, err = store.Save(ctx, "3", img)
	require.NoError(t, err)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "2", infos[0].Label)
	assert.Equal(t, "3", infos[1].Label)

	_, err = store.Load(ctx, first.ID)
	assert.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)
}

func (suite *StoreTestSuite) testCanceledContext(t *testing.T) {
	store := suite.newStore(t, 0)
	_, img := sampleImage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "x", img)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
