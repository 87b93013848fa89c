package testing

import (
	"testing"

	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRemoveTests executes Unlink and Rmdir tests.
func (suite *FileSystemTestSuite) RunRemoveTests(t *testing.T) {
	t.Run("Unlink_CompactsEntries", suite.testUnlinkCompactsEntries)
	t.Run("Unlink_ReusesBlock", suite.testUnlinkReusesBlock)
	t.Run("Unlink_NotFound", suite.testUnlinkNotFound)
	t.Run("Unlink_NonEmptyDirectory", suite.testUnlinkNonEmptyDirectory)
	t.Run("Unlink_EmptyDirectory", suite.testUnlinkEmptyDirectory)
	t.Run("Rmdir_Lifecycle", suite.testRmdirLifecycle)
	t.Run("Rmdir_NotDirectory", suite.testRmdirNotDirectory)
	t.Run("Rmdir_NotFound", suite.testRmdirNotFound)
}

func (suite *FileSystemTestSuite) testUnlinkCompactsEntries(t *testing.T) {
	fs := suite.NewFileSystem(t)
	geom := fs.Geometry()
	if geom.MaxSubdirFiles < 2 || geom.MaxSubdirFiles > geom.AllocatableBlocks() {
		t.Skip("needs a directory with at least two entries")
	}

	fillDirectory(t, fs, fs.Root())
	before := mustList(t, fs, fs.Root())
	used := usedBlocks(t, fs)

	require.NoError(t, fs.Unlink(testContext(), fs.Root(), before[0].Name))

	after := mustList(t, fs, fs.Root())
	assert.Equal(t, before[1:], after, "remaining entries keep their order")
	assert.Equal(t, used-1, usedBlocks(t, fs))

	_, err := fs.Lookup(testContext(), fs.Root(), before[0].Name)
	AssertCode(t, tinyfs.ErrNotFound, err)

	_, err = fs.Stat(testContext(), before[0].Target)
	AssertCode(t, tinyfs.ErrInvalidHandle, err)
}

func (suite *FileSystemTestSuite) testUnlinkReusesBlock(t *testing.T) {
	fs := suite.NewFileSystem(t)
	if fs.Geometry().FileBufferSize < 3 {
		t.Skip("needs a few bytes of file capacity")
	}

	old := mustCreateFile(t, fs, fs.Root(), "a")
	mustWrite(t, fs, old, 0, []byte("old"))
	require.NoError(t, fs.Unlink(testContext(), fs.Root(), "a"))

	idx := mustCreateFile(t, fs, fs.Root(), "b")
	assert.Equal(t, old, idx, "lowest free block is reused")
	assert.Zero(t, mustStat(t, fs, idx).Size)

	require.NoError(t, fs.Truncate(testContext(), idx, 3))
	assert.Equal(t, []byte{0, 0, 0}, mustRead(t, fs, idx, 0, 3), "previous contents must not leak")
}

func (suite *FileSystemTestSuite) testUnlinkNotFound(t *testing.T) {
	fs := suite.NewFileSystem(t)
	mustCreateFile(t, fs, fs.Root(), "a")
	before := snapshotOf(t, fs)

	err := fs.Unlink(testContext(), fs.Root(), "missing")
	AssertCode(t, tinyfs.ErrNotFound, err)
	assert.Equal(t, before, snapshotOf(t, fs))
}

func (suite *FileSystemTestSuite) testUnlinkNonEmptyDirectory(t *testing.T) {
	fs := suite.NewFileSystem(t)
	dir := mustMkdir(t, fs, fs.Root(), "d")
	mustCreateFile(t, fs, dir, "f")
	before := snapshotOf(t, fs)

	err := fs.Unlink(testContext(), fs.Root(), "d")
	AssertCode(t, tinyfs.ErrNotEmpty, err)
	assert.Equal(t, before, snapshotOf(t, fs))
}

func (suite *FileSystemTestSuite) testUnlinkEmptyDirectory(t *testing.T) {
	fs := suite.NewFileSystem(t)
	mustMkdir(t, fs, fs.Root(), "d")

	require.NoError(t, fs.Unlink(testContext(), fs.Root(), "d"))
	assert.Empty(t, mustList(t, fs, fs.Root()))
	assert.Equal(t, 1, usedBlocks(t, fs))
}

func (suite *FileSystemTestSuite) testRmdirLifecycle(t *testing.T) {
	fs := suite.NewFileSystem(t)
	dir := mustMkdir(t, fs, fs.Root(), "d")
	mustCreateFile(t, fs, dir, "f")

	err := fs.Rmdir(testContext(), fs.Root(), "d")
	AssertCode(t, tinyfs.ErrNotEmpty, err)

	require.NoError(t, fs.Unlink(testContext(), dir, "f"))
	require.NoError(t, fs.Rmdir(testContext(), fs.Root(), "d"))

	_, err = fs.Lookup(testContext(), fs.Root(), "d")
	AssertCode(t, tinyfs.ErrNotFound, err)
	assert.Empty(t, mustList(t, fs, fs.Root()), "parent entry is removed")

	_, err = fs.Stat(testContext(), dir)
	AssertCode(t, tinyfs.ErrInvalidHandle, err)
	assert.Equal(t, 1, usedBlocks(t, fs))
}

func (suite *FileSystemTestSuite) testRmdirNotDirectory(t *testing.T) {
	fs := suite.NewFileSystem(t)
	file := mustCreateFile(t, fs, fs.Root(), "f")

	err := fs.Rmdir(testContext(), fs.Root(), "f")
	AssertCode(t, tinyfs.ErrNotDirectory, err)

	got, err := fs.Lookup(testContext(), fs.Root(), "f")
	require.NoError(t, err)
	assert.Equal(t, file, got)

	err = fs.Rmdir(testContext(), file, "x")
	AssertCode(t, tinyfs.ErrNotDirectory, err)
}

func (suite *FileSystemTestSuite) testRmdirNotFound(t *testing.T) {
	fs := suite.NewFileSystem(t)

	err := fs.Rmdir(testContext(), fs.Root(), "missing")
	AssertCode(t, tinyfs.ErrNotFound, err)

	err = fs.Rmdir(testContext(), block.NilIndex, "missing")
	AssertCode(t, tinyfs.ErrInvalidHandle, err)
}
