package testing

import (
	"context"
	"strings"
	"testing"

	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunNamespaceTests executes creation and query tests.
func (suite *FileSystemTestSuite) RunNamespaceTests(t *testing.T) {
	t.Run("Root_IsEmptyDirectory", suite.testRootIsEmptyDirectory)
	t.Run("Create_Lookup", suite.testCreateLookup)
	t.Run("Create_DirectoryFull", suite.testCreateDirectoryFull)
	t.Run("Create_NoSpace", suite.testCreateNoSpace)
	t.Run("Create_InvalidParent", suite.testCreateInvalidParent)
	t.Run("Create_InvalidMode", suite.testCreateInvalidMode)
	t.Run("Create_InvalidName", suite.testCreateInvalidName)
	t.Run("Create_Duplicate", suite.testCreateDuplicate)
	t.Run("Create_TruncatesLongNames", suite.testCreateTruncatesLongNames)
	t.Run("Lookup_MissingDoesNotMutate", suite.testLookupMissingDoesNotMutate)
	t.Run("Lookup_NotDirectory", suite.testLookupNotDirectory)
	t.Run("ListChildren_InsertionOrder", suite.testListChildrenInsertionOrder)
	t.Run("ListChildren_ReturnsCopy", suite.testListChildrenReturnsCopy)
	t.Run("Children_StopsEarly", suite.testChildrenStopsEarly)
	t.Run("Stat_Attributes", suite.testStatAttributes)
	t.Run("Reset_Remounts", suite.testResetRemounts)
	t.Run("CanceledContext", suite.testCanceledContext)
}

// ============================================================================
// Create Tests
// ============================================================================

func (suite *FileSystemTestSuite) testRootIsEmptyDirectory(t *testing.T) {
	fs := suite.NewFileSystem(t)

	attr := mustStat(t, fs, fs.Root())
	assert.True(t, attr.IsDir())
	assert.Equal(t, block.RootMode, attr.Mode)
	assert.Zero(t, attr.Children)
	assert.Empty(t, mustList(t, fs, fs.Root()))
	assert.Equal(t, 1, usedBlocks(t, fs))
}

func (suite *FileSystemTestSuite) testCreateLookup(t *testing.T) {
	fs := suite.NewFileSystem(t)

	dir := mustMkdir(t, fs, fs.Root(), "d")
	file := mustCreateFile(t, fs, dir, "f")

	got, err := fs.Lookup(testContext(), fs.Root(), "d")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = fs.Lookup(testContext(), dir, "f")
	require.NoError(t, err)
	assert.Equal(t, file, got)

	assert.True(t, mustStat(t, fs, dir).IsDir())
	assert.True(t, mustStat(t, fs, file).Mode.IsRegular())
	assert.Equal(t, block.Mode(0644), mustStat(t, fs, file).Mode.Perm())
	assert.Equal(t, 3, usedBlocks(t, fs))
}

func (suite *FileSystemTestSuite) testCreateDirectoryFull(t *testing.T) {
	fs := suite.NewFileSystem(t)
	if fs.Geometry().MaxSubdirFiles > fs.Geometry().AllocatableBlocks() {
		t.Skip("arena runs out of blocks before a directory fills up")
	}

	fillDirectory(t, fs, fs.Root())
	before := snapshotOf(t, fs)

	_, err := fs.CreateFile(testContext(), fs.Root(), "extra", 0644)
	AssertCode(t, tinyfs.ErrDirectoryFull, err)
	assert.Equal(t, before, snapshotOf(t, fs), "failed create must not change state")
}

func (suite *FileSystemTestSuite) testCreateNoSpace(t *testing.T) {
	fs := suite.NewFileSystem(t)
	geom := fs.Geometry()

	room := fillArena(t, fs)
	assert.Equal(t, geom.MaxFiles-1, usedBlocks(t, fs))

	st, err := fs.StatFS(testContext())
	require.NoError(t, err)
	assert.Zero(t, st.FreeBlocks)

	before := snapshotOf(t, fs)
	_, err = fs.CreateFile(testContext(), room, "z", 0644)
	AssertCode(t, tinyfs.ErrNoSpace, err)
	assert.Equal(t, before, snapshotOf(t, fs))
}

func (suite *FileSystemTestSuite) testCreateInvalidParent(t *testing.T) {
	fs := suite.NewFileSystem(t)
	file := mustCreateFile(t, fs, fs.Root(), "f")

	_, err := fs.CreateFile(testContext(), file, "x", 0644)
	AssertCode(t, tinyfs.ErrNotDirectory, err)

	for _, idx := range []block.Index{block.NilIndex, block.Index(fs.Geometry().MaxFiles + 1), file + 1} {
		_, err = fs.CreateFile(testContext(), idx, "x", 0644)
		AssertCode(t, tinyfs.ErrInvalidHandle, err)
	}
}

func (suite *FileSystemTestSuite) testCreateInvalidMode(t *testing.T) {
	fs := suite.NewFileSystem(t)

	for _, mode := range []block.Mode{0, 0644, 0120777, 0020644} {
		_, err := fs.Create(testContext(), fs.Root(), "x", mode)
		AssertCode(t, tinyfs.ErrInvalidArgument, err)
	}
	assert.Equal(t, 1, usedBlocks(t, fs))
}

func (suite *FileSystemTestSuite) testCreateInvalidName(t *testing.T) {
	fs := suite.NewFileSystem(t)

	for _, name := range []string{"", ".", "..", "a/b", "/", "a\x00"} {
		_, err := fs.CreateFile(testContext(), fs.Root(), name, 0644)
		AssertCode(t, tinyfs.ErrInvalidArgument, err)
	}
	assert.Empty(t, mustList(t, fs, fs.Root()))
}

func (suite *FileSystemTestSuite) testCreateDuplicate(t *testing.T) {
	fs := suite.NewFileSystem(t)
	if fs.Geometry().MaxSubdirFiles < 2 {
		t.Skip("needs room for a second entry")
	}

	mustCreateFile(t, fs, fs.Root(), "a")

	_, err := fs.Mkdir(testContext(), fs.Root(), "a", 0755)
	AssertCode(t, tinyfs.ErrAlreadyExists, err)
	assert.Len(t, mustList(t, fs, fs.Root()), 1)
	assert.Equal(t, 2, usedBlocks(t, fs))
}

func (suite *FileSystemTestSuite) testCreateTruncatesLongNames(t *testing.T) {
	fs := suite.NewFileSystem(t)
	if fs.Geometry().MaxSubdirFiles < 2 {
		t.Skip("needs room for a second entry")
	}

	maxBytes := fs.Geometry().MaxNameBytes()
	long := strings.Repeat("n", maxBytes) + "-tail"
	stored := strings.Repeat("n", maxBytes)

	idx := mustCreateFile(t, fs, fs.Root(), long)

	entries := mustList(t, fs, fs.Root())
	require.Len(t, entries, 1)
	assert.Equal(t, stored, entries[0].Name)

	got, err := fs.Lookup(testContext(), fs.Root(), long)
	require.NoError(t, err)
	assert.Equal(t, idx, got)

	got, err = fs.Lookup(testContext(), fs.Root(), stored)
	require.NoError(t, err)
	assert.Equal(t, idx, got)

	_, err = fs.CreateFile(testContext(), fs.Root(), stored+"-other", 0644)
	AssertCode(t, tinyfs.ErrAlreadyExists, err)
}

// ============================================================================
// Query Tests
// ============================================================================

func (suite *FileSystemTestSuite) testLookupMissingDoesNotMutate(t *testing.T) {
	fs := suite.NewFileSystem(t)
	mustCreateFile(t, fs, fs.Root(), "a")
	before := snapshotOf(t, fs)

	_, err := fs.Lookup(testContext(), fs.Root(), "missing")
	AssertCode(t, tinyfs.ErrNotFound, err)
	assert.Equal(t, before, snapshotOf(t, fs))
}

func (suite *FileSystemTestSuite) testLookupNotDirectory(t *testing.T) {
	fs := suite.NewFileSystem(t)
	file := mustCreateFile(t, fs, fs.Root(), "f")

	_, err := fs.Lookup(testContext(), file, "x")
	AssertCode(t, tinyfs.ErrNotDirectory, err)

	_, err = fs.ListChildren(testContext(), file)
	AssertCode(t, tinyfs.ErrNotDirectory, err)
}

func (suite *FileSystemTestSuite) testListChildrenInsertionOrder(t *testing.T) {
	fs := suite.NewFileSystem(t)
	if fs.Geometry().MaxSubdirFiles > fs.Geometry().AllocatableBlocks() {
		t.Skip("arena runs out of blocks before a directory fills up")
	}

	created := fillDirectory(t, fs, fs.Root())

	entries := mustList(t, fs, fs.Root())
	require.Len(t, entries, len(created))
	for i, e := range entries {
		assert.Equal(t, nameFor(i), e.Name)
		assert.Equal(t, created[i], e.Target)
	}
	assert.Equal(t, len(created), mustStat(t, fs, fs.Root()).Children)
}

func (suite *FileSystemTestSuite) testListChildrenReturnsCopy(t *testing.T) {
	fs := suite.NewFileSystem(t)
	mustCreateFile(t, fs, fs.Root(), "a")

	entries := mustList(t, fs, fs.Root())
	entries[0].Name = "mutated"

	assert.Equal(t, "a", mustList(t, fs, fs.Root())[0].Name)
}

func (suite *FileSystemTestSuite) testChildrenStopsEarly(t *testing.T) {
	fs := suite.NewFileSystem(t)
	if fs.Geometry().MaxSubdirFiles < 2 {
		t.Skip("needs two entries")
	}
	mustCreateFile(t, fs, fs.Root(), "a")
	mustCreateFile(t, fs, fs.Root(), "b")

	var seen []string
	err := fs.Children(testContext(), fs.Root(), func(e block.DirEntry) bool {
		seen = append(seen, e.Name)
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, seen)

	seen = nil
	require.NoError(t, fs.Children(testContext(), fs.Root(), func(e block.DirEntry) bool {
		seen = append(seen, e.Name)
		return true
	}))
	assert.Equal(t, []string{"a", "b"}, seen)
}

func (suite *FileSystemTestSuite) testStatAttributes(t *testing.T) {
	fs := suite.NewFileSystem(t)
	if fs.Geometry().MaxSubdirFiles < 2 {
		t.Skip("needs two entries")
	}

	mustMkdir(t, fs, fs.Root(), "d")
	file := mustCreateFile(t, fs, fs.Root(), "f")
	mustWrite(t, fs, file, 0, []byte("x"))

	root := mustStat(t, fs, fs.Root())
	assert.Equal(t, 2, root.Children)
	assert.Equal(t, 1, root.Subdirs)

	attr := mustStat(t, fs, file)
	assert.Equal(t, file, attr.Index)
	assert.Equal(t, 1, attr.Size)
	assert.Zero(t, attr.Children)

	_, err := fs.Stat(testContext(), block.NilIndex)
	AssertCode(t, tinyfs.ErrInvalidHandle, err)
}

func (suite *FileSystemTestSuite) testResetRemounts(t *testing.T) {
	fs := suite.NewFileSystem(t)
	dir := mustMkdir(t, fs, fs.Root(), "d")

	require.NoError(t, fs.Reset(testContext()))

	assert.Empty(t, mustList(t, fs, fs.Root()))
	assert.Equal(t, 1, usedBlocks(t, fs))
	_, err := fs.Stat(testContext(), dir)
	AssertCode(t, tinyfs.ErrInvalidHandle, err)
}

func (suite *FileSystemTestSuite) testCanceledContext(t *testing.T) {
	fs := suite.NewFileSystem(t)
	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := fs.CreateFile(ctx, fs.Root(), "a", 0644)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = fs.Lookup(ctx, fs.Root(), "a")
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, usedBlocks(t, fs))
}
