package testing

import (
	"testing"

	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCode checks that err is an *tinyfs.FSError carrying code.
func AssertCode(t *testing.T, expected tinyfs.ErrorCode, err error) {
	t.Helper()
	require.Error(t, err)
	code, ok := tinyfs.CodeOf(err)
	require.True(t, ok, "expected an FSError, got %v", err)
	assert.Equal(t, expected, code, "unexpected error: %v", err)
}

// mustMkdir creates a directory and fails the test if it errors.
func mustMkdir(t *testing.T, fs *tinyfs.FileSystem, parent block.Index, name string) block.Index {
	t.Helper()
	idx, err := fs.Mkdir(testContext(), parent, name, 0755)
	require.NoError(t, err, "Mkdir %q should succeed", name)
	return idx
}

// mustCreateFile creates a regular file and fails the test if it errors.
func mustCreateFile(t *testing.T, fs *tinyfs.FileSystem, parent block.Index, name string) block.Index {
	t.Helper()
	idx, err := fs.CreateFile(testContext(), parent, name, 0644)
	require.NoError(t, err, "CreateFile %q should succeed", name)
	return idx
}

// mustWrite writes data at offset and fails the test if it errors.
func mustWrite(t *testing.T, fs *tinyfs.FileSystem, idx block.Index, offset int64, data []byte) {
	t.Helper()
	n, err := fs.Write(testContext(), idx, offset, data)
	require.NoError(t, err, "Write should succeed")
	require.Equal(t, len(data), n)
}

// mustRead reads and fails the test if it errors.
func mustRead(t *testing.T, fs *tinyfs.FileSystem, idx block.Index, offset int64, length int) []byte {
	t.Helper()
	data, err := fs.Read(testContext(), idx, offset, length)
	require.NoError(t, err, "Read should succeed")
	return data
}

// mustStat returns the attributes of idx.
func mustStat(t *testing.T, fs *tinyfs.FileSystem, idx block.Index) tinyfs.Attr {
	t.Helper()
	attr, err := fs.Stat(testContext(), idx)
	require.NoError(t, err, "Stat should succeed")
	return attr
}

// mustList returns the children of dir.
func mustList(t *testing.T, fs *tinyfs.FileSystem, dir block.Index) []block.DirEntry {
	t.Helper()
	entries, err := fs.ListChildren(testContext(), dir)
	require.NoError(t, err, "ListChildren should succeed")
	return entries
}

// usedBlocks returns the allocation count, root included.
func usedBlocks(t *testing.T, fs *tinyfs.FileSystem) int {
	t.Helper()
	st, err := fs.StatFS(testContext())
	require.NoError(t, err)
	return st.UsedBlocks
}

// snapshotOf captures the full tree so tests can assert that nothing moved.
func snapshotOf(t *testing.T, fs *tinyfs.FileSystem) block.Image {
	t.Helper()
	img, err := fs.Image(testContext())
	require.NoError(t, err)
	return img
}

// nameFor returns a short, unique name for i ("a" .. "z", "ba", ...).
func nameFor(i int) string {
	name := []byte{byte('a' + i%26)}
	for i /= 26; i > 0; i /= 26 {
		name = append([]byte{byte('a' + i%26)}, name...)
	}
	return string(name)
}

// fillDirectory creates files in dir until it holds MaxSubdirFiles entries.
func fillDirectory(t *testing.T, fs *tinyfs.FileSystem, dir block.Index) []block.Index {
	t.Helper()
	var created []block.Index
	for i := len(mustList(t, fs, dir)); i < fs.Geometry().MaxSubdirFiles; i++ {
		created = append(created, mustCreateFile(t, fs, dir, nameFor(i)))
	}
	return created
}

// fillArena allocates every block by growing a breadth-first tree of
// directories, and returns an empty directory that still has room.
func fillArena(t *testing.T, fs *tinyfs.FileSystem) block.Index {
	t.Helper()
	geom := fs.Geometry()
	queue := []block.Index{fs.Root()}
	counts := map[block.Index]int{}
	last := fs.Root()

	for created := 0; created < geom.AllocatableBlocks(); {
		dir := queue[0]
		if counts[dir] == geom.MaxSubdirFiles {
			queue = queue[1:]
			continue
		}
		child := mustMkdir(t, fs, dir, nameFor(counts[dir]))
		counts[dir]++
		queue = append(queue, child)
		last = child
		created++
	}
	return last
}
