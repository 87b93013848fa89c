package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree links blocks by hand the way the namespace layer would.
func buildTree(t *testing.T, a *Arena) (dir, file Index) {
	t.Helper()

	dir, err := a.Allocate(ModeDir | 0755)
	require.NoError(t, err)
	a.Root().Dir.Append(DirEntry{Name: "docs", Target: dir})

	file, err = a.Allocate(ModeRegular | 0644)
	require.NoError(t, err)
	d, err := a.Get(dir)
	require.NoError(t, err)
	d.Dir.Append(DirEntry{Name: "readme", Target: file})

	f, err := a.Get(file)
	require.NoError(t, err)
	f.File.Size = copy(f.File.Data, "hello")
	return dir, file
}

func TestImage_RoundTrip(t *testing.T) {
	src := newTestArena(t)
	dir, file := buildTree(t, src)

	img := src.Image()
	assert.Len(t, img.Blocks, 3)

	dst := newTestArena(t)
	require.NoError(t, dst.LoadImage(img))
	assert.Equal(t, 3, dst.Used())

	d, err := dst.Get(dir)
	require.NoError(t, err)
	assert.Equal(t, []DirEntry{{Name: "readme", Target: file}}, d.Dir.Entries)

	f, err := dst.Get(file)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(f.File.Data[:f.File.Size]))
	assert.Len(t, f.File.Data, FileBufferSize)
}

func TestImage_DropsResidualBytes(t *testing.T) {
	a := newTestArena(t)
	_, file := buildTree(t, a)

	f, err := a.Get(file)
	require.NoError(t, err)
	f.File.Size = 2

	img := a.Image()
	for _, b := range img.Blocks {
		if Index(b.Index) == file {
			assert.Equal(t, []byte("he"), b.Data)
		}
	}
}

func TestLoadImage_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Image)
	}{
		{"geometry mismatch", func(img *Image) { img.MaxFiles = 64 }},
		{"missing root", func(img *Image) { img.Blocks = img.Blocks[1:] }},
		{"unreachable block", func(img *Image) {
			img.Blocks = append(img.Blocks, BlockImage{Index: 9, Mode: uint32(ModeRegular)})
		}},
		{"dangling entry", func(img *Image) {
			img.Blocks[0].Entries = append(img.Blocks[0].Entries, EntryImage{Name: "ghost", Target: 20})
		}},
		{"double link", func(img *Image) {
			img.Blocks[0].Entries = append(img.Blocks[0].Entries, EntryImage{Name: "again", Target: img.Blocks[0].Entries[0].Target})
		}},
		{"oversized file", func(img *Image) {
			img.Blocks[2].Data = make([]byte, FileBufferSize+1)
		}},
		{"bad mode", func(img *Image) { img.Blocks[2].Mode = 0644 }},
		{"reserved index", func(img *Image) { img.Blocks[2].Index = 0 }},
		{"duplicate index", func(img *Image) { img.Blocks[2].Index = img.Blocks[1].Index }},
		{"long name", func(img *Image) { img.Blocks[0].Entries[0].Name = "toolongname" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestArena(t)
			buildTree(t, src)
			img := src.Image()
			tt.mutate(&img)

			dst := newTestArena(t)
			before := dst.Image()
			err := dst.LoadImage(img)
			assert.ErrorIs(t, err, ErrInvalidImage)
			assert.Equal(t, before, dst.Image(), "arena must be unchanged")
		})
	}
}
