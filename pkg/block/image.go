package block

import (
	"errors"
	"fmt"
)

// ErrInvalidImage is returned by LoadImage when an image breaks an arena
// invariant. The arena is left untouched in that case.
var ErrInvalidImage = errors.New("invalid arena image")

// Image is a flat copy of every busy block of an arena.
//
// Fields only use fixed-width integers, strings, byte slices and slices of
// structs so the type can go through the XDR codec in pkg/snapshot as is.
type Image struct {
	MaxFiles       uint32
	MaxSubdirFiles uint32
	MaxLen         uint32
	FileBufferSize uint32
	Blocks         []BlockImage
}

// BlockImage is one busy block. Entries is set for directories, Data (trimmed
// to the file size) for regular files.
type BlockImage struct {
	Index   uint32
	Mode    uint32
	Entries []EntryImage
	Data    []byte
}

// EntryImage is one directory entry.
type EntryImage struct {
	Name   string
	Target uint32
}

// Geometry returns the capacities recorded in the image.
func (img *Image) Geometry() Geometry {
	return Geometry{
		MaxFiles:       int(img.MaxFiles),
		MaxSubdirFiles: int(img.MaxSubdirFiles),
		MaxLen:         int(img.MaxLen),
		FileBufferSize: int(img.FileBufferSize),
	}
}

// Image captures the arena. Residual bytes past a file's size are dropped.
func (a *Arena) Image() Image {
	img := Image{
		MaxFiles:       uint32(a.geom.MaxFiles),
		MaxSubdirFiles: uint32(a.geom.MaxSubdirFiles),
		MaxLen:         uint32(a.geom.MaxLen),
		FileBufferSize: uint32(a.geom.FileBufferSize),
		Blocks:         make([]BlockImage, 0, a.used),
	}

	a.Walk(func(b *Block) bool {
		bi := BlockImage{
			Index: uint32(b.Index),
			Mode:  uint32(b.Mode),
		}
		if b.Dir != nil {
			bi.Entries = make([]EntryImage, len(b.Dir.Entries))
			for i, e := range b.Dir.Entries {
				bi.Entries[i] = EntryImage{Name: e.Name, Target: uint32(e.Target)}
			}
		}
		if b.File != nil {
			bi.Data = append([]byte(nil), b.File.Data[:b.File.Size]...)
		}
		img.Blocks = append(img.Blocks, bi)
		return true
	})

	return img
}

// LoadImage replaces the arena content with img after checking that the image
// describes a consistent tree: same geometry, a root directory, bounded
// payloads, and every non-root block reachable through exactly one entry.
func (a *Arena) LoadImage(img Image) error {
	if img.Geometry() != a.geom {
		return fmt.Errorf("%w: geometry %+v does not match arena %+v", ErrInvalidImage, img.Geometry(), a.geom)
	}
	if len(img.Blocks) > a.geom.MaxFiles {
		return fmt.Errorf("%w: %d blocks exceed max_files %d", ErrInvalidImage, len(img.Blocks), a.geom.MaxFiles)
	}

	table := make([]Block, len(a.blocks))
	for i := range table {
		table[i] = Block{Index: Index(i)}
	}

	for _, bi := range img.Blocks {
		if err := a.loadBlock(table, bi); err != nil {
			return err
		}
	}

	root := &table[RootIndex]
	if !root.Busy || root.Dir == nil {
		return fmt.Errorf("%w: missing root directory", ErrInvalidImage)
	}

	if err := checkReachability(table, len(img.Blocks)); err != nil {
		return err
	}

	a.blocks = table
	a.used = len(img.Blocks)
	return nil
}

func (a *Arena) loadBlock(table []Block, bi BlockImage) error {
	idx := Index(bi.Index)
	if idx == NilIndex || (idx != RootIndex && int(idx) >= a.geom.MaxFiles) || int(idx) >= len(table) {
		return fmt.Errorf("%w: block index %d out of range", ErrInvalidImage, idx)
	}

	b := &table[idx]
	if b.Busy {
		return fmt.Errorf("%w: block %d listed twice", ErrInvalidImage, idx)
	}

	mode := Mode(bi.Mode)
	switch {
	case mode.IsDir():
		if len(bi.Data) != 0 {
			return fmt.Errorf("%w: directory %d carries file data", ErrInvalidImage, idx)
		}
		if len(bi.Entries) > a.geom.MaxSubdirFiles {
			return fmt.Errorf("%w: directory %d has %d entries", ErrInvalidImage, idx, len(bi.Entries))
		}
		dir := a.newDirPayload()
		for _, e := range bi.Entries {
			if e.Name == "" || len(e.Name) > a.geom.MaxNameBytes() {
				return fmt.Errorf("%w: directory %d has an invalid entry name %q", ErrInvalidImage, idx, e.Name)
			}
			if dir.Find(e.Name) >= 0 {
				return fmt.Errorf("%w: directory %d has duplicate entry %q", ErrInvalidImage, idx, e.Name)
			}
			dir.Append(DirEntry{Name: e.Name, Target: Index(e.Target)})
		}
		b.Dir = dir

	case mode.IsRegular():
		if len(bi.Entries) != 0 {
			return fmt.Errorf("%w: file %d carries directory entries", ErrInvalidImage, idx)
		}
		if len(bi.Data) > a.geom.FileBufferSize {
			return fmt.Errorf("%w: file %d holds %d bytes", ErrInvalidImage, idx, len(bi.Data))
		}
		file := a.newFilePayload()
		file.Size = copy(file.Data, bi.Data)
		b.File = file

	default:
		return fmt.Errorf("%w: block %d has mode %s", ErrInvalidImage, idx, mode)
	}

	b.Busy = true
	b.Mode = mode
	return nil
}

// checkReachability walks the tree from the root and requires that every busy
// block is reached exactly once.
func checkReachability(table []Block, busy int) error {
	seen := make(map[Index]bool, busy)
	seen[RootIndex] = true
	queue := []Index{RootIndex}

	for len(queue) > 0 {
		b := &table[queue[0]]
		queue = queue[1:]
		if b.Dir == nil {
			continue
		}
		for _, e := range b.Dir.Entries {
			if int(e.Target) >= len(table) || !table[e.Target].Busy {
				return fmt.Errorf("%w: entry %q of %d points to free block %d", ErrInvalidImage, e.Name, b.Index, e.Target)
			}
			if seen[e.Target] {
				return fmt.Errorf("%w: block %d is linked more than once", ErrInvalidImage, e.Target)
			}
			seen[e.Target] = true
			queue = append(queue, e.Target)
		}
	}

	if len(seen) != busy {
		return fmt.Errorf("%w: %d of %d blocks are unreachable from the root", ErrInvalidImage, busy-len(seen), busy)
	}
	return nil
}
