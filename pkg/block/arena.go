package block

import (
	"errors"
	"fmt"
)

var (
	// ErrArenaFull is returned by Allocate when no slot is available.
	ErrArenaFull = errors.New("block arena is full")

	// ErrInvalidIndex is returned for reserved, out-of-range or free slots.
	ErrInvalidIndex = errors.New("invalid block index")

	// ErrUnsupportedMode is returned when a mode is neither dir nor regular.
	ErrUnsupportedMode = errors.New("unsupported block mode")
)

// RootMode is the mode given to the root directory on reset.
const RootMode = ModeDir | 0755

// Arena is the fixed table of blocks plus its allocation count.
//
// Arena is not safe for concurrent use; the owning filesystem serializes
// access to it.
type Arena struct {
	geom   Geometry
	blocks []Block
	used   int
}

// NewArena creates an arena with the given geometry and mounts it.
func NewArena(geom Geometry) (*Arena, error) {
	if err := geom.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}

	a := &Arena{
		geom:   geom,
		blocks: make([]Block, geom.MaxFiles+1),
	}
	a.Reset()
	return a, nil
}

// Reset clears every slot and allocates the root directory at RootIndex.
func (a *Arena) Reset() {
	for i := range a.blocks {
		a.blocks[i] = Block{Index: Index(i)}
	}

	root := &a.blocks[RootIndex]
	root.Busy = true
	root.Mode = RootMode
	root.Dir = a.newDirPayload()
	a.used = 1
}

// Geometry returns the capacities of the arena.
func (a *Arena) Geometry() Geometry {
	return a.geom
}

// Used returns the number of busy blocks, root included.
func (a *Arena) Used() int {
	return a.used
}

// Available returns how many more blocks Allocate can hand out.
func (a *Arena) Available() int {
	free := 0
	for i := 2; i < a.geom.MaxFiles; i++ {
		if !a.blocks[i].Busy {
			free++
		}
	}
	if limit := a.geom.MaxFiles - a.used; free > limit {
		free = limit
	}
	return free
}

// Full reports whether the allocated count reached MaxFiles.
func (a *Arena) Full() bool {
	return a.used >= a.geom.MaxFiles
}

// Allocate reserves the first free slot at or after index 2 and initializes
// an empty payload for mode. The previous occupant's payload never survives.
func (a *Arena) Allocate(mode Mode) (Index, error) {
	if !mode.IsSupported() {
		return NilIndex, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
	if a.Full() {
		return NilIndex, ErrArenaFull
	}

	for i := 2; i < a.geom.MaxFiles; i++ {
		b := &a.blocks[i]
		if b.Busy {
			continue
		}

		b.reset()
		b.Busy = true
		b.Mode = mode
		if mode.IsDir() {
			b.Dir = a.newDirPayload()
		} else {
			b.File = a.newFilePayload()
		}
		a.used++
		return b.Index, nil
	}

	return NilIndex, ErrArenaFull
}

// Free releases a slot. It does not check that no directory still refers to
// the block; that is the caller's invariant.
func (a *Arena) Free(idx Index) error {
	if idx == RootIndex {
		return fmt.Errorf("%w: the root block cannot be freed", ErrInvalidIndex)
	}
	b, err := a.Get(idx)
	if err != nil {
		return err
	}

	b.reset()
	a.used--
	return nil
}

// Get returns the busy block at idx.
func (a *Arena) Get(idx Index) (*Block, error) {
	if idx == NilIndex || int(idx) >= len(a.blocks) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, idx)
	}
	b := &a.blocks[idx]
	if !b.Busy {
		return nil, fmt.Errorf("%w: %d is not allocated", ErrInvalidIndex, idx)
	}
	return b, nil
}

// Root returns the root directory block.
func (a *Arena) Root() *Block {
	return &a.blocks[RootIndex]
}

// Walk calls fn for every busy block in index order until fn returns false.
func (a *Arena) Walk(fn func(*Block) bool) {
	for i := range a.blocks {
		if !a.blocks[i].Busy {
			continue
		}
		if !fn(&a.blocks[i]) {
			return
		}
	}
}

func (a *Arena) newDirPayload() *DirPayload {
	return &DirPayload{Entries: make([]DirEntry, 0, a.geom.MaxSubdirFiles)}
}

func (a *Arena) newFilePayload() *FilePayload {
	return &FilePayload{Data: make([]byte, a.geom.FileBufferSize)}
}
