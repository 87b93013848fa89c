// Package block implements the fixed-capacity block arena behind tinyfs.
//
// An Arena owns a table of MaxFiles+1 Blocks. Slot 0 is a reserved placeholder
// and slot 1 is the root directory. Every other slot is handed out by Allocate
// and returned by Free. A Block is either a directory (an ordered, bounded list
// of DirEntry values) or a regular file (a bounded byte buffer); the payload is
// a tagged variant selected by the block's Mode.
//
// The arena performs no locking and no tree bookkeeping. Callers that link
// blocks into directories (the tinyfs package) own both concerns.
package block

// Index identifies a slot in the arena. It is stable for the block's lifetime.
type Index uint32

const (
	// NilIndex is the reserved slot 0. It is never allocated.
	NilIndex Index = 0

	// RootIndex is the root directory, allocated on reset and never freed.
	RootIndex Index = 1
)

// DirEntry maps a bounded name to a block within a directory.
type DirEntry struct {
	Name   string `json:"name"`
	Target Index  `json:"index"`
}

// DirPayload is the payload of a directory block.
type DirPayload struct {
	// Entries in insertion order. len(Entries) is the children count and
	// never exceeds the geometry's MaxSubdirFiles.
	Entries []DirEntry
}

// Len returns the number of children.
func (d *DirPayload) Len() int {
	return len(d.Entries)
}

// Find returns the position of the first entry named name, or -1.
func (d *DirPayload) Find(name string) int {
	for i := range d.Entries {
		if d.Entries[i].Name == name {
			return i
		}
	}
	return -1
}

// Append adds an entry at the end.
func (d *DirPayload) Append(entry DirEntry) {
	d.Entries = append(d.Entries, entry)
}

// RemoveAt deletes the entry at position i, shifting later entries left so
// the array stays dense and ordered.
func (d *DirPayload) RemoveAt(i int) DirEntry {
	removed := d.Entries[i]
	copy(d.Entries[i:], d.Entries[i+1:])
	d.Entries[len(d.Entries)-1] = DirEntry{}
	d.Entries = d.Entries[:len(d.Entries)-1]
	return removed
}

// FilePayload is the payload of a regular file block.
type FilePayload struct {
	// Size is the logical length; bytes past Size are never returned.
	Size int

	// Data has the geometry's FileBufferSize length.
	Data []byte
}

// Block is one slot of the arena.
type Block struct {
	Busy  bool
	Mode  Mode
	Index Index

	// Exactly one of Dir and File is set on a busy block.
	Dir  *DirPayload
	File *FilePayload
}

// IsDir reports whether the block holds a directory payload.
func (b *Block) IsDir() bool {
	return b.Dir != nil
}

// IsRegular reports whether the block holds a file payload.
func (b *Block) IsRegular() bool {
	return b.File != nil
}

// reset returns the slot to its free state, keeping only its index.
func (b *Block) reset() {
	idx := b.Index
	*b = Block{Index: idx}
}
