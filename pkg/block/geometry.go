package block

import "fmt"

// Default capacity constants.
//
// These match the historical tinyfs layout: a directory entry is a MaxLen byte
// name plus a one byte index, and a regular file owns exactly as many bytes as
// a directory's entry array would occupy. The file capacity is stated here as
// its own constant so it can be tuned independently of the entry array.
const (
	// MaxFiles is the number of usable blocks, root included.
	// The arena table holds MaxFiles+1 slots because slot 0 is reserved.
	MaxFiles = 32

	// MaxSubdirFiles is the maximum number of entries in one directory.
	MaxSubdirFiles = 4

	// MaxLen bounds entry names. Stored names keep at most MaxLen-1 bytes.
	MaxLen = 8

	// FileBufferSize is the byte capacity of a regular file.
	FileBufferSize = (MaxLen + 1) * MaxSubdirFiles
)

// maxGeometryFiles keeps indices representable in the uint16 range.
const maxGeometryFiles = 65535

// Geometry groups the capacity constants of one arena.
//
// The zero value is not valid; use DefaultGeometry and override fields.
type Geometry struct {
	// MaxFiles is the total number of allocatable blocks, root included
	MaxFiles int `mapstructure:"max_files" yaml:"max_files" json:"max_files"`

	// MaxSubdirFiles caps the number of children of each directory
	MaxSubdirFiles int `mapstructure:"max_subdir_files" yaml:"max_subdir_files" json:"max_subdir_files"`

	// MaxLen bounds names; at most MaxLen-1 bytes are kept
	MaxLen int `mapstructure:"max_name_len" yaml:"max_name_len" json:"max_name_len"`

	// FileBufferSize is the capacity in bytes of every regular file
	FileBufferSize int `mapstructure:"file_buffer_size" yaml:"file_buffer_size" json:"file_buffer_size"`
}

// DefaultGeometry returns the historical tinyfs capacities.
func DefaultGeometry() Geometry {
	return Geometry{
		MaxFiles:       MaxFiles,
		MaxSubdirFiles: MaxSubdirFiles,
		MaxLen:         MaxLen,
		FileBufferSize: FileBufferSize,
	}
}

// Validate reports whether the geometry can back an arena.
func (g Geometry) Validate() error {
	if g.MaxFiles < 2 {
		return fmt.Errorf("max_files must be at least 2 (got %d)", g.MaxFiles)
	}
	if g.MaxFiles > maxGeometryFiles {
		return fmt.Errorf("max_files must be at most %d (got %d)", maxGeometryFiles, g.MaxFiles)
	}
	if g.MaxSubdirFiles < 1 {
		return fmt.Errorf("max_subdir_files must be at least 1 (got %d)", g.MaxSubdirFiles)
	}
	if g.MaxLen < 2 {
		return fmt.Errorf("max_name_len must be at least 2 (got %d)", g.MaxLen)
	}
	if g.FileBufferSize < 1 {
		return fmt.Errorf("file_buffer_size must be at least 1 (got %d)", g.FileBufferSize)
	}
	return nil
}

// MaxNameBytes is the longest name an entry can store.
func (g Geometry) MaxNameBytes() int {
	return g.MaxLen - 1
}

// AllocatableBlocks is the number of blocks Allocate can hand out after a
// reset. Slot 0 is reserved, slot 1 is the root, and the scan stops before
// slot MaxFiles.
func (g Geometry) AllocatableBlocks() int {
	return g.MaxFiles - 2
}

// TruncateName cuts name to the geometry's name bound.
func (g Geometry) TruncateName(name string) string {
	if len(name) > g.MaxNameBytes() {
		return name[:g.MaxNameBytes()]
	}
	return name
}
