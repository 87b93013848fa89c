// Package tinyfs implements the namespace and file I/O layer of a volatile,
// fixed-capacity filesystem on top of a block.Arena.
//
// A FileSystem is a single-rooted tree of directory and regular-file blocks.
// Directories hold a bounded, ordered list of entries; files hold a bounded
// byte buffer. The FileSystem is the only mutator of its arena and of every
// directory entry list, which lets it keep these invariants:
//   - the root lives at block.RootIndex and is never freed
//   - a block is busy iff it is the root or reachable through one entry
//   - entry lists are dense and in insertion order
//   - names within a directory are unique after truncation
//
// Thread Safety:
// One read-write mutex guards the arena and all entry lists. Queries and
// reads take the read lock and may run concurrently; every mutation
// (including Write and Truncate) takes the write lock.
//
// Adapters (FUSE, HTTP) map their own objects to block indices, add the "."
// and ".." pseudo-entries, and drive mount (New / Reset) and teardown.
package tinyfs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/metrics"
)

// Config configures a FileSystem.
type Config struct {
	// Geometry sets the capacities. The zero value selects block.DefaultGeometry().
	Geometry block.Geometry

	// Metrics receives per-operation observations. nil disables metrics.
	Metrics metrics.FSMetrics
}

// FileSystem is a mounted tinyfs instance.
//
// Thread safety:
// All methods are safe for concurrent use. Children holds the read lock
// while its callback runs.
type FileSystem struct {
	// mu protects arena and every directory payload inside it.
	mu    sync.RWMutex
	arena *block.Arena

	// used mirrors arena.Used() so metrics can be published without the lock.
	used atomic.Int64

	metrics metrics.FSMetrics
}

// Attr describes one block as seen by adapters.
type Attr struct {
	Index block.Index `json:"index"`
	Mode  block.Mode  `json:"mode"`

	// Size is the logical file length; always 0 for directories.
	Size int `json:"size"`

	// Children is the number of directory entries; always 0 for files.
	Children int `json:"children"`

	// Subdirs counts child directories, for link counts.
	Subdirs int `json:"subdirs"`
}

// IsDir reports whether the block is a directory.
func (a Attr) IsDir() bool {
	return a.Mode.IsDir()
}

// FSStat summarizes capacity usage.
type FSStat struct {
	TotalBlocks  int `json:"total_blocks"`
	UsedBlocks   int `json:"used_blocks"`
	FreeBlocks   int `json:"free_blocks"`
	MaxChildren  int `json:"max_children"`
	MaxNameLen   int `json:"max_name_len"`
	FileCapacity int `json:"file_capacity"`
}

// New creates and mounts a filesystem: every block is cleared and the root
// directory is allocated.
func New(ctx context.Context, cfg Config) (*FileSystem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	geom := cfg.Geometry
	if geom == (block.Geometry{}) {
		geom = block.DefaultGeometry()
	}

	arena, err := block.NewArena(geom)
	if err != nil {
		return nil, newError(ErrInvalidArgument, err.Error(), "")
	}

	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNoopFSMetrics()
	}

	fs := &FileSystem{
		arena:   arena,
		metrics: m,
	}
	fs.used.Store(int64(arena.Used()))
	m.SetBlockCapacity(geom.MaxFiles)
	m.SetBlocksInUse(arena.Used())

	logger.Debug("tinyfs mounted: max_files=%d max_subdir_files=%d max_name_len=%d file_buffer_size=%d",
		geom.MaxFiles, geom.MaxSubdirFiles, geom.MaxLen, geom.FileBufferSize)

	return fs, nil
}

// NewWithDefaults mounts a filesystem with the default geometry and no metrics.
func NewWithDefaults() *FileSystem {
	fs, err := New(context.Background(), Config{})
	if err != nil {
		// The default geometry always validates
		panic(err)
	}
	return fs
}

// Geometry returns the capacities of the filesystem.
func (fs *FileSystem) Geometry() block.Geometry {
	// Immutable after New
	return fs.arena.Geometry()
}

// Root returns the index of the root directory.
func (fs *FileSystem) Root() block.Index {
	return block.RootIndex
}

// Reset discards every entry and block and allocates a fresh root. This is
// the equivalent of unmounting and mounting again.
func (fs *FileSystem) Reset(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { fs.observe("Reset", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.arena.Reset()
	fs.syncUsed()
	logger.Debug("tinyfs reset")
	return nil
}

// Stat returns the attributes of a busy block.
func (fs *FileSystem) Stat(ctx context.Context, idx block.Index) (attr Attr, err error) {
	start := time.Now()
	defer func() { fs.observe("Stat", start, err) }()

	if err := ctx.Err(); err != nil {
		return Attr{}, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	b, err := fs.getBlock(idx)
	if err != nil {
		return Attr{}, err
	}
	return fs.attrLocked(b), nil
}

// StatFS returns capacity usage.
func (fs *FileSystem) StatFS(ctx context.Context) (FSStat, error) {
	if err := ctx.Err(); err != nil {
		return FSStat{}, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	geom := fs.arena.Geometry()
	return FSStat{
		TotalBlocks:  geom.MaxFiles,
		UsedBlocks:   fs.arena.Used(),
		FreeBlocks:   fs.arena.Available(),
		MaxChildren:  geom.MaxSubdirFiles,
		MaxNameLen:   geom.MaxNameBytes(),
		FileCapacity: geom.FileBufferSize,
	}, nil
}

// Image captures the whole tree, e.g. for a snapshot.
func (fs *FileSystem) Image(ctx context.Context) (block.Image, error) {
	if err := ctx.Err(); err != nil {
		return block.Image{}, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.arena.Image(), nil
}

// LoadImage replaces the whole tree with img. Invalid images are rejected with
// ErrInvalidArgument and leave the filesystem unchanged.
func (fs *FileSystem) LoadImage(ctx context.Context, img block.Image) (err error) {
	start := time.Now()
	defer func() { fs.observe("LoadImage", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.arena.LoadImage(img); err != nil {
		return fromBlockError(err, "")
	}
	fs.syncUsed()
	logger.Debug("tinyfs image loaded: %d blocks", len(img.Blocks))
	return nil
}

// getBlock returns a busy block or ErrInvalidHandle. Callers hold mu.
func (fs *FileSystem) getBlock(idx block.Index) (*block.Block, error) {
	b, err := fs.arena.Get(idx)
	if err != nil {
		return nil, fromBlockError(err, "")
	}
	return b, nil
}

// getDir returns a busy directory block. Callers hold mu.
func (fs *FileSystem) getDir(idx block.Index) (*block.Block, error) {
	b, err := fs.getBlock(idx)
	if err != nil {
		return nil, err
	}
	if !b.IsDir() {
		return nil, newError(ErrNotDirectory, "not a directory", "")
	}
	return b, nil
}

// getFile returns a busy regular-file block. Callers hold mu.
func (fs *FileSystem) getFile(idx block.Index) (*block.Block, error) {
	b, err := fs.getBlock(idx)
	if err != nil {
		return nil, err
	}
	if !b.IsRegular() {
		return nil, newError(ErrIsDirectory, "is a directory", "")
	}
	return b, nil
}

// attrLocked builds the Attr of b. Callers hold mu.
func (fs *FileSystem) attrLocked(b *block.Block) Attr {
	attr := Attr{Index: b.Index, Mode: b.Mode}
	if b.File != nil {
		attr.Size = b.File.Size
	}
	if b.Dir != nil {
		attr.Children = b.Dir.Len()
		for _, e := range b.Dir.Entries {
			if child, err := fs.arena.Get(e.Target); err == nil && child.IsDir() {
				attr.Subdirs++
			}
		}
	}
	return attr
}

// syncUsed publishes the allocation count. Callers hold mu for writing.
func (fs *FileSystem) syncUsed() {
	fs.used.Store(int64(fs.arena.Used()))
}

func (fs *FileSystem) observe(op string, start time.Time, err error) {
	fs.metrics.RecordOperation(op, time.Since(start), codeLabel(err))
	fs.metrics.SetBlocksInUse(int(fs.used.Load()))
}
