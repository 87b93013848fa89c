package tinyfs

import (
	"context"
	"strings"
	"time"

	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/pkg/block"
)

// ============================================================================
// Creation
// ============================================================================

// Create allocates a directory or regular file named name inside parent and
// returns its index.
//
// Checks run in this order, and a failing check leaves state untouched:
//   - parent is a busy block (ErrInvalidHandle)
//   - parent is a directory (ErrNotDirectory)
//   - the arena has a free block (ErrNoSpace)
//   - parent has fewer than MaxSubdirFiles entries (ErrDirectoryFull)
//   - mode is a directory or regular file (ErrInvalidArgument)
//   - name is non-empty, has no '/' or NUL, and is not "." or ".." (ErrInvalidArgument)
//   - the truncated name is not already present (ErrAlreadyExists)
//
// Names longer than MaxLen-1 bytes are truncated, not rejected.
func (fs *FileSystem) Create(ctx context.Context, parent block.Index, name string, mode block.Mode) (idx block.Index, err error) {
	start := time.Now()
	defer func() { fs.observe("Create", start, err) }()

	if err := ctx.Err(); err != nil {
		return block.NilIndex, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	pblk, err := fs.getDir(parent)
	if err != nil {
		return block.NilIndex, err
	}

	if fs.arena.Available() == 0 {
		return block.NilIndex, newError(ErrNoSpace, "no free blocks left", name)
	}

	if pblk.Dir.Len() >= fs.arena.Geometry().MaxSubdirFiles {
		logger.Debug("create %q: directory %d already holds %d entries", name, parent, pblk.Dir.Len())
		return block.NilIndex, newError(ErrDirectoryFull, "directory is full", name)
	}

	if !mode.IsSupported() {
		return block.NilIndex, newError(ErrInvalidArgument, "mode must be a directory or regular file", name)
	}

	if err := validateName(name); err != nil {
		return block.NilIndex, err
	}

	stored := fs.arena.Geometry().TruncateName(name)
	if pblk.Dir.Find(stored) >= 0 {
		return block.NilIndex, newError(ErrAlreadyExists, "name already exists", stored)
	}

	idx, err = fs.arena.Allocate(mode)
	if err != nil {
		return block.NilIndex, fromBlockError(err, name)
	}

	pblk.Dir.Append(block.DirEntry{Name: stored, Target: idx})
	fs.syncUsed()

	logger.Debug("create %q in %d -> block %d (%s)", stored, parent, idx, mode)
	return idx, nil
}

// Mkdir creates a directory with the given permission bits.
func (fs *FileSystem) Mkdir(ctx context.Context, parent block.Index, name string, perm block.Mode) (block.Index, error) {
	return fs.Create(ctx, parent, name, block.ModeDir|perm.Perm())
}

// CreateFile creates a regular file with the given permission bits.
func (fs *FileSystem) CreateFile(ctx context.Context, parent block.Index, name string, perm block.Mode) (block.Index, error) {
	return fs.Create(ctx, parent, name, block.ModeRegular|perm.Perm())
}

// validateName rejects names that cannot live in a directory entry.
func validateName(name string) error {
	switch {
	case name == "":
		return newError(ErrInvalidArgument, "name must not be empty", name)
	case name == "." || name == "..":
		return newError(ErrInvalidArgument, "name is reserved", name)
	case strings.ContainsAny(name, "/\x00"):
		return newError(ErrInvalidArgument, "name contains an invalid character", name)
	}
	return nil
}

// ============================================================================
// Queries
// ============================================================================

// Lookup resolves name inside parent. The name is truncated the same way
// Create truncates it, and the first matching entry wins. Lookup never
// mutates state.
func (fs *FileSystem) Lookup(ctx context.Context, parent block.Index, name string) (idx block.Index, err error) {
	start := time.Now()
	defer func() { fs.observe("Lookup", start, err) }()

	if err := ctx.Err(); err != nil {
		return block.NilIndex, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	pblk, err := fs.getDir(parent)
	if err != nil {
		return block.NilIndex, err
	}

	i := pblk.Dir.Find(fs.arena.Geometry().TruncateName(name))
	if i < 0 {
		return block.NilIndex, newError(ErrNotFound, "name not found", name)
	}
	return pblk.Dir.Entries[i].Target, nil
}

// ListChildren returns a copy of dir's entries in insertion order. The "."
// and ".." pseudo-entries are not included.
func (fs *FileSystem) ListChildren(ctx context.Context, dir block.Index) (entries []block.DirEntry, err error) {
	start := time.Now()
	defer func() { fs.observe("ListChildren", start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dblk, err := fs.getDir(dir)
	if err != nil {
		return nil, err
	}

	entries = make([]block.DirEntry, dblk.Dir.Len())
	copy(entries, dblk.Dir.Entries)
	return entries, nil
}

// Children walks dir's entries once, in insertion order, until fn returns
// false. The read lock is held during the walk, so fn must not call back
// into the filesystem.
func (fs *FileSystem) Children(ctx context.Context, dir block.Index, fn func(block.DirEntry) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dblk, err := fs.getDir(dir)
	if err != nil {
		return err
	}

	for _, e := range dblk.Dir.Entries {
		if !fn(e) {
			break
		}
	}
	return nil
}

// ============================================================================
// Removal
// ============================================================================

// Unlink removes the entry name from parent and frees its block. Later
// entries shift left so the list keeps its order without holes. A directory
// target is accepted only when empty (ErrNotEmpty otherwise), so removal
// never orphans descendant blocks.
func (fs *FileSystem) Unlink(ctx context.Context, parent block.Index, name string) (err error) {
	start := time.Now()
	defer func() { fs.observe("Unlink", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.removeLocked(parent, name, false)
}

// Rmdir removes the empty directory name from parent. Unlike the historical
// behavior, the parent entry is removed together with the block, so no stale
// entry can point at a freed or reused block.
func (fs *FileSystem) Rmdir(ctx context.Context, parent block.Index, name string) (err error) {
	start := time.Now()
	defer func() { fs.observe("Rmdir", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.removeLocked(parent, name, true)
}

// removeLocked detaches and frees one entry. Callers hold mu for writing.
func (fs *FileSystem) removeLocked(parent block.Index, name string, dirOnly bool) error {
	pblk, err := fs.getDir(parent)
	if err != nil {
		return err
	}

	stored := fs.arena.Geometry().TruncateName(name)
	i := pblk.Dir.Find(stored)
	if i < 0 {
		return newError(ErrNotFound, "name not found", name)
	}

	target, err := fs.getBlock(pblk.Dir.Entries[i].Target)
	if err != nil {
		return err
	}

	if dirOnly && !target.IsDir() {
		return newError(ErrNotDirectory, "not a directory", name)
	}
	if target.IsDir() && target.Dir.Len() > 0 {
		return newError(ErrNotEmpty, "directory not empty", name)
	}

	removed := pblk.Dir.RemoveAt(i)
	if err := fs.arena.Free(removed.Target); err != nil {
		// Unreachable: the target was busy and the root is never linked
		return fromBlockError(err, name)
	}
	fs.syncUsed()

	logger.Debug("remove %q from %d -> freed block %d", stored, parent, removed.Target)
	return nil
}
