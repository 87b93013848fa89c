//go:build linux || freebsd

package fuse

import (
	"context"
	"os"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
)

// FS is the fusefs.FS view of a tinyfs filesystem. Nodes are (filesystem,
// block index) pairs and hold no other state, so the kernel can drop them
// at will.
type FS struct {
	fs *tinyfs.FileSystem
}

// NewFS wraps fs for fusefs.Serve.
func NewFS(fs *tinyfs.FileSystem) *FS {
	return &FS{fs: fs}
}

var _ fusefs.FS = (*FS)(nil)

// Root implements fusefs.FS.
func (f *FS) Root() (fusefs.Node, error) {
	return &Dir{fs: f.fs, idx: f.fs.Root(), parent: f.fs.Root()}, nil
}

// fillAttr copies the block attributes into a.
func fillAttr(ctx context.Context, fs *tinyfs.FileSystem, idx block.Index, a *fuse.Attr) error {
	attr, err := fs.Stat(ctx, idx)
	if err != nil {
		return toErrno(err)
	}

	a.Inode = uint64(idx)
	a.Mode = attr.Mode.FileMode()
	a.Size = uint64(attr.Size)
	a.Blocks = (a.Size + 511) / 512
	a.Nlink = 1
	if attr.IsDir() {
		a.Nlink = uint32(2 + attr.Subdirs)
	}
	a.Uid = uint32(os.Getuid())
	a.Gid = uint32(os.Getgid())
	return nil
}

// ============================================================================
// Directories
// ============================================================================

// Dir is a directory block. parent is only used for the ".." entry.
type Dir struct {
	fs     *tinyfs.FileSystem
	idx    block.Index
	parent block.Index
}

var (
	_ fusefs.Node               = (*Dir)(nil)
	_ fusefs.NodeStringLookuper = (*Dir)(nil)
	_ fusefs.HandleReadDirAller = (*Dir)(nil)
	_ fusefs.NodeCreater        = (*Dir)(nil)
	_ fusefs.NodeMkdirer        = (*Dir)(nil)
	_ fusefs.NodeRemover        = (*Dir)(nil)
)

// Attr implements fusefs.Node.
func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	return fillAttr(ctx, d.fs, d.idx, a)
}

// Lookup implements fusefs.NodeStringLookuper.
func (d *Dir) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	idx, err := d.fs.Lookup(ctx, d.idx, name)
	if err != nil {
		return nil, toErrno(err)
	}
	return d.node(ctx, idx)
}

// node wraps child idx in the matching node type.
func (d *Dir) node(ctx context.Context, idx block.Index) (fusefs.Node, error) {
	attr, err := d.fs.Stat(ctx, idx)
	if err != nil {
		return nil, toErrno(err)
	}
	if attr.IsDir() {
		return &Dir{fs: d.fs, idx: idx, parent: d.idx}, nil
	}
	return &File{fs: d.fs, idx: idx}, nil
}

// ReadDirAll implements fusefs.HandleReadDirAller. The listing starts with
// "." and "..", followed by the entries in insertion order.
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	entries, err := d.fs.ListChildren(ctx, d.idx)
	if err != nil {
		return nil, toErrno(err)
	}

	dirents := make([]fuse.Dirent, 0, len(entries)+2)
	dirents = append(dirents,
		fuse.Dirent{Inode: uint64(d.idx), Type: fuse.DT_Dir, Name: "."},
		fuse.Dirent{Inode: uint64(d.parent), Type: fuse.DT_Dir, Name: ".."},
	)

	for _, e := range entries {
		typ := fuse.DT_File
		if attr, err := d.fs.Stat(ctx, e.Target); err == nil && attr.IsDir() {
			typ = fuse.DT_Dir
		}
		dirents = append(dirents, fuse.Dirent{Inode: uint64(e.Target), Type: typ, Name: e.Name})
	}
	return dirents, nil
}

// Create implements fusefs.NodeCreater.
func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	idx, err := d.fs.CreateFile(ctx, d.idx, req.Name, block.Mode(req.Mode.Perm()))
	if err != nil {
		return nil, nil, toErrno(err)
	}
	f := &File{fs: d.fs, idx: idx}
	return f, f, nil
}

// Mkdir implements fusefs.NodeMkdirer.
func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	idx, err := d.fs.Mkdir(ctx, d.idx, req.Name, block.Mode(req.Mode.Perm()))
	if err != nil {
		return nil, toErrno(err)
	}
	return &Dir{fs: d.fs, idx: idx, parent: d.idx}, nil
}

// Remove implements fusefs.NodeRemover. rmdir(2) arrives with req.Dir set.
func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	if req.Dir {
		return toErrno(d.fs.Rmdir(ctx, d.idx, req.Name))
	}
	return toErrno(d.fs.Unlink(ctx, d.idx, req.Name))
}

// ============================================================================
// Files
// ============================================================================

// File is a regular file block. It serves as its own handle.
type File struct {
	fs  *tinyfs.FileSystem
	idx block.Index
}

var (
	_ fusefs.Node          = (*File)(nil)
	_ fusefs.HandleReader  = (*File)(nil)
	_ fusefs.HandleWriter  = (*File)(nil)
	_ fusefs.NodeSetattrer = (*File)(nil)
)

// Attr implements fusefs.Node.
func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	return fillAttr(ctx, f.fs, f.idx, a)
}

// Read implements fusefs.HandleReader.
func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	data, err := f.fs.Read(ctx, f.idx, req.Offset, req.Size)
	if err != nil {
		return toErrno(err)
	}
	resp.Data = data
	return nil
}

// Write implements fusefs.HandleWriter.
func (f *File) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	n, err := f.fs.Write(ctx, f.idx, req.Offset, req.Data)
	if err != nil {
		return toErrno(err)
	}
	resp.Size = n
	return nil
}

// Setattr implements fusefs.NodeSetattrer. Only size changes are applied;
// the stored mode is fixed at creation.
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		if err := f.fs.Truncate(ctx, f.idx, int64(req.Size)); err != nil {
			return toErrno(err)
		}
	}
	return f.Attr(ctx, &resp.Attr)
}
