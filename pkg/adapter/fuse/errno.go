//go:build linux || freebsd

package fuse

import (
	"context"
	"errors"
	"syscall"

	"bazil.org/fuse"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
)

// toErrno translates filesystem errors to the errno the kernel reports.
// Unknown errors become EIO.
func toErrno(err error) error {
	if err == nil {
		return nil
	}

	if code, ok := tinyfs.CodeOf(err); ok {
		switch code {
		case tinyfs.ErrNotFound:
			return fuse.ENOENT
		case tinyfs.ErrNoSpace, tinyfs.ErrDirectoryFull, tinyfs.ErrFileTooLarge:
			return fuse.Errno(syscall.ENOSPC)
		case tinyfs.ErrNotDirectory:
			return fuse.Errno(syscall.ENOTDIR)
		case tinyfs.ErrIsDirectory:
			return fuse.Errno(syscall.EISDIR)
		case tinyfs.ErrInvalidArgument:
			return fuse.Errno(syscall.EINVAL)
		case tinyfs.ErrAlreadyExists:
			return fuse.EEXIST
		case tinyfs.ErrNotEmpty:
			return fuse.Errno(syscall.ENOTEMPTY)
		case tinyfs.ErrInvalidHandle:
			return fuse.Errno(syscall.ESTALE)
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fuse.EINTR
	}
	return fuse.EIO
}
