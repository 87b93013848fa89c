package tinyfs

import (
	"context"
	"time"

	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/pkg/block"
)

// Read copies up to length bytes of file idx starting at offset. Reads past
// the logical size return an empty slice; reads that straddle it are short.
// The returned slice is a copy and safe to retain.
func (fs *FileSystem) Read(ctx context.Context, idx block.Index, offset int64, length int) (data []byte, err error) {
	start := time.Now()
	defer func() {
		fs.observe("Read", start, err)
		if err == nil {
			fs.metrics.RecordBytes("read", len(data))
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, newError(ErrInvalidArgument, "offset and length must not be negative", "")
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	b, err := fs.getFile(idx)
	if err != nil {
		return nil, err
	}

	size := int64(b.File.Size)
	if offset >= size {
		return []byte{}, nil
	}

	// Compare against the remaining bytes so a huge length cannot overflow
	end := size
	if int64(length) < size-offset {
		end = offset + int64(length)
	}

	data = make([]byte, end-offset)
	copy(data, b.File.Data[offset:end])
	return data, nil
}

// Write stores data into file idx at offset and returns the number of bytes
// written, which is always len(data) on success.
//
// The write is all or nothing: if offset+len(data) exceeds the file capacity
// nothing is written and ErrFileTooLarge is returned. Writing past the
// current size zero-fills the gap. The new size is offset+len(data), so a
// write that ends before the old size also shortens the file.
func (fs *FileSystem) Write(ctx context.Context, idx block.Index, offset int64, data []byte) (n int, err error) {
	start := time.Now()
	defer func() {
		fs.observe("Write", start, err)
		if err == nil {
			fs.metrics.RecordBytes("write", n)
		}
	}()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, newError(ErrInvalidArgument, "offset must not be negative", "")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	b, err := fs.getFile(idx)
	if err != nil {
		return 0, err
	}

	capacity := int64(len(b.File.Data))
	if offset > capacity || int64(len(data)) > capacity-offset {
		logger.Debug("write to block %d rejected: %d bytes at offset %d exceed capacity %d",
			idx, len(data), offset, capacity)
		return 0, newError(ErrFileTooLarge, "write exceeds file capacity", "")
	}
	end := offset + int64(len(data))

	if old := int64(b.File.Size); offset > old {
		clear(b.File.Data[old:offset])
	}
	copy(b.File.Data[offset:end], data)
	b.File.Size = int(end)

	return len(data), nil
}

// Truncate sets the logical size of file idx. Shrinking discards the tail;
// growing zero-fills up to size, which must fit the file capacity.
func (fs *FileSystem) Truncate(ctx context.Context, idx block.Index, size int64) (err error) {
	start := time.Now()
	defer func() { fs.observe("Truncate", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if size < 0 {
		return newError(ErrInvalidArgument, "size must not be negative", "")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	b, err := fs.getFile(idx)
	if err != nil {
		return err
	}

	if size > int64(len(b.File.Data)) {
		return newError(ErrFileTooLarge, "size exceeds file capacity", "")
	}

	old := int64(b.File.Size)
	if size > old {
		clear(b.File.Data[old:size])
	} else {
		clear(b.File.Data[size:old])
	}
	b.File.Size = int(size)
	return nil
}
