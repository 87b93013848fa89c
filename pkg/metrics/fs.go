package metrics

import "time"

// FSMetrics provides observability for filesystem operations.
//
// The filesystem calls these hooks after every operation, outside of its
// lock. Implementations must be safe for concurrent use.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewFSMetrics()
//	fs, _ := tinyfs.New(ctx, tinyfs.Config{Metrics: m})
//
//	// Without metrics (no-op)
//	fs, _ := tinyfs.New(ctx, tinyfs.Config{})
type FSMetrics interface {
	// RecordOperation records a completed operation.
	//
	// Parameters:
	//   - operation: Operation name (e.g., "Create", "Lookup", "Write")
	//   - duration: Time taken to complete the operation
	//   - errorCode: Error code name, empty on success
	RecordOperation(operation string, duration time.Duration, errorCode string)

	// RecordBytes records payload bytes moved by Read or Write.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: Number of bytes transferred
	RecordBytes(direction string, bytes int)

	// SetBlocksInUse updates the number of allocated blocks, root included.
	SetBlocksInUse(count int)

	// SetBlockCapacity updates the total number of blocks of the arena.
	SetBlockCapacity(count int)
}

// NewNoopFSMetrics returns an FSMetrics that discards everything.
func NewNoopFSMetrics() FSMetrics {
	return noopFSMetrics{}
}

type noopFSMetrics struct{}

func (noopFSMetrics) RecordOperation(operation string, duration time.Duration, errorCode string) {}
func (noopFSMetrics) RecordBytes(direction string, bytes int)                                     {}
func (noopFSMetrics) SetBlocksInUse(count int)                                                    {}
func (noopFSMetrics) SetBlockCapacity(count int)                                                  {}
