// Package snapshot keeps named, volatile checkpoints of a tinyfs tree.
//
// A snapshot is a block.Image encoded with the codec in this package. Stores
// never write to disk: the memory store keeps encoded images in a map and the
// badger store runs BadgerDB in in-memory mode. Restoring a snapshot is a
// FileSystem.LoadImage of the decoded image.
package snapshot

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/tinyfs/pkg/block"
)

// ErrSnapshotNotFound is returned when no snapshot has the requested ID.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Info describes a stored snapshot.
type Info struct {
	// ID is a random UUID assigned on Save
	ID string `json:"id"`

	// Label is the caller-provided name; it need not be unique
	Label string `json:"label"`

	// CreatedAt is the time of the Save call
	CreatedAt time.Time `json:"created_at"`

	// Sequence orders snapshots of one store by creation
	Sequence uint64 `json:"sequence"`

	// UsedBlocks is the number of busy blocks in the image, root included
	UsedBlocks int `json:"used_blocks"`

	// SizeBytes is the encoded image size
	SizeBytes int `json:"size_bytes"`
}

// Store persists snapshots for the lifetime of the process.
//
// Implementations must be safe for concurrent use. When a store is bounded,
// Save evicts the oldest snapshots once the bound is exceeded.
type Store interface {
	// Save encodes img and stores it under a new ID.
	Save(ctx context.Context, label string, img block.Image) (Info, error)

	// Load returns the decoded image of snapshot id.
	Load(ctx context.Context, id string) (block.Image, error)

	// List returns every snapshot, oldest first.
	List(ctx context.Context) ([]Info, error)

	// Delete removes snapshot id.
	Delete(ctx context.Context, id string) error

	// Close releases the store's resources.
	Close() error
}

// NewInfo builds the Info of a snapshot about to be stored.
func NewInfo(label string, seq uint64, img block.Image, encoded []byte) Info {
	return Info{
		ID:         uuid.NewString(),
		Label:      label,
		CreatedAt:  time.Now().UTC(),
		Sequence:   seq,
		UsedBlocks: len(img.Blocks),
		SizeBytes:  len(encoded),
	}
}

// SortInfos orders infos oldest first.
func SortInfos(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})
}
