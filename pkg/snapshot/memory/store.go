// Package memory implements snapshot.Store with a map of encoded images.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/snapshot"
)

// Config configures a MemorySnapshotStore.
type Config struct {
	// MaxSnapshots bounds the number of kept snapshots. 0 means unbounded.
	MaxSnapshots int `mapstructure:"max_snapshots"`
}

type entry struct {
	info snapshot.Info
	data []byte
}

// MemorySnapshotStore keeps encoded snapshots in process memory.
//
// Thread Safety:
// A single read-write mutex protects the map and the sequence counter.
type MemorySnapshotStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	seq     uint64
	max     int
}

// NewMemorySnapshotStore creates an empty store.
func NewMemorySnapshotStore(cfg Config) *MemorySnapshotStore {
	return &MemorySnapshotStore{
		entries: make(map[string]entry),
		max:     cfg.MaxSnapshots,
	}
}

// Save implements snapshot.Store.
func (s *MemorySnapshotStore) Save(ctx context.Context, label string, img block.Image) (snapshot.Info, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.Info{}, err
	}

	data, err := snapshot.Encode(img)
	if err != nil {
		return snapshot.Info{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	info := snapshot.NewInfo(label, s.seq, img, data)
	s.entries[info.ID] = entry{info: info, data: data}
	s.evictLocked()

	logger.Debug("snapshot %s saved: label=%q blocks=%d bytes=%d", info.ID, label, info.UsedBlocks, info.SizeBytes)
	return info, nil
}

// Load implements snapshot.Store.
func (s *MemorySnapshotStore) Load(ctx context.Context, id string) (block.Image, error) {
	if err := ctx.Err(); err != nil {
		return block.Image{}, err
	}

	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return block.Image{}, fmt.Errorf("%w: %s", snapshot.ErrSnapshotNotFound, id)
	}
	return snapshot.Decode(e.data)
}

// List implements snapshot.Store.
func (s *MemorySnapshotStore) List(ctx context.Context) ([]snapshot.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]snapshot.Info, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, e.info)
	}
	snapshot.SortInfos(infos)
	return infos, nil
}

// Delete implements snapshot.Store.
func (s *MemorySnapshotStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%w: %s", snapshot.ErrSnapshotNotFound, id)
	}
	delete(s.entries, id)
	return nil
}

// Close drops every snapshot.
func (s *MemorySnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
	return nil
}

// evictLocked drops the oldest snapshots beyond the bound. Callers hold mu.
func (s *MemorySnapshotStore) evictLocked() {
	for s.max > 0 && len(s.entries) > s.max {
		var oldest string
		var oldestSeq uint64
		for id, e := range s.entries {
			if oldest == "" || e.info.Sequence < oldestSeq {
				oldest, oldestSeq = id, e.info.Sequence
			}
		}
		delete(s.entries, oldest)
		logger.Debug("snapshot %s evicted", oldest)
	}
}
