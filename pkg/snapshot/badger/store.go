// Package badger implements snapshot.Store on an in-memory BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/snapshot"
)

const (
	prefixImage = "snap:"
	prefixInfo  = "info:"
)

func keyImage(id string) []byte { return []byte(prefixImage + id) }
func keyInfo(id string) []byte  { return []byte(prefixInfo + id) }

// Config configures a BadgerSnapshotStore.
type Config struct {
	// MaxSnapshots bounds the number of kept snapshots. 0 means unbounded.
	MaxSnapshots int `mapstructure:"max_snapshots"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 16)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 8)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_mb"`
}

// BadgerSnapshotStore stores snapshots in a BadgerDB opened in in-memory
// mode, so nothing survives the process.
//
// Storage Model:
//   - "snap:<id>" holds the encoded image
//   - "info:<id>" holds the JSON-encoded snapshot.Info
//
// Both keys of one snapshot are written and deleted in one transaction.
type BadgerSnapshotStore struct {
	// mu serializes Save so the sequence and eviction stay consistent.
	mu  sync.Mutex
	db  *badger.DB
	seq uint64
	max int
}

// NewBadgerSnapshotStore opens an in-memory BadgerDB.
func NewBadgerSnapshotStore(ctx context.Context, cfg Config) (*BadgerSnapshotStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 16
	}
	indexCacheMB := cfg.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 8
	}

	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory BadgerDB: %w", err)
	}

	return &BadgerSnapshotStore{db: db, max: cfg.MaxSnapshots}, nil
}

// Save implements snapshot.Store.
func (s *BadgerSnapshotStore) Save(ctx context.Context, label string, img block.Image) (snapshot.Info, error) {
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
	infoBytes, err := json.Marshal(info)
	if err != nil {
		return snapshot.Info{}, fmt.Errorf("failed to encode snapshot info: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyImage(info.ID), data); err != nil {
			return err
		}
		return txn.Set(keyInfo(info.ID), infoBytes)
	})
	if err != nil {
		return snapshot.Info{}, fmt.Errorf("failed to store snapshot: %w", err)
	}

	if err := s.evict(ctx); err != nil {
		return snapshot.Info{}, err
	}

	logger.Debug("snapshot %s saved: label=%q blocks=%d bytes=%d", info.ID, label, info.UsedBlocks, info.SizeBytes)
	return info, nil
}

// Load implements snapshot.Store.
func (s *BadgerSnapshotStore) Load(ctx context.Context, id string) (block.Image, error) {
	if err := ctx.Err(); err != nil {
		return block.Image{}, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyImage(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", snapshot.ErrSnapshotNotFound, id)
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return block.Image{}, err
	}

	return snapshot.Decode(data)
}

// List implements snapshot.Store.
func (s *BadgerSnapshotStore) List(ctx context.Context) ([]snapshot.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos := []snapshot.Info{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixInfo)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var info snapshot.Info
				if err := json.Unmarshal(val, &info); err != nil {
					return fmt.Errorf("failed to decode snapshot info: %w", err)
				}
				infos = append(infos, info)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snapshot.SortInfos(infos)
	return infos, nil
}

// Delete implements snapshot.Store.
func (s *BadgerSnapshotStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyInfo(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", snapshot.ErrSnapshotNotFound, id)
		} else if err != nil {
			return err
		}
		if err := txn.Delete(keyImage(id)); err != nil {
			return err
		}
		return txn.Delete(keyInfo(id))
	})
}

// Close closes the database, dropping every snapshot.
func (s *BadgerSnapshotStore) Close() error {
	return s.db.Close()
}

// evict drops the oldest snapshots beyond the bound. Callers hold mu.
func (s *BadgerSnapshotStore) evict(ctx context.Context) error {
	if s.max <= 0 {
		return nil
	}

	infos, err := s.List(ctx)
	if err != nil {
		return err
	}

	for len(infos) > s.max {
		oldest := infos[0]
		infos = infos[1:]
		if err := s.Delete(ctx, oldest.ID); err != nil {
			return fmt.Errorf("failed to evict snapshot %s: %w", oldest.ID, err)
		}
		logger.Debug("snapshot %s evicted", oldest.ID)
	}
	return nil
}
