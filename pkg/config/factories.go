package config

import (
	"context"
	"fmt"

	"github.com/marmos91/tinyfs/pkg/adapter"
	"github.com/marmos91/tinyfs/pkg/adapter/control"
	"github.com/marmos91/tinyfs/pkg/adapter/fuse"
	"github.com/marmos91/tinyfs/pkg/metrics"
	"github.com/marmos91/tinyfs/pkg/snapshot"
	snapshotBadger "github.com/marmos91/tinyfs/pkg/snapshot/badger"
	snapshotMemory "github.com/marmos91/tinyfs/pkg/snapshot/memory"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
	"github.com/mitchellh/mapstructure"
)

// CreateFileSystem mounts a filesystem with the configured geometry.
//
// Parameters:
//   - ctx: Context for initialization
//   - cfg: The complete tinyfs configuration
//   - fsMetrics: Optional collector (nil = no metrics)
func CreateFileSystem(ctx context.Context, cfg *Config, fsMetrics metrics.FSMetrics) (*tinyfs.FileSystem, error) {
	fs, err := tinyfs.New(ctx, tinyfs.Config{
		Geometry: cfg.Filesystem,
		Metrics:  fsMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem: %w", err)
	}
	return fs, nil
}

// CreateSnapshotStore creates the snapshot store selected by cfg.Type, or
// returns nil when snapshots are disabled.
//
// The type-specific map is decoded into the store's own Config with
// mapstructure; the section-level MaxSnapshots always wins over a
// max_snapshots key inside the map.
//
// Supported types:
//   - "memory": pkg/snapshot/memory
//   - "badger": pkg/snapshot/badger (BadgerDB in in-memory mode)
func CreateSnapshotStore(ctx context.Context, cfg *SnapshotsConfig) (snapshot.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Type {
	case "memory":
		return createMemorySnapshotStore(cfg)
	case "badger":
		return createBadgerSnapshotStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown snapshot store type: %q", cfg.Type)
	}
}

func createMemorySnapshotStore(cfg *SnapshotsConfig) (snapshot.Store, error) {
	var storeCfg snapshotMemory.Config
	if err := mapstructure.Decode(cfg.Memory, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory snapshot store config: %w", err)
	}
	storeCfg.MaxSnapshots = cfg.MaxSnapshots

	return snapshotMemory.NewMemorySnapshotStore(storeCfg), nil
}

func createBadgerSnapshotStore(ctx context.Context, cfg *SnapshotsConfig) (snapshot.Store, error) {
	var storeCfg snapshotBadger.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &storeCfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(cfg.Badger); err != nil {
		return nil, fmt.Errorf("failed to decode badger snapshot store config: %w", err)
	}
	storeCfg.MaxSnapshots = cfg.MaxSnapshots

	store, err := snapshotBadger.NewBadgerSnapshotStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger snapshot store: %w", err)
	}
	return store, nil
}

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// Parameters:
//   - cfg: The complete tinyfs configuration
//   - snapshots: Store backing the snapshot routes (nil disables them)
//   - httpMetrics: Optional control API collector (nil = no metrics)
func CreateAdapters(cfg *Config, snapshots snapshot.Store, httpMetrics metrics.HTTPMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.FUSE.Enabled {
		adapters = append(adapters, fuse.New(cfg.Adapters.FUSE))
	}

	if cfg.Adapters.HTTP.Enabled {
		adapters = append(adapters, control.New(cfg.Adapters.HTTP, snapshots, httpMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
