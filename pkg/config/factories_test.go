package config

import (
	"context"
	"strings"
	"testing"

	"github.com/marmos91/tinyfs/pkg/block"
)

func TestCreateFileSystem(t *testing.T) {
	ctx := context.Background()

	cfg := GetDefaultConfig()
	cfg.Filesystem = block.Geometry{MaxFiles: 8, MaxSubdirFiles: 2, MaxLen: 4, FileBufferSize: 8}

	fs, err := CreateFileSystem(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create filesystem: %v", err)
	}
	if fs.Geometry() != cfg.Filesystem {
		t.Errorf("Expected geometry %+v, got %+v", cfg.Filesystem, fs.Geometry())
	}

	cfg.Filesystem.MaxFiles = 1
	if _, err := CreateFileSystem(ctx, cfg, nil); err == nil {
		t.Fatal("Expected error for invalid geometry")
	}
}

func TestCreateSnapshotStore_Disabled(t *testing.T) {
	cfg := GetDefaultConfig().Snapshots
	cfg.Enabled = false

	store, err := CreateSnapshotStore(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if store != nil {
		t.Fatal("Expected nil store when snapshots are disabled")
	}
}

func TestCreateSnapshotStore_Memory(t *testing.T) {
	cfg := GetDefaultConfig().Snapshots
	cfg.Type = "memory"

	store, err := CreateSnapshotStore(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Failed to create memory snapshot store: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	_ = store.Close()
}

func TestCreateSnapshotStore_Badger(t *testing.T) {
	cfg := GetDefaultConfig().Snapshots
	cfg.Type = "badger"
	cfg.Badger["block_cache_mb"] = "4"

	store, err := CreateSnapshotStore(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Failed to create badger snapshot store: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}
	if err := store.Close(); err != nil {
		t.Errorf("Failed to close badger snapshot store: %v", err)
	}
}

func TestCreateSnapshotStore_BadgerInvalidOption(t *testing.T) {
	cfg := GetDefaultConfig().Snapshots
	cfg.Type = "badger"
	cfg.Badger["index_cache_mb"] = "lots"

	_, err := CreateSnapshotStore(context.Background(), &cfg)
	if err == nil {
		t.Fatal("Expected decode error for non-numeric cache size")
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Errorf("Expected decode error, got: %v", err)
	}
}

func TestCreateSnapshotStore_UnknownType(t *testing.T) {
	cfg := GetDefaultConfig().Snapshots
	cfg.Type = "postgres"

	_, err := CreateSnapshotStore(context.Background(), &cfg)
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
	if !strings.Contains(err.Error(), "unknown snapshot store type") {
		t.Errorf("Expected 'unknown snapshot store type' error, got: %v", err)
	}
}

func TestCreateAdapters(t *testing.T) {
	t.Run("HTTPOnly", func(t *testing.T) {
		adapters, err := CreateAdapters(GetDefaultConfig(), nil, nil)
		if err != nil {
			t.Fatalf("Failed to create adapters: %v", err)
		}
		if len(adapters) != 1 || adapters[0].Protocol() != "HTTP" {
			t.Fatalf("Expected a single HTTP adapter, got %d", len(adapters))
		}
		if adapters[0].Port() != 8080 {
			t.Errorf("Expected port 8080, got %d", adapters[0].Port())
		}
	})

	t.Run("FUSEAndHTTP", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Adapters.FUSE.Enabled = true

		adapters, err := CreateAdapters(cfg, nil, nil)
		if err != nil {
			t.Fatalf("Failed to create adapters: %v", err)
		}
		if len(adapters) != 2 {
			t.Fatalf("Expected 2 adapters, got %d", len(adapters))
		}
		if adapters[0].Protocol() != "FUSE" || adapters[0].Port() != 0 {
			t.Errorf("Expected FUSE adapter on port 0, got %s on %d", adapters[0].Protocol(), adapters[0].Port())
		}
	})

	t.Run("NoneEnabled", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Adapters.HTTP.Enabled = false

		if _, err := CreateAdapters(cfg, nil, nil); err == nil {
			t.Fatal("Expected error when no adapter is enabled")
		}
	})
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result := InitializeMetrics(GetDefaultConfig())

	if result.Server != nil {
		t.Error("Expected nil metrics server when metrics are disabled")
	}
	if result.FSMetrics == nil || result.HTTPMetrics == nil {
		t.Error("Expected no-op collectors when metrics are disabled")
	}
}
