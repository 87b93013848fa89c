package memory

import (
	"testing"

	"github.com/marmos91/tinyfs/pkg/snapshot"
	snaptest "github.com/marmos91/tinyfs/pkg/snapshot/testing"
)

func TestMemorySnapshotStore(t *testing.T) {
	suite := &snaptest.StoreTestSuite{
		NewStore: func(t *testing.T, maxSnapshots int) snapshot.Store {
			return NewMemorySnapshotStore(Config{MaxSnapshots: maxSnapshots})
		},
	}
	suite.Run(t)
}
