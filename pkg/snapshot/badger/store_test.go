package badger

import (
	"context"
	"testing"

	"github.com/marmos91/tinyfs/pkg/snapshot"
	snaptest "github.com/marmos91/tinyfs/pkg/snapshot/testing"
	"github.com/stretchr/testify/require"
)

func TestBadgerSnapshotStore(t *testing.T) {
	suite := &snaptest.StoreTestSuite{
		NewStore: func(t *testing.T, maxSnapshots int) snapshot.Store {
			store, err := NewBadgerSnapshotStore(context.Background(), Config{MaxSnapshots: maxSnapshots})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}
