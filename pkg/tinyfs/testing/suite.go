package testing

import (
	"context"
	"testing"

	"github.com/marmos91/tinyfs/pkg/tinyfs"
)

// FileSystemTestSuite is a behavioral test suite for tinyfs.FileSystem.
// Every test derives its sizes from the filesystem's own geometry, so the
// suite can be run against several capacity settings.
//
// Usage:
//
//	func TestSmallGeometry(t *testing.T) {
//	    suite := &fstest.FileSystemTestSuite{
//	        NewFileSystem: func(t *testing.T) *tinyfs.FileSystem {
//	            fs, err := tinyfs.New(context.Background(), tinyfs.Config{Geometry: geom})
//	            require.NoError(t, err)
//	            return fs
//	        },
//	    }
//	    suite.Run(t)
//	}
type FileSystemTestSuite struct {
	// NewFileSystem creates a freshly mounted filesystem for each test.
	NewFileSystem func(t *testing.T) *tinyfs.FileSystem
}

// Run executes all tests in the suite.
func (suite *FileSystemTestSuite) Run(t *testing.T) {
	t.Run("Namespace", suite.RunNamespaceTests)
	t.Run("Remove", suite.RunRemoveTests)
	t.Run("IO", suite.RunIOTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
