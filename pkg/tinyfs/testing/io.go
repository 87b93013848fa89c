package testing

import (
	"bytes"
	"math"
	"testing"

	"github.com/marmos91/tinyfs/pkg/tinyfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunIOTests executes Read, Write and Truncate tests.
func (suite *FileSystemTestSuite) RunIOTests(t *testing.T) {
	t.Run("Write_ThenRead", suite.testWriteThenRead)
	t.Run("Write_TruncatesAtEnd", suite.testWriteTruncatesAtEnd)
	t.Run("Write_ZeroFillsGap", suite.testWriteZeroFillsGap)
	t.Run("Write_ExactCapacity", suite.testWriteExactCapacity)
	t.Run("Write_TooLarge", suite.testWriteTooLarge)
	t.Run("Write_HugeOffset", suite.testWriteHugeOffset)
	t.Run("Read_PastEnd", suite.testReadPastEnd)
	t.Run("Read_Short", suite.testReadShort)
	t.Run("Read_HugeLength", suite.testReadHugeLength)
	t.Run("Read_ReturnsCopy", suite.testReadReturnsCopy)
	t.Run("IO_OnDirectory", suite.testIOOnDirectory)
	t.Run("IO_NegativeArguments", suite.testIONegativeArguments)
	t.Run("Truncate_ShrinkAndGrow", suite.testTruncateShrinkAndGrow)
	t.Run("Truncate_TooLarge", suite.testTruncateTooLarge)
	t.Run("Truncate_HugeSize", suite.testTruncateHugeSize)
}

// requireCapacity skips tests whose payloads do not fit the geometry.
func requireCapacity(t *testing.T, fs *tinyfs.FileSystem, n int) {
	t.Helper()
	if fs.Geometry().FileBufferSize < n {
		t.Skipf("needs a file capacity of %d bytes", n)
	}
}

func (suite *FileSystemTestSuite) testWriteThenRead(t *testing.T) {
	fs := suite.NewFileSystem(t)
	requireCapacity(t, fs, 5)
	file := mustCreateFile(t, fs, fs.Root(), "f")

	mustWrite(t, fs, file, 0, []byte("hello"))
	assert.Equal(t, []byte("hello"), mustRead(t, fs, file, 0, 5))
	assert.Equal(t, 5, mustStat(t, fs, file).Size)
}

func (suite *FileSystemTestSuite) testWriteTruncatesAtEnd(t *testing.T) {
	fs := suite.NewFileSystem(t)
	requireCapacity(t, fs, 5)
	file := mustCreateFile(t, fs, fs.Root(), "f")

	mustWrite(t, fs, file, 0, []byte("hello"))
	mustWrite(t, fs, file, 0, []byte("ab"))

	assert.Equal(t, []byte("ab"), mustRead(t, fs, file, 0, 5))
	assert.Equal(t, 2, mustStat(t, fs, file).Size)
}

func (suite *FileSystemTestSuite) testWriteZeroFillsGap(t *testing.T) {
	fs := suite.NewFileSystem(t)
	requireCapacity(t, fs, 5)
	file := mustCreateFile(t, fs, fs.Root(), "f")

	mustWrite(t, fs, file, 0, []byte("abcde"))
	mustWrite(t, fs, file, 0, []byte("ab"))
	mustWrite(t, fs, file, 4, []byte("z"))

	assert.Equal(t, []byte("ab\x00\x00z"), mustRead(t, fs, file, 0, 5))
}

func (suite *FileSystemTestSuite) testWriteExactCapacity(t *testing.T) {
	fs := suite.NewFileSystem(t)
	capacity := fs.Geometry().FileBufferSize
	file := mustCreateFile(t, fs, fs.Root(), "f")

	data := bytes.Repeat([]byte{'x'}, capacity)
	mustWrite(t, fs, file, 0, data)
	assert.Equal(t, data, mustRead(t, fs, file, 0, capacity+10))
}

func (suite *FileSystemTestSuite) testWriteTooLarge(t *testing.T) {
	fs := suite.NewFileSystem(t)
	capacity := fs.Geometry().FileBufferSize
	file := mustCreateFile(t, fs, fs.Root(), "f")
	mustWrite(t, fs, file, 0, []byte("k"))

	n, err := fs.Write(testContext(), file, 0, bytes.Repeat([]byte{'x'}, capacity+1))
	AssertCode(t, tinyfs.ErrFileTooLarge, err)
	assert.Zero(t, n)

	_, err = fs.Write(testContext(), file, int64(capacity), []byte("y"))
	AssertCode(t, tinyfs.ErrFileTooLarge, err)

	assert.Equal(t, []byte("k"), mustRead(t, fs, file, 0, capacity), "rejected writes change nothing")
}

func (suite *FileSystemTestSuite) testWriteHugeOffset(t *testing.T) {
	fs := suite.NewFileSystem(t)
	requireCapacity(t, fs, 5)
	file := mustCreateFile(t, fs, fs.Root(), "f")
	mustWrite(t, fs, file, 0, []byte("hello"))

	for _, offset := range []int64{math.MaxInt64 - 2, math.MaxInt64} {
		n, err := fs.Write(testContext(), file, offset, []byte("hello"))
		AssertCode(t, tinyfs.ErrFileTooLarge, err)
		assert.Zero(t, n)
	}

	assert.Equal(t, []byte("hello"), mustRead(t, fs, file, 0, 5))
}

func (suite *FileSystemTestSuite) testReadHugeLength(t *testing.T) {
	fs := suite.NewFileSystem(t)
	requireCapacity(t, fs, 5)
	file := mustCreateFile(t, fs, fs.Root(), "f")
	mustWrite(t, fs, file, 0, []byte("hello"))

	assert.Equal(t, []byte("ello"), mustRead(t, fs, file, 1, math.MaxInt))
	assert.Equal(t, []byte("hello"), mustRead(t, fs, file, 0, math.MaxInt))
	assert.Empty(t, mustRead(t, fs, file, math.MaxInt64, math.MaxInt))
}

func (suite *FileSystemTestSuite) testReadPastEnd(t *testing.T) {
	fs := suite.NewFileSystem(t)
	requireCapacity(t, fs, 2)
	file := mustCreateFile(t, fs, fs.Root(), "f")

	assert.Empty(t, mustRead(t, fs, file, 0, 10), "new files are empty")

	mustWrite(t, fs, file, 0, []byte("ab"))
	assert.Empty(t, mustRead(t, fs, file, 2, 10))
	assert.Empty(t, mustRead(t, fs, file, 100, 10))
}

func (suite *FileSystemTestSuite) testReadShort(t *testing.T) {
	fs := suite.NewFileSystem(t)
	requireCapacity(t, fs, 5)
	file := mustCreateFile(t, fs, fs.Root(), "f")
	mustWrite(t, fs, file, 0, []byte("hello"))

	assert.Equal(t, []byte("llo"), mustRead(t, fs, file, 2, 10))
	assert.Equal(t, []byte("el"), mustRead(t, fs, file, 1, 2))
	assert.Empty(t, mustRead(t, fs, file, 1, 0))
}

func (suite *FileSystemTestSuite) testReadReturnsCopy(t *testing.T) {
	fs := suite.NewFileSystem(t)
	requireCapacity(t, fs, 2)
	file := mustCreateFile(t, fs, fs.Root(), "f")
	mustWrite(t, fs, file, 0, []byte("ab"))

	data := mustRead(t, fs, file, 0, 2)
	data[0] = 'X'

	assert.Equal(t, []byte("ab"), mustRead(t, fs, file, 0, 2))
}

func (suite *FileSystemTestSuite) testIOOnDirectory(t *testing.T) {
	fs := suite.NewFileSystem(t)

	_, err := fs.Read(testContext(), fs.Root(), 0, 1)
	AssertCode(t, tinyfs.ErrIsDirectory, err)

	_, err = fs.Write(testContext(), fs.Root(), 0, []byte("x"))
	AssertCode(t, tinyfs.ErrIsDirectory, err)

	err = fs.Truncate(testContext(), fs.Root(), 0)
	AssertCode(t, tinyfs.ErrIsDirectory, err)
}

func (suite *FileSystemTestSuite) testIONegativeArguments(t *testing.T) {
	fs := suite.NewFileSystem(t)
	file := mustCreateFile(t, fs, fs.Root(), "f")

	_, err := fs.Read(testContext(), file, -1, 1)
	AssertCode(t, tinyfs.ErrInvalidArgument, err)

	_, err = fs.Read(testContext(), file, 0, -1)
	AssertCode(t, tinyfs.ErrInvalidArgument, err)

	_, err = fs.Write(testContext(), file, -1, []byte("x"))
	AssertCode(t, tinyfs.ErrInvalidArgument, err)

	err = fs.Truncate(testContext(), file, -1)
	AssertCode(t, tinyfs.ErrInvalidArgument, err)
}

func (suite *FileSystemTestSuite) testTruncateShrinkAndGrow(t *testing.T) {
	fs := suite.NewFileSystem(t)
	requireCapacity(t, fs, 5)
	file := mustCreateFile(t, fs, fs.Root(), "f")
	mustWrite(t, fs, file, 0, []byte("hello"))

	require.NoError(t, fs.Truncate(testContext(), file, 2))
	assert.Equal(t, []byte("he"), mustRead(t, fs, file, 0, 5))

	require.NoError(t, fs.Truncate(testContext(), file, 4))
	assert.Equal(t, []byte("he\x00\x00"), mustRead(t, fs, file, 0, 5))
	assert.Equal(t, 4, mustStat(t, fs, file).Size)
}

func (suite *FileSystemTestSuite) testTruncateTooLarge(t *testing.T) {
	fs := suite.NewFileSystem(t)
	capacity := fs.Geometry().FileBufferSize
	file := mustCreateFile(t, fs, fs.Root(), "f")

	err := fs.Truncate(testContext(), file, int64(capacity+1))
	AssertCode(t, tinyfs.ErrFileTooLarge, err)

	require.NoError(t, fs.Truncate(testContext(), file, int64(capacity)))
	assert.Equal(t, capacity, mustStat(t, fs, file).Size)
}

func (suite *FileSystemTestSuite) testTruncateHugeSize(t *testing.T) {
	fs := suite.NewFileSystem(t)
	requireCapacity(t, fs, 2)
	file := mustCreateFile(t, fs, fs.Root(), "f")
	mustWrite(t, fs, file, 0, []byte("ab"))

	AssertCode(t, tinyfs.ErrFileTooLarge, fs.Truncate(testContext(), file, math.MaxInt64))
	assert.Equal(t, []byte("ab"), mustRead(t, fs, file, 0, 2))
}
