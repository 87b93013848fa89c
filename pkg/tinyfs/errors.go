package tinyfs

import (
	"errors"

	"github.com/marmos91/tinyfs/pkg/block"
)

// FSError represents a domain error from filesystem operations.
//
// These are definitive, synchronous failures of a single call (directory full,
// name not found, ...). Adapters translate the Code to their own convention
// (errno values for FUSE, HTTP status codes for the control API).
type FSError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Name is the entry name related to the error (if applicable)
	Name string
}

// Error implements the error interface.
func (e *FSError) Error() string {
	if e.Name != "" {
		return e.Message + ": " + e.Name
	}
	return e.Message
}

// Is matches another *FSError with the same code, so callers can write
// errors.Is(err, &tinyfs.FSError{Code: tinyfs.ErrNotFound}).
func (e *FSError) Is(target error) bool {
	t, ok := target.(*FSError)
	return ok && t.Code == e.Code
}

// ErrorCode represents the category of a filesystem error.
type ErrorCode int

const (
	// ErrNoSpace indicates the block arena is exhausted
	ErrNoSpace ErrorCode = iota

	// ErrDirectoryFull indicates the parent already holds MaxSubdirFiles entries
	ErrDirectoryFull

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: unsupported mode, empty name, negative offset
	ErrInvalidArgument

	// ErrNotDirectory indicates operation expected a directory but got a file
	ErrNotDirectory

	// ErrNotFound indicates the name is absent from the directory
	ErrNotFound

	// ErrAlreadyExists indicates the directory already holds the (truncated) name
	ErrAlreadyExists

	// ErrNotEmpty indicates a directory still has children and cannot be removed
	ErrNotEmpty

	// ErrIsDirectory indicates operation expected a file but got a directory
	ErrIsDirectory

	// ErrFileTooLarge indicates a write or truncate past the file capacity
	ErrFileTooLarge

	// ErrInvalidHandle indicates the block index is reserved, out of range or free
	ErrInvalidHandle
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNoSpace:
		return "NoSpace"
	case ErrDirectoryFull:
		return "DirectoryFull"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrNotDirectory:
		return "NotADirectory"
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrNotEmpty:
		return "NotEmpty"
	case ErrIsDirectory:
		return "IsADirectory"
	case ErrFileTooLarge:
		return "FileTooLarge"
	case ErrInvalidHandle:
		return "InvalidHandle"
	default:
		return "Unknown"
	}
}

// CodeOf extracts the ErrorCode carried by err.
func CodeOf(err error) (ErrorCode, bool) {
	var fsErr *FSError
	if errors.As(err, &fsErr) {
		return fsErr.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func newError(code ErrorCode, message, name string) *FSError {
	return &FSError{Code: code, Message: message, Name: name}
}

// fromBlockError maps arena sentinels to domain errors.
func fromBlockError(err error, name string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, block.ErrArenaFull):
		return newError(ErrNoSpace, "no free blocks left", name)
	case errors.Is(err, block.ErrInvalidIndex):
		return newError(ErrInvalidHandle, err.Error(), name)
	case errors.Is(err, block.ErrUnsupportedMode):
		return newError(ErrInvalidArgument, err.Error(), name)
	case errors.Is(err, block.ErrInvalidImage):
		return newError(ErrInvalidArgument, err.Error(), name)
	default:
		return err
	}
}

// codeLabel renders err for metrics labels.
func codeLabel(err error) string {
	if err == nil {
		return ""
	}
	if code, ok := CodeOf(err); ok {
		return code.String()
	}
	return "Internal"
}
