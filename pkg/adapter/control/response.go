package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/tinyfs/internal/logger"
	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/snapshot"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// attrResponse renders a tinyfs.Attr.
type attrResponse struct {
	Index    block.Index `json:"index"`
	Type     string      `json:"type"`
	Mode     string      `json:"mode"`
	Size     int         `json:"size"`
	Children int         `json:"children"`
}

func newAttrResponse(attr tinyfs.Attr) attrResponse {
	typ := "file"
	if attr.IsDir() {
		typ = "dir"
	}
	return attrResponse{
		Index:    attr.Index,
		Type:     typ,
		Mode:     attr.Mode.FileMode().String(),
		Size:     attr.Size,
		Children: attr.Children,
	}
}

type entriesResponse struct {
	Entries []block.DirEntry `json:"entries"`
}

type snapshotsResponse struct {
	Snapshots []snapshot.Info `json:"snapshots"`
}

type writeResponse struct {
	Written int `json:"written"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("control: failed to encode response: %v", err)
	}
}

func errResp(w http.ResponseWriter, message, code string, status int) {
	writeJSON(w, errorResponse{Error: message, Code: code}, status)
}

// writeError maps err to an HTTP status and writes it.
func writeError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusInsufficientStorage {
		logger.Error("control: %v", err)
	}
	errResp(w, err.Error(), code, status)
}

// statusOf maps domain and store errors to HTTP statuses.
func statusOf(err error) (int, string) {
	if code, ok := tinyfs.CodeOf(err); ok {
		switch code {
		case tinyfs.ErrNotFound, tinyfs.ErrInvalidHandle:
			return http.StatusNotFound, code.String()
		case tinyfs.ErrAlreadyExists, tinyfs.ErrNotEmpty:
			return http.StatusConflict, code.String()
		case tinyfs.ErrInvalidArgument, tinyfs.ErrNotDirectory, tinyfs.ErrIsDirectory:
			return http.StatusBadRequest, code.String()
		case tinyfs.ErrNoSpace, tinyfs.ErrDirectoryFull:
			return http.StatusInsufficientStorage, code.String()
		case tinyfs.ErrFileTooLarge:
			return http.StatusRequestEntityTooLarge, code.String()
		}
	}

	switch {
	case errors.Is(err, snapshot.ErrSnapshotNotFound):
		return http.StatusNotFound, "SnapshotNotFound"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Unavailable"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}
