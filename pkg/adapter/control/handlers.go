package control

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/marmos91/tinyfs/pkg/block"
	"github.com/marmos91/tinyfs/pkg/tinyfs"
)

// ============================================================================
// Request parsing
// ============================================================================

func badRequest(format string, args ...any) error {
	return &tinyfs.FSError{Code: tinyfs.ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func parseIndex(ps httprouter.Params) (block.Index, error) {
	raw := ps.ByName("index")
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return block.NilIndex, badRequest("invalid block index %q", raw)
	}
	return block.Index(n), nil
}

// queryInt reads a non-negative integer query parameter, or def when absent.
func queryInt(r *http.Request, key string, def int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s %q", key, raw)
	}
	return n, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

// ============================================================================
// Filesystem
// ============================================================================

func (a *ControlAdapter) statFS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	st, err := a.fs.StatFS(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, st, http.StatusOK)
}

// reset and restoreSnapshot invalidate every index handed out so far, including
// those cached by a FUSE mount.
func (a *ControlAdapter) reset(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := a.fs.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Namespace
// ============================================================================

func (a *ControlAdapter) stat(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	idx, err := parseIndex(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	attr, err := a.fs.Stat(r.Context(), idx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, newAttrResponse(attr), http.StatusOK)
}

func (a *ControlAdapter) listChildren(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	idx, err := parseIndex(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := a.fs.ListChildren(r.Context(), idx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, entriesResponse{Entries: entries}, http.StatusOK)
}

func (a *ControlAdapter) lookup(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	idx, err := parseIndex(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	name := ps.ByName("name")
	child, err := a.fs.Lookup(r.Context(), idx, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, block.DirEntry{Name: a.fs.Geometry().TruncateName(name), Target: child}, http.StatusOK)
}

// createRequest is the body of POST /v1/blocks/:index/children.
type createRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Mode uint32 `json:"mode"`
}

func (req createRequest) blockMode() block.Mode {
	perm := block.Mode(req.Mode).Perm()
	switch req.Type {
	case "dir":
		if perm == 0 {
			perm = 0755
		}
		return block.ModeDir | perm
	case "file":
		if perm == 0 {
			perm = 0644
		}
		return block.ModeRegular | perm
	default:
		// Rejected by Create as an unsupported mode
		return perm
	}
}

func (a *ControlAdapter) create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	idx, err := parseIndex(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	child, err := a.fs.Create(r.Context(), idx, req.Name, req.blockMode())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, block.DirEntry{Name: a.fs.Geometry().TruncateName(req.Name), Target: child}, http.StatusCreated)
}

func (a *ControlAdapter) remove(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	idx, err := parseIndex(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	name := ps.ByName("name")

	if r.URL.Query().Get("dir") == "true" {
		err = a.fs.Rmdir(r.Context(), idx, name)
	} else {
		err = a.fs.Unlink(r.Context(), idx, name)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// File I/O
// ============================================================================

func (a *ControlAdapter) read(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	idx, err := parseIndex(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	length, err := queryInt(r, "length", int64(a.fs.Geometry().FileBufferSize))
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := a.fs.Read(r.Context(), idx, offset, int(length))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *ControlAdapter) write(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	idx, err := parseIndex(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	// One byte past capacity is enough for Write to reject oversized bodies
	limit := int64(a.fs.Geometry().FileBufferSize) + 1
	data, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		writeError(w, badRequest("failed to read body: %v", err))
		return
	}

	n, err := a.fs.Write(r.Context(), idx, offset, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, writeResponse{Written: n}, http.StatusOK)
}

// truncateRequest is the body of PUT /v1/blocks/:index/size.
type truncateRequest struct {
	Size int64 `json:"size"`
}

func (a *ControlAdapter) truncate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	idx, err := parseIndex(ps)
	if err != nil {
		writeError(w, err)
		return
	}
	var req truncateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := a.fs.Truncate(r.Context(), idx, req.Size); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Snapshots
// ============================================================================

// saveSnapshotRequest is the body of POST /v1/snapshots.
type saveSnapshotRequest struct {
	Label string `json:"label"`
}

func (a *ControlAdapter) saveSnapshot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req saveSnapshotRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	img, err := a.fs.Image(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	info, err := a.snapshots.Save(r.Context(), req.Label, img)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, info, http.StatusCreated)
}

func (a *ControlAdapter) listSnapshots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	infos, err := a.snapshots.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snapshotsResponse{Snapshots: infos}, http.StatusOK)
}

func (a *ControlAdapter) restoreSnapshot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	img, err := a.snapshots.Load(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.fs.LoadImage(r.Context(), img); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *ControlAdapter) deleteSnapshot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := a.snapshots.Delete(r.Context(), ps.ByName("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
