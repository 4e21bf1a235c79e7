package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/peerdrive/peerdrive/pkg/daemon"
	"github.com/peerdrive/peerdrive/pkg/payload"
)

// FileHandler exposes metadata and file transfer endpoints.
type FileHandler struct {
	daemon *daemon.Daemon
}

// NewFileHandler creates a file handler over the daemon.
func NewFileHandler(d *daemon.Daemon) *FileHandler {
	return &FileHandler{daemon: d}
}

// Stat handles GET /v1/drives/{handle}/stat?path=... .
func (h *FileHandler) Stat(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	entry, err := h.daemon.Stat(r.Context(), handle, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(entry))
}

// Readdir handles GET /v1/drives/{handle}/dir?path=... .
func (h *FileHandler) Readdir(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	names, err := h.daemon.Readdir(r.Context(), handle, r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(names))
}

// Read handles GET /v1/drives/{handle}/file?path=&offset=&length= - stream
// the requested byte range as the raw response body.
//
// offset defaults to 0 and length to the rest of the file. Ranges reaching
// past end-of-file are truncated, matching the read semantics of the
// payload layer.
func (h *FileHandler) Read(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	offset, err := queryInt64(q.Get("offset"), 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid offset"))
		return
	}
	length, err := queryInt64(q.Get("length"), -1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid length"))
		return
	}

	reader, err := h.daemon.ReadRange(r.Context(), handle, q.Get("path"), offset, length)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	for {
		chunk, err := reader.Next(r.Context())
		if err == io.EOF {
			return
		}
		if err != nil {
			// Headers are already out; all we can do is cut the stream.
			return
		}
		if _, err := w.Write(chunk); err != nil {
			return
		}
	}
}

// Write handles PUT /v1/drives/{handle}/file?path=&uid=&gid=&mode= - stream
// the request body into a staged write and commit it at EOF. Any failure
// mid-stream aborts the write and leaves the previous content intact.
func (h *FileHandler) Write(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts, err := writeOptions(q.Get("uid"), q.Get("gid"), q.Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	writer, err := h.daemon.OpenWriter(r.Context(), handle, q.Get("path"), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	buf := make([]byte, payload.ChunkSize)
	for {
		n, rerr := r.Body.Read(buf)
		if n > 0 {
			if err := writer.Write(r.Context(), buf[:n]); err != nil {
				writer.Abort()
				writeError(w, err)
				return
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			writer.Abort()
			writeJSON(w, http.StatusBadRequest, errorResponse("request body read failed"))
			return
		}
	}
	if err := writer.Commit(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, okResponse(nil))
}

type symlinkRequest struct {
	Target string `json:"target"`
	Link   string `json:"link"`
}

// Symlink handles POST /v1/drives/{handle}/symlink.
func (h *FileHandler) Symlink(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	var req symlinkRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := h.daemon.Symlink(r.Context(), handle, req.Target, req.Link); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, okResponse(nil))
}

func queryInt64(raw string, def int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func writeOptions(uid, gid, mode string) (payload.WriteOptions, error) {
	var opts payload.WriteOptions
	if uid != "" {
		v, err := strconv.ParseUint(uid, 10, 32)
		if err != nil {
			return opts, err
		}
		opts.UID = uint32(v)
	}
	if gid != "" {
		v, err := strconv.ParseUint(gid, 10, 32)
		if err != nil {
			return opts, err
		}
		opts.GID = uint32(v)
	}
	if mode != "" {
		v, err := strconv.ParseUint(mode, 8, 32)
		if err != nil {
			return opts, err
		}
		opts.Mode = uint32(v)
	}
	return opts, nil
}
