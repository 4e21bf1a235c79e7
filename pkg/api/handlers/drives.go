package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/peerdrive/peerdrive/pkg/daemon"
	"github.com/peerdrive/peerdrive/pkg/watch"
)

// DriveHandler exposes drive lifecycle and mount table endpoints.
type DriveHandler struct {
	daemon *daemon.Daemon
}

// NewDriveHandler creates a drive handler over the daemon.
func NewDriveHandler(d *daemon.Daemon) *DriveHandler {
	return &DriveHandler{daemon: d}
}

// Create handles POST /v1/drives - allocate a new drive.
func (h *DriveHandler) Create(w http.ResponseWriter, r *http.Request) {
	info, err := h.daemon.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, okResponse(info))
}

// List handles GET /v1/drives - list open drives.
func (h *DriveHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(h.daemon.List()))
}

// Get handles GET /v1/drives/{handle}.
func (h *DriveHandler) Get(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	info, err := h.daemon.Get(handle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(info))
}

// Close handles DELETE /v1/drives/{handle} - close the drive session.
func (h *DriveHandler) Close(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	if err := h.daemon.Close(handle); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(nil))
}

type mountRequest struct {
	Path      string `json:"path"`
	TargetKey string `json:"target_key"`
}

// Mount handles PUT /v1/drives/{handle}/mounts - splice a drive into the
// namespace.
func (h *DriveHandler) Mount(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	var req mountRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := h.daemon.Mount(r.Context(), handle, req.Path, req.TargetKey); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, okResponse(nil))
}

// Unmount handles DELETE /v1/drives/{handle}/mounts?path=... .
func (h *DriveHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	if err := h.daemon.Unmount(handle, r.URL.Query().Get("path")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(nil))
}

// Mounts handles GET /v1/drives/{handle}/mounts - list mount points.
func (h *DriveHandler) Mounts(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	mounts, err := h.daemon.Mounts(handle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(mounts))
}

// Watch handles GET /v1/drives/{handle}/watch?path=... - stream change
// events as newline-delimited JSON until the client disconnects.
//
// Events that arrive faster than the client drains them are dropped; the
// stream is a change signal, not a journal.
func (h *DriveHandler) Watch(w http.ResponseWriter, r *http.Request) {
	handle, ok := handleParam(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse("streaming unsupported"))
		return
	}

	events := make(chan watch.Event, 64)
	unsub, err := h.daemon.Watch(handle, r.URL.Query().Get("path"), func(ev watch.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	defer unsub()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := enc.Encode(ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
