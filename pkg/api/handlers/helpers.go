package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/peerdrive/peerdrive/pkg/store"
)

// Response is the standard envelope for JSON endpoints.
//
// Status is "ok" or "error"; Data carries the payload on success and Error
// the message on failure.
type Response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func okResponse(data interface{}) Response {
	return Response{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func errorResponse(errMsg string) Response {
	return Response{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error:     errMsg,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeError maps a domain error to an HTTP status and writes the envelope.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse(err.Error()))
}

// statusFor maps the storage error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch store.CodeOf(err) {
	case store.ErrNotFound, store.ErrNotExist, store.ErrStaleMount:
		return http.StatusNotFound
	case store.ErrInvalidPath, store.ErrIsDirectory:
		return http.StatusBadRequest
	case store.ErrAlreadyClosed, store.ErrCycleDetected, store.ErrWriteAborted, store.ErrDriveClosed:
		return http.StatusConflict
	case store.ErrMountTooDeep:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns false and writes a 400 response if decoding fails.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	return true
}

// handleParam parses the {handle} URL parameter.
// Returns false and writes a 400 response if the parameter is not a valid
// handle.
func handleParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "handle")
	handle, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || handle == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid drive handle"))
		return 0, false
	}
	return handle, true
}
