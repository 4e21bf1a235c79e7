package handlers

import (
	"net/http"

	"github.com/peerdrive/peerdrive/pkg/daemon"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the daemon assembled and serving?
type HealthHandler struct {
	daemon *daemon.Daemon
}

// NewHealthHandler creates a new health handler.
//
// The daemon parameter may be nil, in which case the readiness probe
// reports unavailable.
func NewHealthHandler(d *daemon.Daemon) *HealthHandler {
	return &HealthHandler{daemon: d}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK whenever the HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(map[string]string{
		"service": "peerdrive",
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK with the open drive count once the daemon is assembled,
// 503 Service Unavailable before that.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.daemon == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse("daemon not initialized"))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]interface{}{
		"drives": len(h.daemon.List()),
	}))
}
