// Package api exposes the daemon's control surface over HTTP: drive
// lifecycle, mount table, metadata, file transfer, and watch streaming.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/peerdrive/peerdrive/internal/logger"
	"github.com/peerdrive/peerdrive/pkg/api/handlers"
	"github.com/peerdrive/peerdrive/pkg/daemon"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//
// File transfer and watch endpoints stream, so no blanket request timeout
// is installed; the HTTP server's read timeout still bounds slow clients.
func NewRouter(d *daemon.Daemon) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(d)
	driveHandler := handlers.NewDriveHandler(d)
	fileHandler := handlers.NewFileHandler(d)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Route("/v1/drives", func(r chi.Router) {
		r.Post("/", driveHandler.Create)
		r.Get("/", driveHandler.List)

		r.Route("/{handle}", func(r chi.Router) {
			r.Get("/", driveHandler.Get)
			r.Delete("/", driveHandler.Close)

			r.Put("/mounts", driveHandler.Mount)
			r.Get("/mounts", driveHandler.Mounts)
			r.Delete("/mounts", driveHandler.Unmount)

			r.Get("/watch", driveHandler.Watch)

			r.Get("/stat", fileHandler.Stat)
			r.Get("/dir", fileHandler.Readdir)
			r.Get("/file", fileHandler.Read)
			r.Put("/file", fileHandler.Write)
			r.Post("/symlink", fileHandler.Symlink)
		})
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the
// internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
