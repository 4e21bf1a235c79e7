// Package metrics exposes Prometheus instrumentation for the drive session
// layer. Collectors live on a dedicated registry so tests can scrape or
// reset without touching the global default.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// DrivesOpen tracks currently open drive sessions.
	DrivesOpen = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Name: "peerdrive_drives_open",
		Help: "Number of currently open drive sessions",
	})

	// HandlesIssued counts session handles ever allocated.
	HandlesIssued = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "peerdrive_handles_issued_total",
		Help: "Total number of drive session handles issued",
	})

	// WatchesActive tracks currently active watch subscriptions.
	WatchesActive = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Name: "peerdrive_watches_active",
		Help: "Number of active watch subscriptions",
	})

	// EventsDelivered counts watch notifications delivered to callbacks.
	EventsDelivered = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "peerdrive_watch_events_delivered_total",
		Help: "Total watch notifications delivered to subscribers",
	})

	// BytesRead counts payload bytes served through the streaming adapter.
	BytesRead = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "peerdrive_payload_bytes_read_total",
		Help: "Total payload bytes read through the streaming adapter",
	})

	// BytesWritten counts payload bytes committed through the streaming
	// adapter.
	BytesWritten = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "peerdrive_payload_bytes_written_total",
		Help: "Total payload bytes committed through the streaming adapter",
	})

	// MountsActive tracks mount points across all drive trees.
	MountsActive = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Name: "peerdrive_mounts_active",
		Help: "Number of registered mount points across all drives",
	})
)

// Registry returns the metrics registry, for custom collectors and tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
