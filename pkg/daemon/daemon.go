// Package daemon assembles the drive session layer: one explicitly
// constructed Daemon owns the registry, mount resolver, watch hub, and the
// streaming and metadata adapters, and exposes the full session operation
// set to transports. No package-level state; every transport call goes
// through a Daemon value with a defined teardown.
package daemon

import (
	"context"
	"time"

	"github.com/peerdrive/peerdrive/internal/logger"
	"github.com/peerdrive/peerdrive/pkg/drive"
	"github.com/peerdrive/peerdrive/pkg/meta"
	"github.com/peerdrive/peerdrive/pkg/mount"
	"github.com/peerdrive/peerdrive/pkg/payload"
	"github.com/peerdrive/peerdrive/pkg/store"
	"github.com/peerdrive/peerdrive/pkg/watch"
)

// DriveInfo describes one open session on the control surface.
type DriveInfo struct {
	Handle uint64 `json:"handle"`
	Key    string `json:"key"`
}

// Daemon is the drive session layer.
type Daemon struct {
	registry *drive.Registry
	resolver *mount.Resolver
	hub      *watch.Hub
	payload  *payload.Service
	meta     *meta.Service
}

// New assembles a daemon over the given storage opener.
func New(opener store.Opener) *Daemon {
	hub := watch.NewHub()
	registry := drive.NewRegistry(opener, hub)
	resolver := mount.NewResolver(registry)
	return &Daemon{
		registry: registry,
		resolver: resolver,
		hub:      hub,
		payload:  payload.New(resolver),
		meta:     meta.New(resolver),
	}
}

// Create allocates a new drive and returns its session info.
func (d *Daemon) Create(ctx context.Context) (DriveInfo, error) {
	dr, err := d.registry.Create(ctx)
	if err != nil {
		return DriveInfo{}, err
	}
	return DriveInfo{Handle: dr.Handle(), Key: dr.Key().String()}, nil
}

// Get returns session info for an open handle.
func (d *Daemon) Get(handle uint64) (DriveInfo, error) {
	dr, err := d.registry.Get(handle)
	if err != nil {
		return DriveInfo{}, err
	}
	return DriveInfo{Handle: dr.Handle(), Key: dr.Key().String()}, nil
}

// List returns every open session.
func (d *Daemon) List() []DriveInfo {
	drives := d.registry.List()
	out := make([]DriveInfo, 0, len(drives))
	for _, dr := range drives {
		out = append(out, DriveInfo{Handle: dr.Handle(), Key: dr.Key().String()})
	}
	return out
}

// Close closes the drive session: watch teardown, then storage release.
func (d *Daemon) Close(handle uint64) error {
	return d.registry.Close(handle)
}

// Mount splices the drive identified by targetKey into handle's namespace
// at path.
func (d *Daemon) Mount(ctx context.Context, handle uint64, path, targetKey string) error {
	key, err := store.ParseKey(targetKey)
	if err != nil {
		return err
	}
	return d.resolver.Mount(ctx, handle, path, key)
}

// Unmount removes the mount point at path in handle's namespace.
func (d *Daemon) Unmount(handle uint64, path string) error {
	return d.resolver.Unmount(handle, path)
}

// Mounts lists the mount points in handle's namespace.
func (d *Daemon) Mounts(handle uint64) ([]mount.Info, error) {
	return d.resolver.Mounts(handle)
}

// Watch registers a change subscription on the literal drive identified by
// handle (not through mount resolution). The returned function
// unsubscribes and is safe to call more than once.
func (d *Daemon) Watch(handle uint64, path string, cb watch.Callback) (func(), error) {
	// Validate the handle up front so a watch on a closed drive fails
	// instead of registering a subscription that can never fire.
	if _, err := d.registry.Get(handle); err != nil {
		return nil, err
	}
	return d.hub.Watch(handle, path, cb)
}

// ReadRange opens a one-shot chunk sequence over the file's byte range.
func (d *Daemon) ReadRange(ctx context.Context, handle uint64, path string, offset, length int64) (*payload.Reader, error) {
	return d.payload.ReadRange(ctx, handle, path, offset, length)
}

// OpenWriter stages a chunked stream write.
func (d *Daemon) OpenWriter(ctx context.Context, handle uint64, path string, opts payload.WriteOptions) (*payload.Writer, error) {
	return d.payload.OpenWriter(ctx, handle, path, opts)
}

// ReadFile reads the whole file at path.
func (d *Daemon) ReadFile(ctx context.Context, handle uint64, path string) ([]byte, error) {
	return d.payload.ReadFile(ctx, handle, path)
}

// WriteFile writes data as the whole content of the file at path.
func (d *Daemon) WriteFile(ctx context.Context, handle uint64, path string, data []byte, opts payload.WriteOptions) error {
	return d.payload.WriteFile(ctx, handle, path, data, opts)
}

// Stat returns normalized entry metadata.
func (d *Daemon) Stat(ctx context.Context, handle uint64, path string) (*meta.Entry, error) {
	return d.meta.Stat(ctx, handle, path)
}

// Readdir lists child names, including the synthetic identity marker at a
// drive root.
func (d *Daemon) Readdir(ctx context.Context, handle uint64, path string) ([]string, error) {
	return d.meta.Readdir(ctx, handle, path)
}

// Symlink records a link entry.
func (d *Daemon) Symlink(ctx context.Context, handle uint64, targetPath, linkPath string) error {
	return d.meta.Symlink(ctx, handle, targetPath, linkPath)
}

// Shutdown tears the session layer down: every watch is deactivated and
// every drive closed. In-flight streams on closed drives fail with
// DriveClosed rather than hanging. The context bounds how long shutdown
// may take.
func (d *Daemon) Shutdown(ctx context.Context) error {
	start := time.Now()
	done := make(chan struct{})
	go func() {
		d.hub.Close()
		d.registry.CloseAll()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("daemon shut down", "elapsed", time.Since(start).String())
		return nil
	case <-ctx.Done():
		logger.Warn("daemon shutdown cut short", "elapsed", time.Since(start).String())
		return ctx.Err()
	}
}
