// Package drive owns the lifecycle of open drive sessions. The Registry is
// the only owner of Drive values; the mount resolver and watch hub hold
// references by handle and must re-validate through Get.
package drive

import (
	"context"
	"sync"

	"github.com/peerdrive/peerdrive/internal/logger"
	"github.com/peerdrive/peerdrive/pkg/metrics"
	"github.com/peerdrive/peerdrive/pkg/store"
)

// EventSink consumes the change-event stream of each open drive. The watch
// hub implements it; a nil sink disables change notification.
type EventSink interface {
	// AttachDrive starts consuming events for a newly opened drive.
	AttachDrive(handle uint64, events <-chan store.Event)

	// DropDrive deactivates and removes every subscription on the drive
	// and stops consuming its events. No callback fires after it returns.
	DropDrive(handle uint64)
}

// Drive is one open session over a storage-primitive instance.
type Drive struct {
	handle uint64
	key    store.Key
	st     store.Store
}

// Handle returns the session handle. Handles are positive, process-lifetime
// unique, and never reused.
func (d *Drive) Handle() uint64 { return d.handle }

// Key returns the drive's immutable identity key.
func (d *Drive) Key() store.Key { return d.key }

// Store returns the underlying storage primitive instance.
func (d *Drive) Store() store.Store { return d.st }

// Registry tracks every drive session by handle and identity key.
//
// Handle allocation is monotonic: every handle issued is strictly greater
// than all previously issued handles, even across close/create cycles.
type Registry struct {
	mu         sync.RWMutex
	opener     store.Opener
	sink       EventSink
	nextHandle uint64
	open       map[uint64]*Drive
	byKey      map[store.Key]*Drive
	closed     map[uint64]struct{}
}

// NewRegistry creates an empty registry over the given storage opener.
// sink may be nil.
func NewRegistry(opener store.Opener, sink EventSink) *Registry {
	return &Registry{
		opener: opener,
		sink:   sink,
		open:   make(map[uint64]*Drive),
		byKey:  make(map[store.Key]*Drive),
		closed: make(map[uint64]struct{}),
	}
}

// Create allocates a new drive with a fresh identity key and returns it in
// open state under the next unused handle.
func (r *Registry) Create(ctx context.Context) (*Drive, error) {
	st, err := r.opener.Create(ctx)
	if err != nil {
		return nil, err
	}
	d := r.register(st)
	logger.Info("drive created", "handle", d.handle, "key", d.key.String())
	return d, nil
}

// OpenByKey returns the open drive with the given identity key, opening a
// new session (with a new handle) if none exists. Used by the mount
// resolver to materialize mount targets lazily.
func (r *Registry) OpenByKey(ctx context.Context, key store.Key) (*Drive, error) {
	r.mu.RLock()
	d, ok := r.byKey[key]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}

	st, err := r.opener.Open(ctx, key)
	if err != nil {
		return nil, err
	}

	// A concurrent OpenByKey may have won; keep the registered session and
	// release the extra instance. The re-check and the insert share one
	// critical section so at most one session per key can register.
	r.mu.Lock()
	if existing, ok := r.byKey[key]; ok {
		r.mu.Unlock()
		st.Close()
		return existing, nil
	}
	d = r.insertLocked(st)
	r.mu.Unlock()

	r.attach(d)
	logger.Debug("drive reopened by key", "handle", d.handle, "key", key.String())
	return d, nil
}

func (r *Registry) register(st store.Store) *Drive {
	r.mu.Lock()
	d := r.insertLocked(st)
	r.mu.Unlock()

	r.attach(d)
	return d
}

// insertLocked issues the next handle and records the session. Caller holds
// r.mu.
func (r *Registry) insertLocked(st store.Store) *Drive {
	r.nextHandle++
	d := &Drive{handle: r.nextHandle, key: st.Key(), st: st}
	r.open[d.handle] = d
	r.byKey[d.key] = d
	return d
}

func (r *Registry) attach(d *Drive) {
	if r.sink != nil {
		r.sink.AttachDrive(d.handle, d.st.Events())
	}

	metrics.HandlesIssued.Inc()
	metrics.DrivesOpen.Inc()
}

// Get returns the open drive for handle. Fails with NotFound if the handle
// is unknown or the drive has been closed.
func (r *Registry) Get(handle uint64) (*Drive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.open[handle]; ok {
		return d, nil
	}
	return nil, store.NewError(store.ErrNotFound, "", "unknown drive handle %d", handle)
}

// List returns every open drive, for the control surface.
func (r *Registry) List() []*Drive {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Drive, 0, len(r.open))
	for _, d := range r.open {
		out = append(out, d)
	}
	return out
}

// Close transitions the drive to closed state, tears down every watch
// subscription on it, and releases the storage primitive's resources.
// Fails with AlreadyClosed on a second close of the same handle and with
// NotFound for a handle never issued.
func (r *Registry) Close(handle uint64) error {
	r.mu.Lock()
	d, ok := r.open[handle]
	if !ok {
		_, wasClosed := r.closed[handle]
		r.mu.Unlock()
		if wasClosed {
			return store.NewError(store.ErrAlreadyClosed, "", "drive handle %d already closed", handle)
		}
		return store.NewError(store.ErrNotFound, "", "unknown drive handle %d", handle)
	}
	delete(r.open, handle)
	if r.byKey[d.key] == d {
		delete(r.byKey, d.key)
	}
	r.closed[handle] = struct{}{}
	r.mu.Unlock()

	// Watch teardown must complete before the store is released so that no
	// callback fires after Close returns.
	if r.sink != nil {
		r.sink.DropDrive(handle)
	}
	err := d.st.Close()

	metrics.DrivesOpen.Dec()
	logger.Info("drive closed", "handle", handle, "key", d.key.String())
	return err
}

// CloseAll closes every open drive. Used on daemon shutdown.
func (r *Registry) CloseAll() {
	for _, d := range r.List() {
		if err := r.Close(d.Handle()); err != nil && !store.IsCode(err, store.ErrAlreadyClosed) {
			logger.Warn("closing drive during shutdown", "handle", d.Handle(), "error", err)
		}
	}
}
