// Package watch fans storage-primitive change events out to per-path
// subscriptions.
//
// One pump goroutine per open drive consumes the drive's event channel and
// dispatches sequentially, which gives each subscription strictly ordered
// delivery; ordering across distinct subscriptions is unspecified. Delivery
// is at-least-once: subscribers must tolerate duplicate notifications for
// one logical change.
//
// Subscriptions are resolved against the literal drive identified by the
// handle, not through mount resolution: watching a mounted subtree means
// watching the target drive directly, matching the storage primitive's own
// notification scope.
package watch

import (
	"sync"

	"github.com/peerdrive/peerdrive/internal/logger"
	"github.com/peerdrive/peerdrive/pkg/metrics"
	"github.com/peerdrive/peerdrive/pkg/mount"
	"github.com/peerdrive/peerdrive/pkg/store"
)

// Event is one change notification delivered to a subscriber.
type Event struct {
	Path string
}

// Callback is an opaque notification sink. It runs on the drive's pump
// goroutine; a slow callback delays later events for the same drive.
type Callback func(Event)

type subscription struct {
	id     uint64
	path   string // "" watches the whole tree
	cb     Callback
	active bool
}

type pump struct {
	stop chan struct{}
	done chan struct{}
}

// Hub tracks watch subscriptions keyed by (drive handle, watched path).
type Hub struct {
	mu      sync.Mutex
	nextSub uint64
	subs    map[uint64]map[uint64]*subscription // handle -> sub id -> sub
	pumps   map[uint64]*pump
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:  make(map[uint64]map[uint64]*subscription),
		pumps: make(map[uint64]*pump),
	}
}

// Watch registers a subscription on the drive identified by handle for
// events at or below path. The returned unsubscribe function deactivates
// exactly that subscription and is safe to call more than once; second and
// later calls are no-ops.
//
// The caller is responsible for validating the handle against the registry;
// the hub itself accepts any handle so that registration and drive attach
// cannot race.
func (h *Hub) Watch(handle uint64, path string, cb Callback) (func(), error) {
	np, err := mount.Normalize(path)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.nextSub++
	sub := &subscription{id: h.nextSub, path: np, cb: cb, active: true}
	if h.subs[handle] == nil {
		h.subs[handle] = make(map[uint64]*subscription)
	}
	h.subs[handle][sub.id] = sub
	h.mu.Unlock()

	metrics.WatchesActive.Inc()
	logger.Debug("watch registered", "drive", handle, "path", np, "sub", sub.id)

	return func() { h.unsubscribe(handle, sub.id) }, nil
}

func (h *Hub) unsubscribe(handle, subID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(handle, subID)
}

// removeLocked deactivates one subscription. Idempotent. Caller holds mu.
func (h *Hub) removeLocked(handle, subID uint64) {
	subs := h.subs[handle]
	sub, ok := subs[subID]
	if !ok || !sub.active {
		return
	}
	sub.active = false
	delete(subs, subID)
	if len(subs) == 0 {
		delete(h.subs, handle)
	}
	metrics.WatchesActive.Dec()
}

// AttachDrive starts consuming the drive's change events. Implements
// drive.EventSink.
func (h *Hub) AttachDrive(handle uint64, events <-chan store.Event) {
	p := &pump{stop: make(chan struct{}), done: make(chan struct{})}

	h.mu.Lock()
	h.pumps[handle] = p
	h.mu.Unlock()

	go func() {
		defer close(p.done)
		for {
			select {
			case <-p.stop:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				h.dispatch(handle, Event{Path: ev.Path})
			}
		}
	}()
}

// DropDrive deactivates and removes every subscription on the drive, then
// stops its pump and waits for any in-flight dispatch to finish. After it
// returns, no callback for this drive fires again. Implements
// drive.EventSink; called exactly once per drive by the registry's close
// path, so each subscription is torn down exactly once even when the client
// never unsubscribed.
func (h *Hub) DropDrive(handle uint64) {
	h.mu.Lock()
	for id := range h.subs[handle] {
		h.removeLocked(handle, id)
	}
	p := h.pumps[handle]
	delete(h.pumps, handle)
	h.mu.Unlock()

	if p != nil {
		close(p.stop)
		<-p.done
	}
}

// dispatch delivers one event to every active subscription on the drive
// whose watched path is a prefix of (or equal to) the changed path.
// Callback failures are isolated per subscription.
func (h *Hub) dispatch(handle uint64, ev Event) {
	h.mu.Lock()
	matched := make([]*subscription, 0, len(h.subs[handle]))
	for _, sub := range h.subs[handle] {
		if mount.HasPathPrefix(ev.Path, sub.path) {
			matched = append(matched, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range matched {
		h.deliver(handle, sub, ev)
	}
}

func (h *Hub) deliver(handle uint64, sub *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("watch callback panicked",
				"drive", handle, "sub", sub.id, "path", ev.Path, "panic", r)
		}
	}()
	sub.cb(ev)
	metrics.EventsDelivered.Inc()
}

// Close drops every drive. Used on daemon shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	handles := make([]uint64, 0, len(h.pumps))
	for handle := range h.pumps {
		handles = append(handles, handle)
	}
	h.mu.Unlock()

	for _, handle := range handles {
		h.DropDrive(handle)
	}
}
