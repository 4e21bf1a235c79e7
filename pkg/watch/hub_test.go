package watch

import (
	"sync"
	"testing"
	"time"

	"github.com/peerdrive/peerdrive/pkg/store"
)

// collector accumulates delivered events.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) cb(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Path
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestDeliveryAndPrefixMatching(t *testing.T) {
	hub := NewHub()
	events := make(chan store.Event, 8)
	hub.AttachDrive(1, events)
	defer hub.DropDrive(1)

	root := &collector{}
	sub := &collector{}
	other := &collector{}

	if _, err := hub.Watch(1, "", root.cb); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if _, err := hub.Watch(1, "docs", sub.cb); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if _, err := hub.Watch(1, "media", other.cb); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	events <- store.Event{Path: "docs/readme.md"}
	events <- store.Event{Path: "docs"}
	events <- store.Event{Path: "docsx/file"}

	waitFor(t, func() bool { return len(root.paths()) == 3 })

	if got := sub.paths(); len(got) != 2 || got[0] != "docs/readme.md" || got[1] != "docs" {
		t.Errorf("docs watcher saw %v, want [docs/readme.md docs] in order", got)
	}
	if got := other.paths(); len(got) != 0 {
		t.Errorf("media watcher saw %v, want none", got)
	}
}

func TestPerSubscriptionOrdering(t *testing.T) {
	hub := NewHub()
	events := make(chan store.Event, 64)
	hub.AttachDrive(7, events)
	defer hub.DropDrive(7)

	c := &collector{}
	if _, err := hub.Watch(7, "", c.cb); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	want := []string{"a", "b", "c", "d", "e"}
	for _, p := range want {
		events <- store.Event{Path: p}
	}

	waitFor(t, func() bool { return len(c.paths()) == len(want) })
	got := c.paths()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event order = %v, want %v", got, want)
		}
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	hub := NewHub()
	events := make(chan store.Event, 8)
	hub.AttachDrive(3, events)
	defer hub.DropDrive(3)

	c := &collector{}
	unsub, err := hub.Watch(3, "", c.cb)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	events <- store.Event{Path: "before"}
	waitFor(t, func() bool { return len(c.paths()) >= 1 })

	unsub()
	unsub() // second call is a no-op

	events <- store.Event{Path: "after"}
	// Give the pump a moment; the event must not reach the callback.
	time.Sleep(20 * time.Millisecond)

	for _, p := range c.paths() {
		if p == "after" {
			t.Error("callback fired after unsubscribe")
		}
	}
}

func TestDropDriveStopsDelivery(t *testing.T) {
	hub := NewHub()
	events := make(chan store.Event, 8)
	hub.AttachDrive(5, events)

	c := &collector{}
	if _, err := hub.Watch(5, "", c.cb); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	events <- store.Event{Path: "x"}
	waitFor(t, func() bool { return len(c.paths()) == 1 })

	hub.DropDrive(5)

	// Events buffered or sent after teardown never reach the callback.
	events <- store.Event{Path: "y"}
	time.Sleep(20 * time.Millisecond)
	if got := c.paths(); len(got) != 1 {
		t.Errorf("events after DropDrive delivered: %v", got)
	}
}

func TestClosedEventChannelStopsPump(t *testing.T) {
	hub := NewHub()
	events := make(chan store.Event, 1)
	hub.AttachDrive(9, events)

	close(events)
	// DropDrive must not hang on an already-finished pump.
	done := make(chan struct{})
	go func() {
		hub.DropDrive(9)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("DropDrive hung after event channel close")
	}
}

func TestCallbackPanicIsolated(t *testing.T) {
	hub := NewHub()
	events := make(chan store.Event, 8)
	hub.AttachDrive(11, events)
	defer hub.DropDrive(11)

	if _, err := hub.Watch(11, "", func(Event) { panic("boom") }); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	healthy := &collector{}
	if _, err := hub.Watch(11, "", healthy.cb); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	events <- store.Event{Path: "p"}
	waitFor(t, func() bool { return len(healthy.paths()) == 1 })
}

func TestWatchInvalidPath(t *testing.T) {
	hub := NewHub()
	if _, err := hub.Watch(1, "../escape", func(Event) {}); !store.IsCode(err, store.ErrInvalidPath) {
		t.Errorf("Watch(escaping path) = %v, want InvalidPath", err)
	}
}
