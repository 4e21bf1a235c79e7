// Package memory provides the in-memory storage primitive backend. It backs
// unit tests and single-node runs; its Opener retains the contents of closed
// drives so that reopening by identity key behaves like a drive that is
// still locally available from the replication layer.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/peerdrive/peerdrive/internal/logger"
	"github.com/peerdrive/peerdrive/pkg/store"
)

// DefaultEventBuffer is the change-event channel capacity per drive.
const DefaultEventBuffer = 128

// node is one explicit entry. Directories are implicit and have no node.
type node struct {
	kind       store.NodeKind
	data       []byte
	uid, gid   uint32
	mode       uint32
	linkTarget string
}

// driveState is the shared content of one drive, owned by the Opener so it
// survives close/reopen cycles.
type driveState struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// MemoryStore is one open instance of a drive backed by process memory.
type MemoryStore struct {
	key   store.Key
	state *driveState

	mu     sync.Mutex
	closed bool
	events chan store.Event
}

var _ store.Store = (*MemoryStore)(nil)

// Opener creates and reopens memory drives. Closed drives keep their
// contents; Open on a never-created key fails with NotFound.
type Opener struct {
	mu          sync.Mutex
	drives      map[store.Key]*driveState
	eventBuffer int
}

var _ store.Opener = (*Opener)(nil)

// NewOpener creates an Opener with the default event buffer size.
func NewOpener() *Opener {
	return &Opener{
		drives:      make(map[store.Key]*driveState),
		eventBuffer: DefaultEventBuffer,
	}
}

// Create allocates a drive with a fresh identity key.
func (o *Opener) Create(ctx context.Context) (store.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := store.NewKey()
	if err != nil {
		return nil, err
	}

	state := &driveState{nodes: make(map[string]*node)}

	o.mu.Lock()
	o.drives[key] = state
	o.mu.Unlock()

	return o.open(key, state), nil
}

// Open reopens the drive addressed by key. Fails with NotFound if the key
// was never created through this opener.
func (o *Opener) Open(ctx context.Context, key store.Key) (store.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	state, ok := o.drives[key]
	o.mu.Unlock()
	if !ok {
		return nil, store.NewError(store.ErrNotFound, "", "drive %s is not locally available", key)
	}
	return o.open(key, state), nil
}

func (o *Opener) open(key store.Key, state *driveState) *MemoryStore {
	return &MemoryStore{
		key:    key,
		state:  state,
		events: make(chan store.Event, o.eventBuffer),
	}
}

// Key returns the drive's identity key.
func (s *MemoryStore) Key() store.Key {
	return s.key
}

// Events returns the drive's change-event channel.
func (s *MemoryStore) Events() <-chan store.Event {
	return s.events
}

// Close releases the instance. The drive's contents remain with the Opener.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.NewError(store.ErrDriveClosed, "", "drive %s already closed", s.key)
	}
	s.closed = true
	close(s.events)
	return nil
}

func (s *MemoryStore) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.NewError(store.ErrDriveClosed, "", "drive %s is closed", s.key)
	}
	return nil
}

// publish emits a change event. Delivery is best-effort: if the consumer is
// far behind the event is dropped rather than blocking the writer.
func (s *MemoryStore) publish(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- store.Event{Path: path}:
	default:
		logger.Debug("event buffer full, dropping change event",
			"drive", s.key.String(), "path", path)
	}
}

// resolveOnce follows at most one level of symlink indirection at path.
// Caller must hold state.mu (read or write).
func (s *MemoryStore) resolveOnce(path string) string {
	if n, ok := s.state.nodes[path]; ok && n.kind == store.KindSymlink {
		return n.linkTarget
	}
	return path
}

// isImplicitDir reports whether any entry lives strictly beneath path.
// Caller must hold state.mu.
func (s *MemoryStore) isImplicitDir(path string) bool {
	if path == "" {
		return true
	}
	prefix := path + "/"
	for p := range s.state.nodes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Stat returns the node record at path, following one symlink hop.
func (s *MemoryStore) Stat(ctx context.Context, path string) (*store.Node, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	path = s.resolveOnce(path)
	if n, ok := s.state.nodes[path]; ok {
		out := &store.Node{
			Kind: n.kind,
			Size: uint64(len(n.data)),
			UID:  n.uid,
			GID:  n.gid,
			Mode: n.mode,
		}
		if n.kind == store.KindSymlink {
			out.LinkTarget = n.linkTarget
		}
		return out, nil
	}
	if s.isImplicitDir(path) {
		return &store.Node{Kind: store.KindDirectory, Mode: 0o755}, nil
	}
	return nil, store.NewError(store.ErrNotExist, path, "no entry")
}

// List returns the immediate child names of the directory at path.
func (s *MemoryStore) List(ctx context.Context, path string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	path = s.resolveOnce(path)
	if n, ok := s.state.nodes[path]; ok && n.kind != store.KindDirectory {
		return nil, store.NewError(store.ErrInvalidPath, path, "not a directory")
	}
	if path != "" && !s.isImplicitDir(path) {
		return nil, store.NewError(store.ErrNotExist, path, "no entry")
	}

	prefix := ""
	if path != "" {
		prefix = path + "/"
	}

	seen := make(map[string]struct{})
	for p := range s.state.nodes {
		if !strings.HasPrefix(p, prefix) || p == path {
			continue
		}
		rest := p[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ReadAt reads up to len(p) bytes at offset off from the file at path.
// Short reads at end-of-file are not an error.
func (s *MemoryStore) ReadAt(ctx context.Context, path string, p []byte, off int64) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	path = s.resolveOnce(path)
	n, ok := s.state.nodes[path]
	if !ok {
		if s.isImplicitDir(path) {
			return 0, store.NewError(store.ErrIsDirectory, path, "is a directory")
		}
		return 0, store.NewError(store.ErrNotExist, path, "no entry")
	}
	if n.kind != store.KindFile {
		return 0, store.NewError(store.ErrIsDirectory, path, "not a regular file")
	}

	if off < 0 || off >= int64(len(n.data)) {
		return 0, nil
	}
	return copy(p, n.data[off:]), nil
}

// memWriter stages chunks and installs the entry atomically on Commit.
type memWriter struct {
	store *MemoryStore
	path  string
	attr  store.Attr

	mu     sync.Mutex
	buf    []byte
	failed bool
	done   bool
}

// OpenWriter stages a write that creates or replaces the file at path.
func (s *MemoryStore) OpenWriter(ctx context.Context, path string, attr store.Attr) (store.Writer, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.state.mu.RLock()
	existing, ok := s.state.nodes[path]
	implicitDir := !ok && s.isImplicitDir(path)
	s.state.mu.RUnlock()
	if (ok && existing.kind == store.KindDirectory) || implicitDir {
		return nil, store.NewError(store.ErrIsDirectory, path, "is a directory")
	}

	return &memWriter{store: s, path: path, attr: attr}, nil
}

func (w *memWriter) Write(ctx context.Context, p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		w.failed = true
		return store.NewError(store.ErrWriteAborted, w.path, "write after finalize")
	}
	if err := w.store.checkOpen(); err != nil {
		w.failed = true
		return err
	}
	if err := ctx.Err(); err != nil {
		w.failed = true
		return err
	}
	w.buf = append(w.buf, p...)
	return nil
}

func (w *memWriter) Commit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failed || w.done {
		return store.NewError(store.ErrWriteAborted, w.path, "stream aborted")
	}
	if err := w.store.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	w.done = true

	mode := w.attr.Mode
	if mode == 0 {
		mode = 0o644
	}

	w.store.state.mu.Lock()
	w.store.state.nodes[w.path] = &node{
		kind: store.KindFile,
		data: w.buf,
		uid:  w.attr.UID,
		gid:  w.attr.GID,
		mode: mode,
	}
	w.store.state.mu.Unlock()

	w.store.publish(w.path)
	return nil
}

func (w *memWriter) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.done = true
	w.failed = true
	w.buf = nil
}

// Symlink records a link entry at link pointing at target.
func (s *MemoryStore) Symlink(ctx context.Context, target, link string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state.mu.Lock()
	s.state.nodes[link] = &node{
		kind:       store.KindSymlink,
		mode:       0o777,
		linkTarget: target,
	}
	s.state.mu.Unlock()

	s.publish(link)
	return nil
}
