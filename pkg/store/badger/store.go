// Package badger provides the durable storage primitive backend on
// BadgerDB. A single database holds every locally available drive, keyed by
// identity; node records and payload chunks live under per-drive prefixes.
package badger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/peerdrive/peerdrive/internal/logger"
	"github.com/peerdrive/peerdrive/pkg/store"
)

// DefaultEventBuffer is the change-event channel capacity per drive.
const DefaultEventBuffer = 128

// Opener creates and reopens drives backed by one shared badger database.
type Opener struct {
	db *badger.DB
}

var _ store.Opener = (*Opener)(nil)

// Options configures the badger opener.
type Options struct {
	// Dir is the directory the database lives in.
	Dir string

	// SyncWrites forces fsync on every commit. Slower, but commits survive
	// power loss.
	SyncWrites bool
}

// NewOpener opens (or creates) the badger database at dir with default
// options.
func NewOpener(dir string) (*Opener, error) {
	return Open(Options{Dir: dir})
}

// Open opens (or creates) the badger database described by opts.
func Open(opts Options) (*Opener, error) {
	bopts := badger.DefaultOptions(opts.Dir).
		WithLogger(nil).
		WithSyncWrites(opts.SyncWrites)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, store.NewError(store.ErrNotFound, opts.Dir, "opening badger database: %v", err)
	}
	return &Opener{db: db}, nil
}

// Close closes the underlying database. Open drive instances become
// unusable; close them first.
func (o *Opener) Close() error {
	return o.db.Close()
}

// Create allocates a drive with a fresh identity key and records it as
// locally available.
func (o *Opener) Create(ctx context.Context) (store.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := store.NewKey()
	if err != nil {
		return nil, err
	}

	record, err := encodeDriveRecord(&driveRecord{CreatedAtUnix: time.Now().Unix()})
	if err != nil {
		return nil, err
	}
	err = o.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyDrive(key), record)
	})
	if err != nil {
		return nil, err
	}

	return o.open(key), nil
}

// Open reopens the drive addressed by key. Fails with NotFound if the key
// is not recorded in this database.
func (o *Opener) Open(ctx context.Context, key store.Key) (store.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := o.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyDrive(key))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, store.NewError(store.ErrNotFound, "", "drive %s is not locally available", key)
	}
	if err != nil {
		return nil, err
	}
	return o.open(key), nil
}

func (o *Opener) open(key store.Key) *BadgerStore {
	return &BadgerStore{
		db:     o.db,
		key:    key,
		events: make(chan store.Event, DefaultEventBuffer),
	}
}

// BadgerStore is one open drive instance.
type BadgerStore struct {
	db  *badger.DB
	key store.Key

	mu     sync.Mutex
	closed bool
	events chan store.Event

	// commitMu serializes commits per instance; badger transactions give
	// atomicity, this gives the per-path writer ordering the contract
	// promises.
	commitMu sync.Mutex
}

var _ store.Store = (*BadgerStore)(nil)

// Key returns the drive's identity key.
func (s *BadgerStore) Key() store.Key {
	return s.key
}

// Events returns the drive's change-event channel.
func (s *BadgerStore) Events() <-chan store.Event {
	return s.events
}

// Close releases the instance. Drive contents remain in the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.NewError(store.ErrDriveClosed, "", "drive %s already closed", s.key)
	}
	s.closed = true
	close(s.events)
	return nil
}

func (s *BadgerStore) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.NewError(store.ErrDriveClosed, "", "drive %s is closed", s.key)
	}
	return nil
}

func (s *BadgerStore) publish(path string) {
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

// getNode fetches one node record inside txn. Returns nil without error if
// absent.
func (s *BadgerStore) getNode(txn *badger.Txn, path string) (*nodeRecord, error) {
	item, err := txn.Get(keyNode(s.key, path))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record *nodeRecord
	err = item.Value(func(val []byte) error {
		r, err := decodeNodeRecord(val)
		if err != nil {
			return err
		}
		record = r
		return nil
	})
	return record, err
}

// resolveOnce follows at most one symlink hop at path inside txn.
func (s *BadgerStore) resolveOnce(txn *badger.Txn, path string) (string, *nodeRecord, error) {
	record, err := s.getNode(txn, path)
	if err != nil {
		return "", nil, err
	}
	if record != nil && record.Kind == store.KindSymlink {
		target, err := s.getNode(txn, record.LinkTarget)
		if err != nil {
			return "", nil, err
		}
		return record.LinkTarget, target, nil
	}
	return path, record, nil
}

// hasDescendants reports whether any node lives strictly beneath path.
func (s *BadgerStore) hasDescendants(txn *badger.Txn, path string) bool {
	prefix := keyNodePrefix(s.key)
	if path != "" {
		prefix = append(prefix, []byte(path+"/")...)
	}
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	it.Seek(prefix)
	return it.ValidForPrefix(prefix)
}

// Stat returns the node record at path, following one symlink hop.
func (s *BadgerStore) Stat(ctx context.Context, path string) (*store.Node, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out *store.Node
	err := s.db.View(func(txn *badger.Txn) error {
		resolved, record, err := s.resolveOnce(txn, path)
		if err != nil {
			return err
		}
		if record != nil {
			out = &store.Node{
				Kind:       record.Kind,
				Size:       record.Size,
				UID:        record.UID,
				GID:        record.GID,
				Mode:       record.Mode,
				LinkTarget: record.LinkTarget,
			}
			return nil
		}
		if resolved == "" || s.hasDescendants(txn, resolved) {
			out = &store.Node{Kind: store.KindDirectory, Mode: 0o755}
			return nil
		}
		return store.NewError(store.ErrNotExist, path, "no entry")
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the immediate child names of the directory at path.
func (s *BadgerStore) List(ctx context.Context, path string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		resolved, record, err := s.resolveOnce(txn, path)
		if err != nil {
			return err
		}
		if record != nil && record.Kind != store.KindDirectory {
			return store.NewError(store.ErrInvalidPath, path, "not a directory")
		}
		if record == nil && resolved != "" && !s.hasDescendants(txn, resolved) {
			return store.NewError(store.ErrNotExist, path, "no entry")
		}

		prefix := keyNodePrefix(s.key)
		if resolved != "" {
			prefix = append(prefix, []byte(resolved+"/")...)
		}

		seen := make(map[string]struct{})
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := string(it.Item().Key()[len(prefix):])
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i]
			}
			seen[rest] = struct{}{}
		}

		names = make([]string, 0, len(seen))
		for name := range seen {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// ReadAt reads up to len(p) bytes at offset off from the file at path.
func (s *BadgerStore) ReadAt(ctx context.Context, path string, p []byte, off int64) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	read := 0
	err := s.db.View(func(txn *badger.Txn) error {
		resolved, record, err := s.resolveOnce(txn, path)
		if err != nil {
			return err
		}
		if record == nil {
			if resolved == "" || s.hasDescendants(txn, resolved) {
				return store.NewError(store.ErrIsDirectory, path, "is a directory")
			}
			return store.NewError(store.ErrNotExist, path, "no entry")
		}
		if record.Kind != store.KindFile {
			return store.NewError(store.ErrIsDirectory, path, "not a regular file")
		}

		if off < 0 || off >= int64(record.Size) {
			return nil
		}
		end := off + int64(len(p))
		if end > int64(record.Size) {
			end = int64(record.Size)
		}

		for pos := off; pos < end; {
			idx := uint32(pos / chunkSize)
			chunkOff := pos % chunkSize

			item, err := txn.Get(keyChunk(s.key, resolved, idx))
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				n := copy(p[read:end-off], val[chunkOff:])
				read += n
				pos += int64(n)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return read, nil
}

// badgerWriter stages chunks in memory and commits them in one transaction.
type badgerWriter struct {
	store *BadgerStore
	path  string
	attr  store.Attr

	mu     sync.Mutex
	buf    []byte
	failed bool
	done   bool
}

// OpenWriter stages a write that creates or replaces the file at path.
func (s *BadgerStore) OpenWriter(ctx context.Context, path string, attr store.Attr) (store.Writer, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, store.NewError(store.ErrIsDirectory, path, "is a directory")
	}

	err := s.db.View(func(txn *badger.Txn) error {
		record, err := s.getNode(txn, path)
		if err != nil {
			return err
		}
		if record != nil && record.Kind == store.KindDirectory {
			return store.NewError(store.ErrIsDirectory, path, "is a directory")
		}
		if record == nil && s.hasDescendants(txn, path) {
			return store.NewError(store.ErrIsDirectory, path, "is a directory")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &badgerWriter{store: s, path: path, attr: attr}, nil
}

func (w *badgerWriter) Write(ctx context.Context, p []byte) error {
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

func (w *badgerWriter) Commit(ctx context.Context) error {
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
	record, err := encodeNodeRecord(&nodeRecord{
		Kind: store.KindFile,
		Size: uint64(len(w.buf)),
		UID:  w.attr.UID,
		GID:  w.attr.GID,
		Mode: mode,
	})
	if err != nil {
		return err
	}

	s := w.store
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		// Drop chunks of any previous, larger version of this file.
		old, err := s.getNode(txn, w.path)
		if err != nil {
			return err
		}
		newCount := chunkCount(uint64(len(w.buf)))
		if old != nil && old.Kind == store.KindFile {
			for idx := newCount; idx < chunkCount(old.Size); idx++ {
				if err := txn.Delete(keyChunk(s.key, w.path, idx)); err != nil {
					return err
				}
			}
		}

		if err := txn.Set(keyNode(s.key, w.path), record); err != nil {
			return err
		}
		for idx := uint32(0); idx < newCount; idx++ {
			start := int(idx) * chunkSize
			end := start + chunkSize
			if end > len(w.buf) {
				end = len(w.buf)
			}
			if err := txn.Set(keyChunk(s.key, w.path, idx), w.buf[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(w.path)
	return nil
}

func (w *badgerWriter) Abort() {
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
func (s *BadgerStore) Symlink(ctx context.Context, target, link string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	record, err := encodeNodeRecord(&nodeRecord{
		Kind:       store.KindSymlink,
		Mode:       0o777,
		LinkTarget: target,
	})
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyNode(s.key, link), record)
	})
	if err != nil {
		return err
	}

	s.publish(link)
	return nil
}
