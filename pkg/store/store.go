// Package store defines the boundary contract of the storage primitive: the
// content-addressed, versioned engine backing a single drive. The session
// layer (registry, mount resolver, watch hub, I/O adapter, metadata layer)
// is written entirely against these interfaces; the engine itself is an
// external collaborator and the in-tree backends (memory, badger) implement
// only its contract.
package store

import "context"

// KeyMarkerName is the synthetic root-level entry exposing a drive's
// identity key as hex text. It is generated per request, never stored; the
// metadata and streaming layers serve it without touching the store.
const KeyMarkerName = ".key"

// NodeKind discriminates entry types in a drive.
type NodeKind uint8

const (
	KindFile NodeKind = iota + 1
	KindDirectory
	KindSymlink
)

func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Attr carries the daemon-level overlay metadata applied to an entry at
// write time. Zero values are the defaults.
type Attr struct {
	UID  uint32
	GID  uint32
	Mode uint32 // permission bits; 0 means the backend default
}

// Node is the metadata record of one entry. Size is authoritative from the
// store; ownership fields are whatever Attr was supplied at write time.
type Node struct {
	Kind       NodeKind
	Size       uint64
	UID        uint32
	GID        uint32
	Mode       uint32
	LinkTarget string // set only for KindSymlink
}

// Event is a change notification for one path within a drive. Delivery is
// best-effort and at-least-once; consumers must tolerate duplicates.
type Event struct {
	Path string
}

// Writer is a staged write to one path. Chunks are applied strictly in call
// order. Nothing becomes visible to readers until Commit returns; Abort (or
// a failed chunk) leaves the previously committed content untouched.
type Writer interface {
	// Write appends one chunk to the staged entry.
	Write(ctx context.Context, p []byte) error

	// Commit atomically publishes the staged entry. Fails with WriteAborted
	// if any prior Write failed or Abort was called.
	Commit(ctx context.Context) error

	// Abort discards the staged entry. Safe to call after Commit or more
	// than once; later calls are no-ops.
	Abort()
}

// Store is one open instance of the storage primitive.
//
// Path arguments are normalized slash-separated paths relative to the drive
// root, "" meaning the root itself. The store resolves at most one level of
// symlink indirection per access and serializes concurrent writers to the
// same path; callers rely on both.
//
// Directories are implicit: an entry's parent directories exist exactly
// while at least one entry lives beneath them. The root always exists.
//
// After Close, every method fails with DriveClosed.
type Store interface {
	// Key returns the drive's immutable identity key.
	Key() Key

	// Stat returns the node record at path. Fails with NotExist if there is
	// no entry and no implicit directory at path.
	Stat(ctx context.Context, path string) (*Node, error)

	// List returns the immediate child names of the directory at path, in
	// unspecified but call-stable order. Fails with NotExist for missing
	// paths and InvalidPath when the entry at path is not a directory.
	List(ctx context.Context, path string) ([]string, error)

	// ReadAt reads up to len(p) bytes at byte offset off from the file at
	// path. Returns the number of bytes read; a short or zero count means
	// the range extends past end-of-file, which is not an error. Fails with
	// NotExist or IsDirectory.
	ReadAt(ctx context.Context, path string, p []byte, off int64) (int, error)

	// OpenWriter stages a write that will create or replace the file at
	// path with the given attributes on Commit.
	OpenWriter(ctx context.Context, path string, attr Attr) (Writer, error)

	// Symlink records a link entry at link pointing at target (a path
	// within the same drive). Accesses through link resolve one level to
	// target's entry.
	Symlink(ctx context.Context, target, link string) error

	// Events returns the drive's change-event channel. The channel is
	// closed by Close. One consumer is expected; events may be dropped if
	// the consumer falls far behind.
	Events() <-chan Event

	// Close releases the drive's resources and closes the event channel.
	Close() error
}

// Opener creates and reopens drives. It stands at the boundary with the
// replication/discovery collaborator: Open succeeds once that collaborator
// reports the identity key as locally available, and fails with NotFound
// otherwise.
type Opener interface {
	// Create allocates a drive with a freshly generated identity key.
	Create(ctx context.Context) (Store, error)

	// Open reopens the drive addressed by key.
	Open(ctx context.Context, key Key) (Store, error)
}
