// Package payload adapts byte-stream and whole-buffer read/write requests
// onto the storage primitive's range read and staged write contract, after
// resolving the request path through the mount resolver.
package payload

import (
	"context"
	"io"

	"github.com/peerdrive/peerdrive/pkg/metrics"
	"github.com/peerdrive/peerdrive/pkg/mount"
	"github.com/peerdrive/peerdrive/pkg/store"
)

// ChunkSize is the chunk granularity of range readers.
const ChunkSize = 64 << 10

// WriteOptions carries the optional overlay metadata applied to the entry
// at creation or overwrite. Zero values are the defaults (uid 0, gid 0,
// backend default mode).
type WriteOptions struct {
	UID  uint32
	GID  uint32
	Mode uint32
}

// Service is the streaming I/O adapter.
type Service struct {
	res *mount.Resolver
}

// New creates the adapter over the given resolver.
func New(res *mount.Resolver) *Service {
	return &Service{res: res}
}

// ReadRange opens a lazy, finite, one-shot chunk sequence over the file's
// bytes in [offset, offset+length). A negative length reads to end-of-file.
// Ranges extending past end-of-file are truncated to the available bytes,
// never an error. The sequence is not restartable; call ReadRange again for
// a fresh read.
//
// Fails with NotExist if the resolved path has no entry and IsDirectory if
// it names a directory.
func (s *Service) ReadRange(ctx context.Context, handle uint64, path string, offset, length int64) (*Reader, error) {
	d, rel, err := s.res.Resolve(ctx, handle, path)
	if err != nil {
		return nil, err
	}
	if rel == store.KeyMarkerName {
		return newStaticReader([]byte(d.Key().String()), offset, length), nil
	}
	st := d.Store()

	node, err := st.Stat(ctx, rel)
	if err != nil {
		return nil, err
	}
	if node.Kind == store.KindDirectory {
		return nil, store.NewError(store.ErrIsDirectory, path, "is a directory")
	}

	if offset < 0 {
		offset = 0
	}
	remaining := int64(node.Size) - offset
	if remaining < 0 {
		remaining = 0
	}
	if length >= 0 && length < remaining {
		remaining = length
	}

	return &Reader{
		st:        st,
		path:      rel,
		offset:    offset,
		remaining: remaining,
	}, nil
}

// Reader is a one-shot ordered chunk sequence.
type Reader struct {
	st        store.Store
	path      string
	offset    int64
	remaining int64
	static    []byte
}

// newStaticReader serves a synthetic entry's bytes with the same range
// windowing as a stored file.
func newStaticReader(content []byte, offset, length int64) *Reader {
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(content)) {
		offset = int64(len(content))
	}
	window := content[offset:]
	if length >= 0 && length < int64(len(window)) {
		window = window[:length]
	}
	return &Reader{static: window, remaining: int64(len(window))}
}

// Next returns the next chunk, or io.EOF when the range is exhausted. The
// returned slice is valid until the next call.
func (r *Reader) Next(ctx context.Context) ([]byte, error) {
	if r.remaining <= 0 {
		return nil, io.EOF
	}
	if r.static != nil {
		size := int64(ChunkSize)
		if r.remaining < size {
			size = r.remaining
		}
		chunk := r.static[:size]
		r.static = r.static[size:]
		r.remaining -= size
		metrics.BytesRead.Add(float64(size))
		return chunk, nil
	}

	size := int64(ChunkSize)
	if r.remaining < size {
		size = r.remaining
	}
	buf := make([]byte, size)
	n, err := r.st.ReadAt(ctx, r.path, buf, r.offset)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// The file shrank underneath the reader; treat like end-of-file.
		r.remaining = 0
		return nil, io.EOF
	}

	r.offset += int64(n)
	r.remaining -= int64(n)
	metrics.BytesRead.Add(float64(n))
	return buf[:n], nil
}

// ReadAll drains the sequence into one buffer.
func (r *Reader) ReadAll(ctx context.Context) ([]byte, error) {
	var out []byte
	for {
		chunk, err := r.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
}

// Writer is an ordered chunked sink over one path. Writes are applied in
// call order; Commit publishes the entry atomically; Abort (or any failed
// write) leaves the previously committed content untouched.
type Writer struct {
	w      store.Writer
	path   string
	failed bool
	wrote  int64
}

// OpenWriter stages a stream write to the resolved path with the given
// options.
func (s *Service) OpenWriter(ctx context.Context, handle uint64, path string, opts WriteOptions) (*Writer, error) {
	d, rel, err := s.res.Resolve(ctx, handle, path)
	if err != nil {
		return nil, err
	}
	if rel == store.KeyMarkerName {
		return nil, store.NewError(store.ErrInvalidPath, path, "identity marker is read-only")
	}

	w, err := d.Store().OpenWriter(ctx, rel, store.Attr{UID: opts.UID, GID: opts.GID, Mode: opts.Mode})
	if err != nil {
		return nil, err
	}
	return &Writer{w: w, path: path}, nil
}

// Write appends one chunk to the stream. After a failed write the stream is
// poisoned: later writes and Commit fail with WriteAborted.
func (w *Writer) Write(ctx context.Context, p []byte) error {
	if w.failed {
		return store.NewError(store.ErrWriteAborted, w.path, "stream already failed")
	}
	if err := w.w.Write(ctx, p); err != nil {
		w.failed = true
		return err
	}
	w.wrote += int64(len(p))
	return nil
}

// Commit finalizes the stream. Fails with WriteAborted if any prior chunk
// write failed; otherwise commits and the entry becomes visible.
func (w *Writer) Commit(ctx context.Context) error {
	if w.failed {
		return store.NewError(store.ErrWriteAborted, w.path, "stream failed before finalize")
	}
	if err := w.w.Commit(ctx); err != nil {
		return err
	}
	metrics.BytesWritten.Add(float64(w.wrote))
	return nil
}

// Abort discards the stream. Safe to call more than once.
func (w *Writer) Abort() {
	w.failed = true
	w.w.Abort()
}

// ReadFile reads the whole file at path.
func (s *Service) ReadFile(ctx context.Context, handle uint64, path string) ([]byte, error) {
	r, err := s.ReadRange(ctx, handle, path, 0, -1)
	if err != nil {
		return nil, err
	}
	return r.ReadAll(ctx)
}

// WriteFile writes data as the whole content of the file at path.
func (s *Service) WriteFile(ctx context.Context, handle uint64, path string, data []byte, opts WriteOptions) error {
	w, err := s.OpenWriter(ctx, handle, path, opts)
	if err != nil {
		return err
	}
	if err := w.Write(ctx, data); err != nil {
		w.Abort()
		return err
	}
	return w.Commit(ctx)
}
