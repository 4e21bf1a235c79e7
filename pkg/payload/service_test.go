package payload

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/peerdrive/peerdrive/pkg/drive"
	"github.com/peerdrive/peerdrive/pkg/mount"
	"github.com/peerdrive/peerdrive/pkg/store"
	"github.com/peerdrive/peerdrive/pkg/store/memory"
)

func newTestService(t *testing.T) (*Service, *drive.Drive, *drive.Registry) {
	t.Helper()
	reg := drive.NewRegistry(memory.NewOpener(), nil)
	res := mount.NewResolver(reg)
	d, err := reg.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return New(res), d, reg
}

func TestWriteReadFileRoundTrip(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	content := []byte("round trip payload")
	if err := svc.WriteFile(ctx, d.Handle(), "f.txt", content, WriteOptions{}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := svc.ReadFile(ctx, d.Handle(), "f.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("ReadFile = %q, want %q", got, content)
	}
}

func TestReadRangeWindow(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.WriteFile(ctx, d.Handle(), "f", []byte("hellothere friend"), WriteOptions{}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	r, err := svc.ReadRange(ctx, d.Handle(), "f", 5, 6)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	got, err := r.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != "theref" {
		t.Errorf("ReadRange(5, 6) = %q, want %q", got, "theref")
	}
}

func TestReadRangeTruncatesAtEOF(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.WriteFile(ctx, d.Handle(), "f", []byte("short"), WriteOptions{}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	r, err := svc.ReadRange(ctx, d.Handle(), "f", 3, 100)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	got, err := r.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != "rt" {
		t.Errorf("truncated read = %q, want %q", got, "rt")
	}

	// Offset entirely past end-of-file yields an empty sequence.
	r, err = svc.ReadRange(ctx, d.Handle(), "f", 50, 10)
	if err != nil {
		t.Fatalf("ReadRange past EOF failed: %v", err)
	}
	if _, err := r.Next(ctx); err != io.EOF {
		t.Errorf("Next past EOF = %v, want io.EOF", err)
	}
}

func TestReaderIsOneShot(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.WriteFile(ctx, d.Handle(), "f", []byte("abc"), WriteOptions{}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	r, err := svc.ReadRange(ctx, d.Handle(), "f", 0, -1)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	if _, err := r.ReadAll(ctx); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if _, err := r.Next(ctx); err != io.EOF {
		t.Errorf("Next after exhaustion = %v, want io.EOF", err)
	}
}

func TestReadErrors(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ReadRange(ctx, d.Handle(), "missing", 0, -1); !store.IsNotExist(err) {
		t.Errorf("ReadRange(missing) = %v, want NotExist", err)
	}

	if err := svc.WriteFile(ctx, d.Handle(), "dir/inner", []byte("x"), WriteOptions{}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := svc.ReadRange(ctx, d.Handle(), "dir", 0, -1); !store.IsCode(err, store.ErrIsDirectory) {
		t.Errorf("ReadRange(directory) = %v, want IsDirectory", err)
	}
}

func TestStreamedWriteChunkOrder(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.OpenWriter(ctx, d.Handle(), "streamed", WriteOptions{})
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	for _, chunk := range []string{"first-", "second-", "third"} {
		if err := w.Write(ctx, []byte(chunk)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, err := svc.ReadFile(ctx, d.Handle(), "streamed")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "first-second-third" {
		t.Errorf("streamed content = %q", got)
	}
}

func TestAbortedStreamInvisible(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.WriteFile(ctx, d.Handle(), "f", []byte("committed"), WriteOptions{}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	w, err := svc.OpenWriter(ctx, d.Handle(), "f", WriteOptions{})
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	if err := w.Write(ctx, []byte("half-written")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	w.Abort()
	if err := w.Commit(ctx); !store.IsCode(err, store.ErrWriteAborted) {
		t.Errorf("Commit after Abort = %v, want WriteAborted", err)
	}

	got, err := svc.ReadFile(ctx, d.Handle(), "f")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "committed" {
		t.Errorf("content after aborted overwrite = %q, want %q", got, "committed")
	}
}

func TestWriteOptionsApplied(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.WriteFile(ctx, d.Handle(), "owned", []byte("x"), WriteOptions{UID: 999, GID: 999}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	node, err := d.Store().Stat(ctx, "owned")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if node.UID != 999 || node.GID != 999 {
		t.Errorf("ownership = %d/%d, want 999/999", node.UID, node.GID)
	}
}

func TestStreamFailsAcrossClose(t *testing.T) {
	svc, d, reg := newTestService(t)
	ctx := context.Background()

	w, err := svc.OpenWriter(ctx, d.Handle(), "f", WriteOptions{})
	if err != nil {
		t.Fatalf("OpenWriter failed: %v", err)
	}
	if err := w.Write(ctx, []byte("before close")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := reg.Close(d.Handle()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := w.Write(ctx, []byte("after close")); !store.IsDriveClosed(err) {
		t.Errorf("Write after close = %v, want DriveClosed", err)
	}
	if err := w.Commit(ctx); err == nil {
		t.Error("Commit after close succeeded, want failure")
	}
}

func TestIdentityMarkerReadable(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	want := d.Key().String()
	got, err := svc.ReadFile(ctx, d.Handle(), store.KeyMarkerName)
	if err != nil {
		t.Fatalf("ReadFile(marker) failed: %v", err)
	}
	if string(got) != want {
		t.Errorf("marker content = %q, want %q", got, want)
	}

	// Range windows apply like on a stored file.
	r, err := svc.ReadRange(ctx, d.Handle(), store.KeyMarkerName, 4, 8)
	if err != nil {
		t.Fatalf("ReadRange(marker) failed: %v", err)
	}
	window, err := r.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(window) != want[4:12] {
		t.Errorf("marker range = %q, want %q", window, want[4:12])
	}

	if _, err := svc.OpenWriter(ctx, d.Handle(), store.KeyMarkerName, WriteOptions{}); !store.IsCode(err, store.ErrInvalidPath) {
		t.Errorf("OpenWriter(marker) = %v, want InvalidPath", err)
	}
}

func TestWriteToDirectoryRejected(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.WriteFile(ctx, d.Handle(), "dir/inner", []byte("x"), WriteOptions{}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	for _, path := range []string{"", "dir"} {
		if err := svc.WriteFile(ctx, d.Handle(), path, []byte("clobber"), WriteOptions{}); !store.IsCode(err, store.ErrIsDirectory) {
			t.Errorf("WriteFile(%q) = %v, want IsDirectory", path, err)
		}
	}
}

func TestLargePayloadChunking(t *testing.T) {
	svc, d, _ := newTestService(t)
	ctx := context.Background()

	data := make([]byte, 3*ChunkSize+17)
	for i := range data {
		data[i] = byte(i)
	}
	if err := svc.WriteFile(ctx, d.Handle(), "big", data, WriteOptions{}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	r, err := svc.ReadRange(ctx, d.Handle(), "big", 0, -1)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	var chunks int
	var got []byte
	for {
		chunk, err := r.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		chunks++
		got = append(got, chunk...)
	}
	if chunks != 4 {
		t.Errorf("chunk count = %d, want 4", chunks)
	}
	if !bytes.Equal(got, data) {
		t.Error("chunked read differs from written data")
	}
}
