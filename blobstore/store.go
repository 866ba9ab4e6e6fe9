package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// CurrentFile names the pointer blob that records the latest committed
// generation below a prefix.
const CurrentFile = "CURRENT"

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for reading and writing index artifacts.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a new blob for streaming writes. The blob becomes
	// visible when Close returns nil.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange returns a reader for length bytes starting at off.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a handle to a blob being written.
type WritableBlob interface {
	io.WriteCloser
	// Sync flushes buffered data to stable storage where supported.
	Sync() error
}

// Abortable is implemented by writable blobs whose pending write can be
// discarded without publishing it.
type Abortable interface {
	Abort() error
}

// ReadAll reads a whole blob into memory.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	if blob.Size() == 0 {
		return []byte{}, nil
	}

	r, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var buf bytes.Buffer
	buf.Grow(int(blob.Size()))
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("blobstore: read %s: %w", name, err)
	}
	if int64(buf.Len()) != blob.Size() {
		return nil, fmt.Errorf("blobstore: read %s: %w", name, io.ErrUnexpectedEOF)
	}
	return buf.Bytes(), nil
}

// WriteStream creates name and streams the output of writeFunc into it. On
// failure the partial blob is aborted where supported.
func WriteStream(ctx context.Context, store BlobStore, name string, writeFunc func(io.Writer) error) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}

	if err := writeFunc(w); err != nil {
		if a, ok := w.(Abortable); ok {
			_ = a.Abort()
		} else {
			_ = w.Close()
		}
		return err
	}

	if err := w.Sync(); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// IsNotFound reports whether err means the blob does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// rangeBounds clamps [off, off+length) to size. It returns io.EOF when off is
// past the end.
func rangeBounds(off, length, size int64) (int64, int64, error) {
	if off < 0 || length < 0 {
		return 0, 0, fmt.Errorf("blobstore: invalid range %d+%d", off, length)
	}
	if off >= size {
		return 0, 0, io.EOF
	}
	return off, min(off+length, size), nil
}
