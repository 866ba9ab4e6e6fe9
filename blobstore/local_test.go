package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)

	ctx := context.Background()

	// 1. Create a blob
	blobName := "gen-1/graph.hnsw"
	data := []byte("hello world, this is a test blob for hnswdb")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	require.NoError(t, w.Close())

	// Verify file exists on disk
	_, err = os.Stat(filepath.Join(tmpDir, "gen-1", "graph.hnsw"))
	require.NoError(t, err)

	// 2. Open and ReadAt
	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(ctx, buf, 6) // "world"
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	// 3. ReadRange
	rangeReader, err := blob.ReadRange(ctx, 13, 4)
	require.NoError(t, err)
	defer rangeReader.Close()

	rangeContent, err := io.ReadAll(rangeReader)
	require.NoError(t, err)
	require.Equal(t, "this", string(rangeContent))

	// 4. List
	require.NoError(t, store.Put(ctx, "CURRENT", []byte("gen-1")))

	blobs, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"CURRENT", blobName}, blobs)

	blobs, err = store.List(ctx, "gen-1/")
	require.NoError(t, err)
	require.Equal(t, []string{blobName}, blobs)

	// 5. Delete
	require.NoError(t, store.Delete(ctx, "CURRENT"))
	require.NoError(t, store.Delete(ctx, "CURRENT"), "deleting a missing blob is not an error")

	_, err = store.Open(ctx, "CURRENT")
	require.True(t, IsNotFound(err))
}

func TestLocalBlobStore_ReadRange_Boundaries(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	data := []byte("0123456789")
	require.NoError(t, store.Put(ctx, "boundary.bin", data))

	blob, err := store.Open(ctx, "boundary.bin")
	require.NoError(t, err)
	defer blob.Close()

	// Case 1: Read full range
	r, err := blob.ReadRange(ctx, 0, 10)
	require.NoError(t, err)
	content, _ := io.ReadAll(r)
	r.Close()
	require.True(t, bytes.Equal(data, content))

	// Case 2: Read past end
	r, err = blob.ReadRange(ctx, 8, 5)
	require.NoError(t, err)
	content, err = io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "89", string(content))
	r.Close()

	// Case 3: Offset past EOF
	_, err = blob.ReadRange(ctx, 20, 5)
	require.ErrorIs(t, err, io.EOF)
}

func TestLocalBlobStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestWriteStreamAbortsOnError(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	for name, store := range map[string]BlobStore{
		"local":  NewLocalStore(t.TempDir()),
		"memory": NewMemoryStore(),
	} {
		t.Run(name, func(t *testing.T) {
			err := WriteStream(ctx, store, "x.bin", func(w io.Writer) error {
				_, _ = w.Write([]byte("partial"))
				return errBoom
			})
			require.ErrorIs(t, err, errBoom)

			names, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, names, "aborted blob must not become visible")

			require.NoError(t, WriteStream(ctx, store, "x.bin", func(w io.Writer) error {
				_, err := w.Write([]byte("complete"))
				return err
			}))

			got, err := ReadAll(ctx, store, "x.bin")
			require.NoError(t, err)
			assert.Equal(t, "complete", string(got))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "a/1", data))
	data[0] = 'z'

	got, err := ReadAll(ctx, store, "a/1")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	require.NoError(t, store.Put(ctx, "b/1", nil))
	got, err = ReadAll(ctx, store, "b/1")
	require.NoError(t, err)
	assert.Empty(t, got)

	names, err := store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1"}, names)

	_, err = store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "a/1"))
	_, err = ReadAll(ctx, store, "a/1")
	assert.True(t, IsNotFound(err))
}
