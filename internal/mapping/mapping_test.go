package mapping

import (
	"bytes"
	"sync"
	"testing"

	"github.com/hupe1980/hnswdb/internal/hnsw"
	"github.com/hupe1980/hnswdb/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardCountRounding(t *testing.T) {
	assert.Equal(t, DefaultShards, New(0).Shards())
	assert.Equal(t, 1, New(1).Shards())
	assert.Equal(t, 8, New(5).Shards())
	assert.Equal(t, 64, New(64).Shards())
}

func TestPutLookupExternal(t *testing.T) {
	m := New(4)

	_, replaced := m.Put(100, 0)
	assert.False(t, replaced)
	m.Put(7, 1)

	node, ok := m.Lookup(100)
	require.True(t, ok)
	assert.Equal(t, hnsw.NodeID(0), node)

	ext, ok := m.External(1)
	require.True(t, ok)
	assert.Equal(t, uint64(7), ext)

	_, ok = m.Lookup(5)
	assert.False(t, ok)
	assert.Equal(t, 2, m.Len())
}

func TestPutReplacesAndDropsStaleNode(t *testing.T) {
	m := New(4)

	m.Put(42, 3)
	prev, replaced := m.Put(42, 9)
	require.True(t, replaced)
	assert.Equal(t, hnsw.NodeID(3), prev)

	_, ok := m.External(3)
	assert.False(t, ok, "replaced node must not resolve")

	ext, ok := m.External(9)
	require.True(t, ok)
	assert.Equal(t, uint64(42), ext)
	assert.Equal(t, 1, m.Len())
}

func TestAllocateAndObserve(t *testing.T) {
	m := New(2)

	assert.Equal(t, uint64(0), m.Allocate())
	assert.Equal(t, uint64(1), m.Allocate())

	m.Put(10, 0)
	assert.Equal(t, uint64(11), m.NextID())
	assert.Equal(t, uint64(11), m.Allocate())

	m.Observe(3)
	assert.Equal(t, uint64(12), m.NextID())
}

func TestRangeSortedAndStoppable(t *testing.T) {
	m := New(4)
	for _, ext := range []uint64{30, 10, 20} {
		m.Put(ext, hnsw.NodeID(ext/10))
	}

	var seen []uint64
	m.Range(func(ext uint64, node hnsw.NodeID) bool {
		assert.Equal(t, hnsw.NodeID(ext/10), node)
		seen = append(seen, ext)
		return true
	})
	assert.Equal(t, []uint64{10, 20, 30}, seen)

	seen = seen[:0]
	m.Range(func(ext uint64, _ hnsw.NodeID) bool {
		seen = append(seen, ext)
		return false
	})
	assert.Equal(t, []uint64{10}, seen)
}

func TestConcurrentPut(t *testing.T) {
	m := New(8)

	const (
		workers = 8
		each    = 500
	)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				id := w*each + i
				m.Put(m.Allocate(), hnsw.NodeID(id))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*each, m.Len())
	assert.Equal(t, uint64(workers*each), m.NextID())

	for id := range workers * each {
		ext, ok := m.External(hnsw.NodeID(id))
		require.True(t, ok)
		node, ok := m.Lookup(ext)
		require.True(t, ok)
		assert.Equal(t, hnsw.NodeID(id), node)
	}
}

func TestPersistRoundTrip(t *testing.T) {
	m := New(4)
	for i := range 100 {
		m.Put(uint64(i*3), hnsw.NodeID(i))
	}
	m.Put(0, 100) // node 0 becomes stale
	m.Allocate()

	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	loaded, err := Load(bytes.NewReader(buf.Bytes()), 16, 101)
	require.NoError(t, err)

	assert.Equal(t, 16, loaded.Shards())
	assert.Equal(t, m.Len(), loaded.Len())
	assert.Equal(t, m.NextID(), loaded.NextID())

	_, ok := loaded.External(0)
	assert.False(t, ok)
	for i := 1; i < 100; i++ {
		node, ok := loaded.Lookup(uint64(i * 3))
		require.True(t, ok)
		assert.Equal(t, hnsw.NodeID(i), node)
	}
	node, ok := loaded.Lookup(0)
	require.True(t, ok)
	assert.Equal(t, hnsw.NodeID(100), node)
}

func TestLoadRejectsCorruption(t *testing.T) {
	m := New(4)
	for i := range 10 {
		m.Put(uint64(i), hnsw.NodeID(i))
	}

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	data := buf.Bytes()

	_, err = Load(bytes.NewReader(data), 4, 5)
	assert.ErrorIs(t, err, persistence.ErrCorrupted, "node count too small")

	_, err = Load(bytes.NewReader(data[:len(data)-7]), 4, 10)
	assert.ErrorIs(t, err, persistence.ErrCorrupted)

	flipped := bytes.Clone(data)
	flipped[len(flipped)-5] ^= 0x01
	_, err = Load(bytes.NewReader(flipped), 4, 1<<20)
	assert.ErrorIs(t, err, persistence.ErrCorrupted)

	wrongMagic := bytes.Clone(data)
	wrongMagic[1] ^= 0xFF
	_, err = Load(bytes.NewReader(wrongMagic), 4, 10)
	assert.ErrorIs(t, err, persistence.ErrInvalidMagic)
}
