// Package mapping translates external ids to graph node ids and back.
//
// Both directions are partitioned into shards, each behind its own lock, so
// concurrent inserts only contend when they land on the same shard. Forward
// shards are chosen by the murmur3 hash of the external id, reverse shards by
// the node id.
package mapping

import (
	"encoding/binary"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/hnswdb/internal/hnsw"
	"github.com/spaolacci/murmur3"
)

// DefaultShards is the default number of shards per direction.
const DefaultShards = 16

type forwardShard struct {
	mu         sync.RWMutex
	byExternal map[uint64]hnsw.NodeID
}

type reverseShard struct {
	mu     sync.RWMutex
	byNode map[hnsw.NodeID]uint64
}

// Mappings is a concurrent bidirectional external id <-> NodeID map. It also
// hands out external ids for callers that do not bring their own.
type Mappings struct {
	forward []forwardShard
	reverse []reverseShard
	mask    uint64

	nextID atomic.Uint64
	count  atomic.Int64
}

// New creates mappings with the given shard count, rounded up to a power of
// two. Values below 1 select DefaultShards.
func New(shards int) *Mappings {
	if shards < 1 {
		shards = DefaultShards
	}
	n := 1 << bits.Len(uint(shards-1))

	m := &Mappings{
		forward: make([]forwardShard, n),
		reverse: make([]reverseShard, n),
		mask:    uint64(n - 1),
	}
	for i := range n {
		m.forward[i].byExternal = make(map[uint64]hnsw.NodeID)
		m.reverse[i].byNode = make(map[hnsw.NodeID]uint64)
	}
	return m
}

// Shards returns the number of shards per direction.
func (m *Mappings) Shards() int { return len(m.forward) }

func (m *Mappings) forwardShard(external uint64) *forwardShard {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], external)
	return &m.forward[murmur3.Sum64(buf[:])&m.mask]
}

func (m *Mappings) reverseShard(node hnsw.NodeID) *reverseShard {
	return &m.reverse[uint64(node)&m.mask]
}

// Put maps external to node. If external was mapped before, the previous node
// is returned with replaced set and loses its reverse entry.
func (m *Mappings) Put(external uint64, node hnsw.NodeID) (prev hnsw.NodeID, replaced bool) {
	fs := m.forwardShard(external)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	prev, replaced = fs.byExternal[external]
	fs.byExternal[external] = node

	if replaced {
		rs := m.reverseShard(prev)
		rs.mu.Lock()
		if rs.byNode[prev] == external {
			delete(rs.byNode, prev)
		}
		rs.mu.Unlock()
	} else {
		m.count.Add(1)
	}

	rs := m.reverseShard(node)
	rs.mu.Lock()
	rs.byNode[node] = external
	rs.mu.Unlock()

	m.Observe(external)

	return prev, replaced
}

// Lookup returns the node mapped to external.
func (m *Mappings) Lookup(external uint64) (hnsw.NodeID, bool) {
	fs := m.forwardShard(external)

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	node, ok := fs.byExternal[external]
	return node, ok
}

// External returns the external id of node. Nodes replaced by a later Put of
// the same external id are not found.
func (m *Mappings) External(node hnsw.NodeID) (uint64, bool) {
	rs := m.reverseShard(node)

	rs.mu.RLock()
	defer rs.mu.RUnlock()

	external, ok := rs.byNode[node]
	return external, ok
}

// Len returns the number of mapped external ids.
func (m *Mappings) Len() int {
	return int(m.count.Load())
}

// NextID returns the next id Allocate would hand out.
func (m *Mappings) NextID() uint64 {
	return m.nextID.Load()
}

// Allocate reserves a fresh external id.
func (m *Mappings) Allocate() uint64 {
	return m.nextID.Add(1) - 1
}

// Observe makes sure Allocate never returns external or anything below it.
func (m *Mappings) Observe(external uint64) {
	for {
		cur := m.nextID.Load()
		if external < cur || external == ^uint64(0) {
			return
		}
		if m.nextID.CompareAndSwap(cur, external+1) {
			return
		}
	}
}
