package hnsw

import (
	"slices"
	"sync"
)

// adjacency is the neighbor list of one node on one layer.
type adjacency struct {
	mu  sync.RWMutex
	ids []NodeID
}

// Layer holds the adjacency lists of every node whose level is at least the
// layer's level.
type Layer struct {
	level        int
	maxNeighbors int

	mu    sync.RWMutex
	nodes map[NodeID]*adjacency
}

func newLayer(level, maxNeighbors int) *Layer {
	return &Layer{
		level:        level,
		maxNeighbors: maxNeighbors,
		nodes:        make(map[NodeID]*adjacency),
	}
}

// Level returns the layer's level.
func (l *Layer) Level() int { return l.level }

// MaxNeighbors returns the per-node neighbor cap.
func (l *Layer) MaxNeighbors() int { return l.maxNeighbors }

// Add registers id with an empty neighbor list. Adding a present node is a no-op.
func (l *Layer) Add(id NodeID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.nodes[id]; !ok {
		l.nodes[id] = &adjacency{ids: make([]NodeID, 0, l.maxNeighbors)}
	}
}

// Contains reports whether id is on this layer.
func (l *Layer) Contains(id NodeID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.nodes[id]
	return ok
}

// Len returns the number of nodes on the layer.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.nodes)
}

// NodeIDs returns the ids on the layer in ascending order.
func (l *Layer) NodeIDs() []NodeID {
	l.mu.RLock()
	ids := make([]NodeID, 0, len(l.nodes))
	for id := range l.nodes {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Neighbors returns a copy of the neighbor list of id.
func (l *Layer) Neighbors(id NodeID) []NodeID {
	return l.appendNeighbors(nil, id)
}

// appendNeighbors appends the neighbors of id to dst.
func (l *Layer) appendNeighbors(dst []NodeID, id NodeID) []NodeID {
	adj := l.get(id)
	if adj == nil {
		return dst
	}

	adj.mu.RLock()
	dst = append(dst, adj.ids...)
	adj.mu.RUnlock()

	return dst
}

// SetNeighbors replaces the neighbor list of id, truncated to the layer cap.
// The node is added if it is not present.
func (l *Layer) SetNeighbors(id NodeID, neighbors []NodeID) {
	adj := l.getOrAdd(id)

	adj.mu.Lock()
	adj.ids = append(adj.ids[:0], neighbors[:min(len(neighbors), l.maxNeighbors)]...)
	adj.mu.Unlock()
}

func (l *Layer) get(id NodeID) *adjacency {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.nodes[id]
}

func (l *Layer) getOrAdd(id NodeID) *adjacency {
	if adj := l.get(id); adj != nil {
		return adj
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	adj, ok := l.nodes[id]
	if !ok {
		adj = &adjacency{ids: make([]NodeID, 0, l.maxNeighbors)}
		l.nodes[id] = adj
	}
	return adj
}

// lockPair write-locks the adjacency lists of a and b in ascending NodeID
// order and returns them in argument order with an unlock function. Both
// nodes must be on the layer.
func (l *Layer) lockPair(a, b NodeID) (adjA, adjB *adjacency, unlock func()) {
	adjA, adjB = l.get(a), l.get(b)
	if adjA == nil || adjB == nil {
		return nil, nil, func() {}
	}

	if a == b {
		adjA.mu.Lock()
		return adjA, adjB, adjA.mu.Unlock
	}

	first, second := adjA, adjB
	if b < a {
		first, second = adjB, adjA
	}
	first.mu.Lock()
	second.mu.Lock()

	return adjA, adjB, func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// degrees returns the neighbor count of every node on the layer.
func (l *Layer) degrees() []int {
	l.mu.RLock()
	adjs := make([]*adjacency, 0, len(l.nodes))
	for _, adj := range l.nodes {
		adjs = append(adjs, adj)
	}
	l.mu.RUnlock()

	out := make([]int, len(adjs))
	for i, adj := range adjs {
		adj.mu.RLock()
		out[i] = len(adj.ids)
		adj.mu.RUnlock()
	}
	return out
}
