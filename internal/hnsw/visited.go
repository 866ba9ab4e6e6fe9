package hnsw

// visitedSet tracks visited nodes using a bitset and a dirty list for fast reset.
type visitedSet struct {
	bits  []uint64
	dirty []NodeID
}

func newVisitedSet(capacity int) *visitedSet {
	return &visitedSet{
		bits:  make([]uint64, (capacity+63)/64),
		dirty: make([]NodeID, 0, 128),
	}
}

// Visit marks id as visited and reports whether it was new.
func (v *visitedSet) Visit(id NodeID) bool {
	wordIdx := int(id >> 6)
	bitMask := uint64(1) << (id & 63)

	if wordIdx >= len(v.bits) {
		v.grow(wordIdx + 1)
	}

	if v.bits[wordIdx]&bitMask != 0 {
		return false
	}
	v.bits[wordIdx] |= bitMask
	v.dirty = append(v.dirty, id)
	return true
}

// Reset clears the nodes visited in the current session.
func (v *visitedSet) Reset() {
	for _, id := range v.dirty {
		v.bits[id>>6] &^= uint64(1) << (id & 63)
	}
	v.dirty = v.dirty[:0]
}

func (v *visitedSet) grow(newLen int) {
	newCap := max(len(v.bits)*2, newLen)
	newBits := make([]uint64, newCap)
	copy(newBits, v.bits)
	v.bits = newBits
}

// searchContext is the pooled per-call scratch space of a search.
type searchContext struct {
	visited    *visitedSet
	candidates *priorityQueue // min heap
	results    *priorityQueue // max heap, bounded by ef

	ids   []NodeID
	vecs  [][]float32
	dists []float32
}

func newSearchContext(capacity int) *searchContext {
	return &searchContext{
		visited:    newVisitedSet(capacity),
		candidates: newPriorityQueue(false, 64),
		results:    newPriorityQueue(true, 64),
	}
}

func (sc *searchContext) reset() {
	sc.visited.Reset()
	sc.candidates.Reset()
	sc.results.Reset()
}

func (g *Graph) acquireSearchContext() *searchContext {
	sc := g.searchPool.Get().(*searchContext)
	sc.reset()
	return sc
}

func (g *Graph) releaseSearchContext(sc *searchContext) {
	clear(sc.vecs)
	sc.vecs = sc.vecs[:0]
	g.searchPool.Put(sc)
}
