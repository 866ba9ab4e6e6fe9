package hnsw

// Insert adds v to the graph and returns its NodeID. The vector is copied.
// len(v) must equal the graph dimension; callers validate it.
func (g *Graph) Insert(v []float32) NodeID {
	if id, ok := g.tryInsertFirst(v); ok {
		return id
	}

	level := g.randomLevel()
	id := g.appendVector(v, level)

	g.ensureLayers(level)
	// Bottom-up so a node on layer l is always on every layer below it.
	for l := 0; l <= level; l++ {
		g.layer(l).Add(id)
	}

	vec, _ := g.Vector(id)
	g.link(id, vec, level)

	// Publishing the new entry point is the last visible effect.
	g.promote(id, level)

	return id
}

// tryInsertFirst makes v the entry point of an empty graph at level 0.
func (g *Graph) tryInsertFirst(v []float32) (NodeID, bool) {
	g.epMu.RLock()
	hasEntry := g.hasEntry
	g.epMu.RUnlock()

	if hasEntry {
		return 0, false
	}

	g.epMu.Lock()
	defer g.epMu.Unlock()

	if g.hasEntry {
		return 0, false
	}

	id := g.appendVector(v, 0)
	g.ensureLayers(0)
	g.layer(0).Add(id)

	g.entryPoint = id
	g.maxLayer = 0
	g.hasEntry = true

	return id, true
}

// link connects id on every level from min(level, maxLayer) down to 0.
func (g *Graph) link(id NodeID, vec []float32, level int) {
	ep, maxLayer, _ := g.EntryPoint()

	sc := g.acquireSearchContext()
	defer g.releaseSearchContext(sc)

	curr := g.entryResult(vec, ep)
	curr = g.descend(sc, vec, curr, maxLayer, level)

	notSelf := func(n NodeID) bool { return n != id }
	entries := []Result{curr}

	for l := min(level, maxLayer); l >= 0; l-- {
		candidates := g.searchLayer(sc, vec, entries, g.opts.EFConstruction, l, notSelf)
		neighbors := g.selectNeighbors(candidates, g.capFor(l))
		g.connect(id, l, neighbors)

		if len(candidates) > 0 {
			entries = candidates
		}
	}
}

// connect links id and every neighbor in both directions on one level.
// A neighbor whose list overflows its cap is re-pruned.
func (g *Graph) connect(id NodeID, level int, neighbors []Result) {
	layer := g.layer(level)
	maxM := layer.MaxNeighbors()

	for _, n := range neighbors {
		adjID, adjN, unlock := layer.lockPair(id, n.ID)
		if adjID == nil {
			unlock()
			continue
		}

		if len(adjID.ids) < maxM && !containsID(adjID.ids, n.ID) {
			adjID.ids = append(adjID.ids, n.ID)
		}

		if !containsID(adjN.ids, id) {
			adjN.ids = append(adjN.ids, id)
			if len(adjN.ids) > maxM {
				adjN.ids = g.reprune(n.ID, adjN.ids, maxM)
			}
		}

		unlock()
	}
}

// promote raises the entry point when level tops the current hierarchy.
func (g *Graph) promote(id NodeID, level int) {
	g.epMu.Lock()
	defer g.epMu.Unlock()

	if level > g.maxLayer {
		g.entryPoint = id
		g.maxLayer = level
	}
}

func containsID(ids []NodeID, id NodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
