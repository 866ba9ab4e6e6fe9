package hnsw

// Search returns up to k nodes closest to query, closest first. ef is raised
// to k when smaller. An empty graph or k <= 0 yields no results.
func (g *Graph) Search(query []float32, k, ef int) []Result {
	return g.search(query, k, ef, 1, nil)
}

// SearchFiltered is Search where only nodes passing accept enter the result
// set. Rejected nodes are still traversed.
func (g *Graph) SearchFiltered(query []float32, k, ef int, accept func(NodeID) bool) []Result {
	return g.search(query, k, ef, 1, accept)
}

// SearchMultiEntry seeds the level-0 beam with up to probes-1 random nodes in
// addition to the greedy entry. Probes are skipped when the graph holds no
// more nodes than the beam width.
func (g *Graph) SearchMultiEntry(query []float32, k, ef, probes int, accept func(NodeID) bool) []Result {
	return g.search(query, k, ef, probes, accept)
}

func (g *Graph) search(query []float32, k, ef, probes int, accept func(NodeID) bool) []Result {
	if k <= 0 {
		return nil
	}

	ep, maxLayer, ok := g.EntryPoint()
	if !ok {
		return nil
	}

	ef = max(ef, k)

	sc := g.acquireSearchContext()
	defer g.releaseSearchContext(sc)

	curr := g.entryResult(query, ep)
	curr = g.descend(sc, query, curr, maxLayer, 0)

	entries := []Result{curr}
	if n := g.Len(); probes > 1 && n > ef {
		for range probes - 1 {
			entries = append(entries, g.entryResult(query, NodeID(g.probeRNG.intn(n))))
		}
	}

	results := g.searchLayer(sc, query, entries, ef, 0, accept)
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func (g *Graph) entryResult(query []float32, id NodeID) Result {
	v, _ := g.Vector(id)
	return Result{ID: id, Distance: g.engine.Distance(query, v)}
}

// descend runs greedy single-best search from level from down to level to+1.
func (g *Graph) descend(sc *searchContext, query []float32, curr Result, from, to int) Result {
	for level := from; level > to; level-- {
		curr = g.searchLayerSingle(sc, query, curr, level)
	}
	return curr
}

// searchLayerSingle moves greedily to strictly closer neighbors until none is.
func (g *Graph) searchLayerSingle(sc *searchContext, query []float32, curr Result, level int) Result {
	layer := g.layer(level)
	if layer == nil {
		return curr
	}

	for changed := true; changed; {
		changed = false

		sc.ids = layer.appendNeighbors(sc.ids[:0], curr.ID)
		if len(sc.ids) == 0 {
			break
		}
		sc.vecs = g.gatherVectors(sc.ids, sc.vecs[:0])
		sc.dists = g.engine.BatchDistance(query, sc.vecs, sc.dists)

		for i, id := range sc.ids {
			if next := (Result{ID: id, Distance: sc.dists[i]}); less(next, curr) {
				curr = next
				changed = true
			}
		}
	}
	return curr
}

// searchLayer is the bounded beam search on one layer. It returns at most ef
// accepted nodes sorted closest first.
func (g *Graph) searchLayer(sc *searchContext, query []float32, entries []Result, ef, level int, accept func(NodeID) bool) []Result {
	layer := g.layer(level)
	if layer == nil {
		return nil
	}

	sc.reset()
	candidates := sc.candidates
	results := sc.results

	for _, e := range entries {
		if !sc.visited.Visit(e.ID) {
			continue
		}
		// Entries always seed navigation, even when filtered out of results.
		candidates.Push(e)
		if accept == nil || accept(e.ID) {
			results.PushBounded(e, ef)
		}
	}

	for candidates.Len() > 0 {
		curr, _ := candidates.Pop()

		if results.Len() >= ef {
			if worst, _ := results.Top(); less(worst, curr) {
				break
			}
		}

		sc.ids = layer.appendNeighbors(sc.ids[:0], curr.ID)
		n := 0
		for _, id := range sc.ids {
			if sc.visited.Visit(id) {
				sc.ids[n] = id
				n++
			}
		}
		if n == 0 {
			continue
		}
		sc.ids = sc.ids[:n]

		sc.vecs = g.gatherVectors(sc.ids, sc.vecs[:0])
		sc.dists = g.engine.BatchDistance(query, sc.vecs, sc.dists)

		for i, id := range sc.ids {
			next := Result{ID: id, Distance: sc.dists[i]}

			// Once ef results are held, skip anything not better than the worst.
			if results.Len() >= ef {
				if worst, _ := results.Top(); !less(next, worst) {
					continue
				}
			}

			candidates.Push(next)
			if accept == nil || accept(id) {
				results.PushBounded(next, ef)
			}
		}
	}

	return results.drainAscending()
}
