package hnsw

import "slices"

// selectNeighbors picks up to m neighbors from candidates (closest first).
// A candidate is rejected when an already selected neighbor is closer to it
// than its distance to the query divided by Alpha.
func (g *Graph) selectNeighbors(candidates []Result, m int) []Result {
	if len(candidates) == 0 {
		return nil
	}

	alpha := g.opts.Alpha
	selected := make([]Result, 0, min(m, len(candidates)))
	selectedVecs := make([][]float32, 0, cap(selected))

	for _, c := range candidates {
		if len(selected) >= m {
			break
		}

		cv, ok := g.Vector(c.ID)
		if !ok {
			continue
		}

		keep := true
		for _, sv := range selectedVecs {
			if g.engine.Distance(sv, cv) < c.Distance/alpha {
				keep = false
				break
			}
		}

		if keep {
			selected = append(selected, c)
			selectedVecs = append(selectedVecs, cv)
		}
	}

	return selected
}

// reprune shrinks the neighbor list of id to at most maxM entries using the
// same diversification rule, measured from id. ids is reused for the result.
func (g *Graph) reprune(id NodeID, ids []NodeID, maxM int) []NodeID {
	base, ok := g.Vector(id)
	if !ok {
		return ids[:maxM]
	}

	vecs := g.gatherVectors(ids, make([][]float32, 0, len(ids)))
	dists := g.engine.BatchDistance(base, vecs, make([]float32, 0, len(ids)))

	candidates := make([]Result, len(ids))
	for i, n := range ids {
		candidates[i] = Result{ID: n, Distance: dists[i]}
	}
	slices.SortFunc(candidates, func(a, b Result) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		default:
			return 0
		}
	})

	selected := g.selectNeighbors(candidates, maxM)

	ids = ids[:0]
	for _, s := range selected {
		ids = append(ids, s.ID)
	}
	return ids
}
