package hnsw

import (
	"fmt"
)

// LevelStats describes one layer.
type LevelStats struct {
	Level     int
	Nodes     int
	Edges     int
	AvgDegree float64
	MaxDegree int
}

// Stats describes the graph.
type Stats struct {
	Nodes          int
	MaxLayer       int
	EntryPoint     NodeID
	M              int
	M0             int
	EFConstruction int
	Alpha          float32
	Levels         []LevelStats
}

// Stats returns statistics about the graph.
func (g *Graph) Stats() Stats {
	ep, maxLayer, _ := g.EntryPoint()

	s := Stats{
		Nodes:          g.Len(),
		MaxLayer:       maxLayer,
		EntryPoint:     ep,
		M:              g.maxConnections,
		M0:             g.maxConnections0,
		EFConstruction: g.opts.EFConstruction,
		Alpha:          g.opts.Alpha,
	}

	for l := range g.numLayers() {
		layer := g.layer(l)
		degrees := layer.degrees()

		ls := LevelStats{Level: l, Nodes: len(degrees)}
		for _, d := range degrees {
			ls.Edges += d
			ls.MaxDegree = max(ls.MaxDegree, d)
		}
		if ls.Nodes > 0 {
			ls.AvgDegree = float64(ls.Edges) / float64(ls.Nodes)
		}
		s.Levels = append(s.Levels, ls)
	}

	return s
}

// Validate checks the structural invariants of a quiescent graph: every node
// is on layer 0 and on exactly the layers up to its level, neighbor lists
// respect their caps, contain no self loops or duplicates, and only point to
// nodes on the same layer. With more than one node no layer-0 list is empty.
// The entry point sits on the top layer.
func (g *Graph) Validate() error {
	ep, maxLayer, ok := g.EntryPoint()
	count := g.Len()

	if !ok {
		if count != 0 {
			return fmt.Errorf("hnsw: %d nodes but no entry point", count)
		}
		return nil
	}

	if int(ep) >= count {
		return fmt.Errorf("hnsw: entry point %d out of range (count %d)", ep, count)
	}
	if epLevel, _ := g.Level(ep); epLevel != maxLayer {
		return fmt.Errorf("hnsw: entry point level %d, max layer %d", epLevel, maxLayer)
	}
	if n := g.numLayers(); n != maxLayer+1 {
		return fmt.Errorf("hnsw: %d layers allocated, max layer %d", n, maxLayer)
	}

	for l := 0; l <= maxLayer; l++ {
		layer := g.layer(l)
		ids := layer.NodeIDs()

		expected := 0
		for id := range count {
			if lvl, _ := g.Level(NodeID(id)); lvl >= l {
				expected++
			}
		}
		if len(ids) != expected {
			return fmt.Errorf("hnsw: layer %d holds %d nodes, want %d", l, len(ids), expected)
		}

		for _, id := range ids {
			lvl, found := g.Level(id)
			if !found || lvl < l {
				return fmt.Errorf("hnsw: node %d on layer %d above its level %d", id, l, lvl)
			}

			neighbors := layer.Neighbors(id)
			if l == 0 && count > 1 && len(neighbors) == 0 {
				return fmt.Errorf("hnsw: node %d has no neighbors on layer 0", id)
			}
			if len(neighbors) > layer.MaxNeighbors() {
				return fmt.Errorf("hnsw: node %d has %d neighbors on layer %d, cap %d", id, len(neighbors), l, layer.MaxNeighbors())
			}

			seen := make(map[NodeID]struct{}, len(neighbors))
			for _, n := range neighbors {
				if n == id {
					return fmt.Errorf("hnsw: node %d links to itself on layer %d", id, l)
				}
				if _, dup := seen[n]; dup {
					return fmt.Errorf("hnsw: node %d lists %d twice on layer %d", id, n, l)
				}
				seen[n] = struct{}{}
				if !layer.Contains(n) {
					return fmt.Errorf("hnsw: node %d links to %d which is not on layer %d", id, n, l)
				}
			}
		}
	}

	return nil
}
