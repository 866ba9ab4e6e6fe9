package hnsw

import (
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/hnswdb/distance"
	"github.com/hupe1980/hnswdb/persistence"
)

// maxDumpDimension bounds the dimension accepted from a dump.
const maxDumpDimension = 1 << 16

// WriteTo writes the graph dump to w: header, parameters, vectors, node
// levels, per-layer adjacency and a CRC32C trailer. The graph must not be
// modified concurrently.
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	cw := persistence.NewChecksumWriter(w)

	if err := persistence.WriteHeader(cw, persistence.Header{
		Magic:   persistence.GraphMagic,
		Version: persistence.GraphVersion,
	}); err != nil {
		return cw.Count(), err
	}

	ep, maxLayer, hasEntry := g.EntryPoint()

	g.vecMu.RLock()
	vectors, levels := g.vectors, g.levels
	g.vecMu.RUnlock()

	bw := persistence.NewWriter(cw)
	bw.Uint32(uint32(g.opts.Dimension))
	bw.Uint32(uint32(g.opts.M))
	bw.Uint32(uint32(g.opts.EFConstruction))
	bw.Float32(g.opts.Alpha)
	bw.Uint64(g.rng.state.Load())
	bw.Uint32(uint32(len(levels)))

	if hasEntry {
		bw.Uint8(1)
	} else {
		bw.Uint8(0)
	}
	bw.Uint32(uint32(ep))
	bw.Uint32(uint32(maxLayer))

	bw.Float32s(vectors)
	bw.Bytes(levels)

	numLayers := g.numLayers()
	bw.Uint32(uint32(numLayers))

	var neighbors []uint32
	for l := range numLayers {
		layer := g.layer(l)
		ids := layer.NodeIDs()
		bw.Uint32(uint32(len(ids)))

		for _, id := range ids {
			neighbors = neighbors[:0]
			for _, n := range layer.Neighbors(id) {
				neighbors = append(neighbors, uint32(n))
			}
			bw.Uint32(uint32(id))
			bw.Uint32(uint32(len(neighbors)))
			bw.Uint32s(neighbors)
		}
	}

	if err := bw.Err(); err != nil {
		return cw.Count(), err
	}

	err := cw.WriteTrailer()
	return cw.Count(), err
}

// Load reads a graph dump written by WriteTo. Distances are computed by
// engine, which must match the metric the graph was built with. Every
// structural invariant is checked; a dump that fails any check is rejected
// with persistence.ErrCorrupted.
func Load(r io.Reader, engine distance.Engine) (*Graph, error) {
	cr := persistence.NewChecksumReader(r)

	if _, err := persistence.ReadHeader(cr, persistence.GraphMagic, persistence.GraphVersion); err != nil {
		return nil, err
	}

	br := persistence.NewReader(cr)
	dim := int(br.Uint32())
	m := int(br.Uint32())
	efConstruction := int(br.Uint32())
	alpha := br.Float32()
	rngState := br.Uint64()
	count := int(br.Uint32())
	hasEntry := br.Uint8()
	ep := NodeID(br.Uint32())
	maxLayer := int(br.Uint32())

	if err := br.Err(); err != nil {
		return nil, readErr("parameters", err)
	}

	if dim <= 0 || dim > maxDumpDimension {
		return nil, persistence.Corruptf("graph dimension %d", dim)
	}
	if hasEntry > 1 {
		return nil, persistence.Corruptf("entry flag %d", hasEntry)
	}
	if (hasEntry == 1) != (count > 0) {
		return nil, persistence.Corruptf("entry flag %d with %d nodes", hasEntry, count)
	}
	if maxLayer > MaxLevel {
		return nil, persistence.Corruptf("max layer %d exceeds %d", maxLayer, MaxLevel)
	}

	g, err := New(engine, func(o *Options) {
		o.Dimension = dim
		o.M = m
		o.EFConstruction = efConstruction
		o.Alpha = alpha
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", persistence.ErrCorrupted, err)
	}
	g.rng.seed(rngState)

	if err := g.readNodes(br, count); err != nil {
		return nil, err
	}

	if count > 0 {
		if int(ep) >= count {
			return nil, persistence.Corruptf("entry point %d out of range (count %d)", ep, count)
		}
		if int(g.levels[ep]) != maxLayer {
			return nil, persistence.Corruptf("entry point level %d, max layer %d", g.levels[ep], maxLayer)
		}
		g.entryPoint, g.maxLayer, g.hasEntry = ep, maxLayer, true
	}

	if err := g.readLayers(br, count); err != nil {
		return nil, err
	}

	if err := cr.VerifyTrailer(); err != nil {
		return nil, fmt.Errorf("hnsw: %w", err)
	}

	return g, nil
}

func (g *Graph) readNodes(br *persistence.Reader, count int) error {
	dim := g.opts.Dimension

	// Grow in bounded chunks so a corrupt count fails on EOF instead of
	// allocating up front.
	const chunk = 1 << 20
	total := count * dim
	g.vectors = make([]float32, 0, min(total, chunk))
	for len(g.vectors) < total {
		n := min(total-len(g.vectors), chunk)
		start := len(g.vectors)
		g.vectors = append(g.vectors, make([]float32, n)...)
		br.Float32sInto(g.vectors[start:])
		if err := br.Err(); err != nil {
			return readErr("vectors", err)
		}
	}

	g.levels = make([]uint8, 0, min(count, chunk))
	for range count {
		lvl := br.Uint8()
		if err := br.Err(); err != nil {
			return readErr("levels", err)
		}
		if lvl > MaxLevel {
			return persistence.Corruptf("node level %d exceeds %d", lvl, MaxLevel)
		}
		g.levels = append(g.levels, lvl)
	}

	for _, v := range g.vectors {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return persistence.Corruptf("non-finite vector component")
		}
	}

	g.count.Store(uint32(count))
	return nil
}

func (g *Graph) readLayers(br *persistence.Reader, count int) error {
	numLayers := int(br.Uint32())
	if err := br.Err(); err != nil {
		return readErr("layer count", err)
	}

	want := 0
	if count > 0 {
		want = g.maxLayer + 1
	}
	if numLayers != want {
		return persistence.Corruptf("%d layers, want %d", numLayers, want)
	}
	g.ensureLayers(numLayers - 1)

	onLevel := make([]int, numLayers)
	for _, lvl := range g.levels {
		for l := 0; l <= int(lvl) && l < numLayers; l++ {
			onLevel[l]++
		}
	}

	var neighbors []uint32
	for l := range numLayers {
		layer := g.layers[l]

		numNodes := int(br.Uint32())
		if err := br.Err(); err != nil {
			return readErr(fmt.Sprintf("layer %d", l), err)
		}
		if numNodes != onLevel[l] {
			return persistence.Corruptf("layer %d holds %d nodes, want %d", l, numNodes, onLevel[l])
		}

		for range numNodes {
			id := br.Uint32()
			degree := int(br.Uint32())
			if err := br.Err(); err != nil {
				return readErr(fmt.Sprintf("layer %d", l), err)
			}
			if int(id) >= count || int(g.levels[id]) < l {
				return persistence.Corruptf("node %d does not belong on layer %d", id, l)
			}
			if layer.Contains(NodeID(id)) {
				return persistence.Corruptf("node %d listed twice on layer %d", id, l)
			}
			if degree > layer.MaxNeighbors() {
				return persistence.Corruptf("node %d has %d neighbors on layer %d, cap %d", id, degree, l, layer.MaxNeighbors())
			}

			neighbors = append(neighbors[:0], make([]uint32, degree)...)
			br.Uint32sInto(neighbors)
			if err := br.Err(); err != nil {
				return readErr(fmt.Sprintf("layer %d", l), err)
			}

			ids := make([]NodeID, degree)
			for i, n := range neighbors {
				if int(n) >= count || int(g.levels[n]) < l || n == id {
					return persistence.Corruptf("node %d has invalid neighbor %d on layer %d", id, n, l)
				}
				ids[i] = NodeID(n)
			}
			layer.SetNeighbors(NodeID(id), ids)
		}
	}

	return nil
}

// readErr marks a failed read as corruption while keeping the cause.
func readErr(what string, err error) error {
	return fmt.Errorf("hnsw: %w: read %s: %w", persistence.ErrCorrupted, what, err)
}
