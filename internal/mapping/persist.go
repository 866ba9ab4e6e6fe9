package mapping

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/hupe1980/hnswdb/internal/hnsw"
	"github.com/hupe1980/hnswdb/persistence"
)

type pair struct {
	external uint64
	node     hnsw.NodeID
}

func (m *Mappings) pairs() []pair {
	out := make([]pair, 0, m.Len())
	for i := range m.forward {
		fs := &m.forward[i]
		fs.mu.RLock()
		for ext, node := range fs.byExternal {
			out = append(out, pair{external: ext, node: node})
		}
		fs.mu.RUnlock()
	}

	slices.SortFunc(out, func(a, b pair) int { return cmp.Compare(a.external, b.external) })
	return out
}

// Range calls fn for every live pair in ascending external id order until fn
// returns false.
func (m *Mappings) Range(fn func(external uint64, node hnsw.NodeID) bool) {
	for _, p := range m.pairs() {
		if !fn(p.external, p.node) {
			return
		}
	}
}

// WriteTo writes the mappings file: header, next id, sorted pairs and a
// CRC32C trailer. Only live pairs are written; replaced nodes are dropped.
func (m *Mappings) WriteTo(w io.Writer) (int64, error) {
	cw := persistence.NewChecksumWriter(w)

	if err := persistence.WriteHeader(cw, persistence.Header{
		Magic:   persistence.MappingsMagic,
		Version: persistence.MappingsVersion,
	}); err != nil {
		return cw.Count(), err
	}

	pairs := m.pairs()

	bw := persistence.NewWriter(cw)
	bw.Uint64(m.NextID())
	bw.Uint64(uint64(len(pairs)))
	for _, p := range pairs {
		bw.Uint64(p.external)
		bw.Uint32(uint32(p.node))
	}
	if err := bw.Err(); err != nil {
		return cw.Count(), err
	}

	err := cw.WriteTrailer()
	return cw.Count(), err
}

// Load reads a mappings file into new mappings with the given shard count.
// Every node id must be below nodeCount and appear at most once.
func Load(r io.Reader, shards, nodeCount int) (*Mappings, error) {
	cr := persistence.NewChecksumReader(r)

	if _, err := persistence.ReadHeader(cr, persistence.MappingsMagic, persistence.MappingsVersion); err != nil {
		return nil, err
	}

	br := persistence.NewReader(cr)
	nextID := br.Uint64()
	count := br.Uint64()
	if err := br.Err(); err != nil {
		return nil, readErr(err)
	}
	if count > uint64(nodeCount) {
		return nil, persistence.Corruptf("%d mappings for %d nodes", count, nodeCount)
	}

	m := New(shards)

	var last uint64
	for i := range count {
		external := br.Uint64()
		node := hnsw.NodeID(br.Uint32())
		if err := br.Err(); err != nil {
			return nil, readErr(err)
		}

		if i > 0 && external <= last {
			return nil, persistence.Corruptf("external ids not strictly ascending at %d", external)
		}
		last = external

		if int(node) >= nodeCount {
			return nil, persistence.Corruptf("node %d out of range (count %d)", node, nodeCount)
		}
		if _, dup := m.External(node); dup {
			return nil, persistence.Corruptf("node %d mapped twice", node)
		}
		m.Put(external, node)
	}

	if err := cr.VerifyTrailer(); err != nil {
		return nil, fmt.Errorf("mapping: %w", err)
	}

	if nextID < m.NextID() {
		return nil, persistence.Corruptf("next id %d below highest mapped id", nextID)
	}
	m.nextID.Store(nextID)

	return m, nil
}

func readErr(err error) error {
	return fmt.Errorf("mapping: %w: read: %w", persistence.ErrCorrupted, err)
}
