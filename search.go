package hnswdb

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/hnswdb/internal/hnsw"
)

// SearchResult is one neighbor of a query.
type SearchResult struct {
	// ID is the external id the vector was inserted under.
	ID uint64
	// Distance to the query; lower is closer.
	Distance float32
}

// SearchOptions tunes a single search.
type SearchOptions struct {
	// EF is the beam width. Values <= 0 select the index default.
	EF int
	// Probes is the number of level-0 entry points. Values > 1 add random
	// entries next to the greedy one.
	Probes int
	// Filter restricts results to the given external ids. Nil accepts all.
	Filter *roaring64.Bitmap
}

// Search returns up to k vectors closest to query, closest first. ef <= 0
// selects the index default; ef below k is raised to k. An empty index or
// k <= 0 returns an empty result.
func (idx *Index) Search(ctx context.Context, query []float32, k, ef int) ([]SearchResult, error) {
	return idx.SearchWithOptions(ctx, query, k, func(o *SearchOptions) {
		o.EF = ef
	})
}

// SearchMultiEntry is Search with probes level-0 entry points. It trades
// latency for recall on queries the greedy descent handles poorly.
func (idx *Index) SearchMultiEntry(ctx context.Context, query []float32, k, ef, probes int) ([]SearchResult, error) {
	return idx.SearchWithOptions(ctx, query, k, func(o *SearchOptions) {
		o.EF = ef
		o.Probes = probes
	})
}

// SearchWithOptions runs a search configured by optFns.
//
// Example:
//
//	allow := roaring64.BitmapOf(3, 7, 42)
//	res, err := idx.SearchWithOptions(ctx, q, 10, func(o *hnswdb.SearchOptions) {
//	    o.EF = 128
//	    o.Filter = allow
//	})
func (idx *Index) SearchWithOptions(ctx context.Context, query []float32, k int, optFns ...func(o *SearchOptions)) ([]SearchResult, error) {
	start := time.Now()

	opts := SearchOptions{Probes: 1}
	for _, fn := range optFns {
		fn(&opts)
	}

	res, err := idx.search(ctx, query, k, opts)

	idx.metrics.RecordSearch(k, time.Since(start), err)
	idx.logger.LogSearch(ctx, k, len(res), err)

	return res, err
}

func (idx *Index) search(ctx context.Context, query []float32, k int, opts SearchOptions) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDimension(idx.dim, query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []SearchResult{}, nil
	}

	ef := opts.EF
	if ef <= 0 {
		ef = idx.opts.efSearch
	}
	ef = max(ef, k)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	accept := idx.acceptFunc(opts.Filter)

	// With stored vectors the whole beam is kept and re-ranked exactly.
	want := k
	if idx.store != nil {
		want = ef
	}

	var hits []hnsw.Result
	if opts.Probes > 1 {
		hits = idx.graph.SearchMultiEntry(query, want, ef, opts.Probes, accept)
	} else {
		hits = idx.graph.SearchFiltered(query, want, ef, accept)
	}
	if idx.store != nil {
		idx.rerankHits(query, hits)
	}
	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		ext, ok := idx.mappings.External(h.ID)
		if !ok {
			// Replaced concurrently after the beam accepted it.
			continue
		}
		results = append(results, SearchResult{ID: ext, Distance: h.Distance})
	}
	return results, nil
}

// acceptFunc admits nodes that are mapped to an external id and, with a
// filter, whose id is in the filter.
func (idx *Index) acceptFunc(filter *roaring64.Bitmap) func(hnsw.NodeID) bool {
	if filter == nil {
		return func(n hnsw.NodeID) bool {
			_, ok := idx.mappings.External(n)
			return ok
		}
	}
	return func(n hnsw.NodeID) bool {
		ext, ok := idx.mappings.External(n)
		return ok && filter.Contains(ext)
	}
}

// rerankHits replaces graph distances with reference distances over the
// stored vectors and restores (distance, node) order.
func (idx *Index) rerankHits(query []float32, hits []hnsw.Result) {
	for i := range hits {
		if v, ok := idx.store.Get(hits[i].ID); ok {
			hits[i].Distance = idx.rerank.Distance(query, v)
		}
	}
	slices.SortFunc(hits, func(a, b hnsw.Result) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Vector returns a copy of the vector stored under id.
func (idx *Index) Vector(id uint64) ([]float32, error) {
	if idx.store == nil {
		return nil, ErrNoVectorStorage
	}

	node, ok := idx.mappings.Lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	v, ok := idx.store.Get(node)
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

// Contains reports whether id is present.
func (idx *Index) Contains(id uint64) bool {
	_, ok := idx.mappings.Lookup(id)
	return ok
}
