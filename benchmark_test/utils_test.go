package hnswdb_bench_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/hnswdb"
	"github.com/hupe1980/hnswdb/distance"
	"github.com/hupe1980/hnswdb/testutil"
)

func formatDim(dim int) string { return fmt.Sprintf("dim=%d", dim) }

func formatCount(n int) string {
	switch {
	case n >= 1_000_000 && n%1_000_000 == 0:
		return fmt.Sprintf("n=%dM", n/1_000_000)
	case n >= 1_000 && n%1_000 == 0:
		return fmt.Sprintf("n=%dK", n/1_000)
	default:
		return fmt.Sprintf("n=%d", n)
	}
}

// setupIndex builds an index over size random unit vectors. Ids equal the
// vector positions.
func setupIndex(b *testing.B, dim, size int, rng *testutil.RNG, optFns ...hnswdb.Option) (*hnswdb.Index, [][]float32) {
	b.Helper()

	idx, err := hnswdb.New(dim, distance.Euclidean, optFns...)
	if err != nil {
		b.Fatal(err)
	}

	vectors := rng.UnitVectors(size, dim)
	if _, err := idx.BatchInsert(context.Background(), vectors); err != nil {
		b.Fatal(err)
	}
	return idx, vectors
}

func recallOf(results []hnswdb.SearchResult, truth []testutil.SearchResult) float64 {
	approx := make([]testutil.SearchResult, len(results))
	for i, r := range results {
		approx[i] = testutil.SearchResult{ID: r.ID, Distance: r.Distance}
	}
	return testutil.ComputeRecall(truth, approx)
}
