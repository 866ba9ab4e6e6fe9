package hnswdb_bench_test

import (
	"context"
	"testing"

	"github.com/hupe1980/hnswdb"
	"github.com/hupe1980/hnswdb/distance"
	"github.com/hupe1980/hnswdb/testutil"
)

// BenchmarkInsert benchmarks single vector insertion.
func BenchmarkInsert(b *testing.B) {
	dimensions := []int{128, 384, 768}

	for _, dim := range dimensions {
		b.Run(formatDim(dim), func(b *testing.B) {
			idx, err := hnswdb.New(dim, distance.Euclidean)
			if err != nil {
				b.Fatal(err)
			}

			rng := testutil.NewRNG(42)
			ctx := context.Background()
			b.ResetTimer()

			for b.Loop() {
				if _, err := idx.Insert(ctx, rng.UnitVector(dim)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkBatchInsert benchmarks parallel batch insertion.
func BenchmarkBatchInsert(b *testing.B) {
	batchSizes := []int{10, 100, 1000}
	dim := 384

	for _, batchSize := range batchSizes {
		b.Run(formatCount(batchSize), func(b *testing.B) {
			idx, err := hnswdb.NewInsertOptimized(dim, distance.Euclidean)
			if err != nil {
				b.Fatal(err)
			}

			rng := testutil.NewRNG(42)
			ctx := context.Background()
			b.ResetTimer()

			for b.Loop() {
				b.StopTimer()
				batch := rng.UnitVectors(batchSize, dim)
				b.StartTimer()

				if _, err := idx.BatchInsert(ctx, batch); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(batchSize), "vectors/op")
		})
	}
}

// BenchmarkSearch benchmarks KNN search and reports recall against brute force.
func BenchmarkSearch(b *testing.B) {
	sizes := []int{1000, 10000}
	dim := 128
	k := 10

	for _, size := range sizes {
		b.Run(formatCount(size), func(b *testing.B) {
			rng := testutil.NewRNG(42)
			idx, vectors := setupIndex(b, dim, size, rng)

			query := rng.UnitVector(dim)
			ctx := context.Background()

			truth := testutil.BruteForceSearch(distance.Reference(distance.Euclidean), vectors, query, k)
			res, _ := idx.Search(ctx, query, k, 0)
			recall := recallOf(res, truth)

			b.ResetTimer()
			for b.Loop() {
				if _, err := idx.Search(ctx, query, k, 0); err != nil {
					b.Fatal(err)
				}
			}

			b.ReportMetric(float64(size), "vectors")
			b.ReportMetric(recall*100, "recall%")
		})
	}
}

// BenchmarkSearchEfTuning benchmarks search with different ef values.
func BenchmarkSearchEfTuning(b *testing.B) {
	efValues := []int{16, 32, 64, 128, 256}
	dim := 128
	size := 10000
	k := 10

	rng := testutil.NewRNG(42)
	idx, vectors := setupIndex(b, dim, size, rng)
	queries := rng.UnitVectors(20, dim)

	ref := distance.Reference(distance.Euclidean)
	truths := make([][]testutil.SearchResult, len(queries))
	for i, q := range queries {
		truths[i] = testutil.BruteForceSearch(ref, vectors, q, k)
	}

	ctx := context.Background()
	for _, ef := range efValues {
		b.Run("ef="+itoa(ef), func(b *testing.B) {
			var recall float64
			for i, q := range queries {
				res, _ := idx.Search(ctx, q, k, ef)
				recall += recallOf(res, truths[i])
			}
			recall /= float64(len(queries))

			b.ResetTimer()
			i := 0
			for b.Loop() {
				if _, err := idx.Search(ctx, queries[i%len(queries)], k, ef); err != nil {
					b.Fatal(err)
				}
				i++
			}
			b.ReportMetric(recall*100, "recall%")
		})
	}
}

// BenchmarkSearchMultiEntry compares single and multi-entry probes.
func BenchmarkSearchMultiEntry(b *testing.B) {
	dim := 128
	rng := testutil.NewRNG(7)
	idx, _ := setupIndex(b, dim, 10000, rng)
	query := rng.UnitVector(dim)
	ctx := context.Background()

	for _, probes := range []int{1, 4, 8} {
		b.Run("probes="+itoa(probes), func(b *testing.B) {
			for b.Loop() {
				if _, err := idx.SearchMultiEntry(ctx, query, 10, 64, probes); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkParallelSearch measures search throughput across goroutines.
func BenchmarkParallelSearch(b *testing.B) {
	dim := 128
	rng := testutil.NewRNG(9)
	idx, _ := setupIndex(b, dim, 10000, rng)
	queries := rng.UnitVectors(64, dim)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := idx.Search(ctx, queries[i%len(queries)], 10, 0); err != nil {
				b.Fatal(err)
			}
			i++
		}
	})
}
