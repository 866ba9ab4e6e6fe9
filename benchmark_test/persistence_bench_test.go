package hnswdb_bench_test

import (
	"context"
	"testing"

	"github.com/hupe1980/hnswdb"
	"github.com/hupe1980/hnswdb/blobstore"
	"github.com/hupe1980/hnswdb/distance"
	"github.com/hupe1980/hnswdb/persistence"
	"github.com/hupe1980/hnswdb/testutil"
)

// BenchmarkSave measures directory saves per dump compression.
func BenchmarkSave(b *testing.B) {
	for _, c := range []persistence.Compression{
		persistence.CompressionNone,
		persistence.CompressionLZ4,
		persistence.CompressionZstd,
	} {
		b.Run(c.String(), func(b *testing.B) {
			idx, _ := setupIndex(b, 128, 5000, testutil.NewRNG(42), hnswdb.WithCompression(c))
			dir := b.TempDir()

			b.ResetTimer()
			for b.Loop() {
				if err := idx.Save(dir); err != nil {
					b.Fatal(err)
				}
			}

			st := idx.Stats()
			b.ReportMetric(float64(st.Nodes), "vectors")
		})
	}
}

// BenchmarkLoad measures directory loads per dump compression.
func BenchmarkLoad(b *testing.B) {
	for _, c := range []persistence.Compression{
		persistence.CompressionNone,
		persistence.CompressionLZ4,
		persistence.CompressionZstd,
	} {
		b.Run(c.String(), func(b *testing.B) {
			idx, _ := setupIndex(b, 128, 5000, testutil.NewRNG(42), hnswdb.WithCompression(c))
			dir := b.TempDir()
			if err := idx.Save(dir); err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for b.Loop() {
				if _, err := hnswdb.Load(dir, 128, distance.Euclidean); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkStoreRoundTrip measures a save and load through the memory blob store.
func BenchmarkStoreRoundTrip(b *testing.B) {
	idx, _ := setupIndex(b, 128, 5000, testutil.NewRNG(42))
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		if err := idx.SaveToStore(ctx, store, "bench"); err != nil {
			b.Fatal(err)
		}
		if _, err := hnswdb.LoadFromStore(ctx, store, "bench", 128, distance.Euclidean); err != nil {
			b.Fatal(err)
		}
	}
}
