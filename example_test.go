package hnswdb_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/hnswdb"
	"github.com/hupe1980/hnswdb/blobstore"
	"github.com/hupe1980/hnswdb/distance"
)

// Example demonstrates inserting vectors and querying the nearest neighbors.
func Example() {
	ctx := context.Background()

	idx, err := hnswdb.NewWithParams(4, distance.Euclidean, 16, 200)
	if err != nil {
		log.Fatal(err)
	}

	for _, v := range [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
		{0.9, 0.1, 0, 0},
	} {
		if _, err := idx.Insert(ctx, v); err != nil {
			log.Fatal(err)
		}
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2, 50)
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range results {
		fmt.Printf("id=%d distance=%.4f\n", r.ID, r.Distance)
	}
	// Output:
	// id=0 distance=0.0000
	// id=4 distance=0.1414
}

// ExampleIndex_SearchWithOptions demonstrates restricting results to an id allow-list.
func ExampleIndex_SearchWithOptions() {
	ctx := context.Background()

	idx, _ := hnswdb.New(2, distance.Euclidean)
	for i := range 10 {
		_ = idx.InsertWithID(ctx, uint64(100+i), []float32{float32(i), 0})
	}

	allow := roaring64.BitmapOf(105, 107, 109)
	results, _ := idx.SearchWithOptions(ctx, []float32{0, 0}, 2, func(o *hnswdb.SearchOptions) {
		o.Filter = allow
	})
	for _, r := range results {
		fmt.Println(r.ID)
	}
	// Output:
	// 105
	// 107
}

// ExampleIndex_SaveToStore demonstrates committing a snapshot to a blob store.
func ExampleIndex_SaveToStore() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "hnswdb-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	idx, _ := hnswdb.New(3, distance.Cosine)
	_, _ = idx.BatchInsert(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})

	store := blobstore.NewLocalStore(dir)
	if err := idx.SaveToStore(ctx, store, "catalog"); err != nil {
		log.Fatal(err)
	}

	loaded, err := hnswdb.LoadFromStore(ctx, store, "catalog", 3, distance.Cosine)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(loaded.Len(), loaded.ID() == idx.ID())
	// Output: 3 true
}

// ExampleBasicMetricsCollector demonstrates in-memory operation counters.
func ExampleBasicMetricsCollector() {
	ctx := context.Background()
	metrics := &hnswdb.BasicMetricsCollector{}

	idx, _ := hnswdb.New(2, distance.Euclidean, hnswdb.WithMetricsCollector(metrics))
	_, _ = idx.Insert(ctx, []float32{1, 1})
	_, _ = idx.Search(ctx, []float32{1, 1}, 1, 0)

	stats := metrics.GetStats()
	fmt.Println(stats.InsertCount, stats.SearchCount)
	// Output: 1 1
}
