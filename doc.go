// Package hnswdb provides an embedded approximate nearest-neighbor index for Go.
//
// An Index is a Hierarchical Navigable Small World graph over float32 vectors
// of one fixed dimension. Vectors are addressed by caller-visible uint64 ids;
// distances come from a pluggable engine (see package distance) whose backend
// is chosen once, at construction.
//
// # Quick Start
//
//	ctx := context.Background()
//	idx, _ := hnswdb.New(128, distance.Cosine)
//
//	id, _ := idx.Insert(ctx, vec)              // auto-assigned id
//	_ = idx.InsertWithID(ctx, 42, other)       // caller-assigned id
//	ids, _ := idx.BatchInsert(ctx, vecs)       // parallel
//
//	results, _ := idx.Search(ctx, query, 10, 0) // 0 selects the default ef
//	for _, r := range results {
//	    fmt.Println(r.ID, r.Distance)
//	}
//
// # Presets
//
//	hnswdb.New(dim, metric)                    // M and ef_construction tuned by dimension
//	hnswdb.NewWithParams(dim, metric, 16, 200) // explicit
//	hnswdb.NewInsertOptimized(dim, metric)     // sparse graph, no stored vectors
//	hnswdb.NewRecallOptimized(dim, metric)     // dense graph, alpha 1.2, ef 256
//	hnswdb.NewFromConfig(cfg)                  // YAML, see LoadConfig
//
// # Re-ranking
//
// With vector storage enabled (the default except for NewInsertOptimized)
// the index keeps a full-precision copy of each vector. Searches then keep
// the whole beam and re-rank it with the scalar reference engine before
// cutting it to k, and Vector returns the stored copy.
//
// # Persistence
//
// Save writes graph.hnsw, mappings.bin and metadata.yaml to a directory;
// Load reverses it. SaveToStore and LoadFromStore do the same against a
// blobstore.BlobStore (local disk, memory, S3, MinIO), writing each snapshot
// under its own generation and committing it by rewriting CURRENT last:
//
//	store := blobstore.NewLocalStore("/var/lib/vectors")
//	_ = idx.SaveToStore(ctx, store, "products")
//	idx2, _ := hnswdb.LoadFromStore(ctx, store, "products", 128, distance.Cosine)
//
// Every load failure satisfies errors.Is(err, hnswdb.ErrIO). No partially
// loaded index is ever returned.
//
// # Concurrency
//
// Inserts and searches may run from any number of goroutines. Saves block
// both for their duration so the artifacts describe one snapshot.
package hnswdb
