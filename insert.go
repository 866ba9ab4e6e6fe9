package hnswdb

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Insert adds vec under a freshly allocated external id and returns the id.
func (idx *Index) Insert(ctx context.Context, vec []float32) (uint64, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		idx.metrics.RecordInsert(time.Since(start), err)
		return 0, err
	}
	if err := checkDimension(idx.dim, vec); err != nil {
		idx.metrics.RecordInsert(time.Since(start), err)
		return 0, err
	}

	id := idx.mappings.Allocate()
	err := idx.insert(id, vec)

	idx.metrics.RecordInsert(time.Since(start), err)
	idx.logger.LogInsert(ctx, id, len(vec), err)

	if err != nil {
		return 0, err
	}
	return id, nil
}

// InsertWithID adds vec under the caller's id. If id is already present the
// new vector replaces it; the old graph node is orphaned and never returned.
func (idx *Index) InsertWithID(ctx context.Context, id uint64, vec []float32) error {
	start := time.Now()

	err := ctx.Err()
	if err == nil {
		err = checkDimension(idx.dim, vec)
	}
	if err == nil {
		err = idx.insert(id, vec)
	}

	idx.metrics.RecordInsert(time.Since(start), err)
	idx.logger.LogInsert(ctx, id, len(vec), err)
	return err
}

// BatchInsert adds vecs in parallel and returns their ids in input order.
// Ids are allocated before any insert starts, so they are consecutive for a
// quiescent index. All dimensions are checked before anything is inserted.
//
// On failure the remaining items are skipped and the returned slice holds
// the ids of the items that were inserted, still in input order.
func (idx *Index) BatchInsert(ctx context.Context, vecs [][]float32) ([]uint64, error) {
	start := time.Now()

	for _, v := range vecs {
		if err := checkDimension(idx.dim, v); err != nil {
			idx.metrics.RecordBatchInsert(len(vecs), len(vecs), time.Since(start))
			return nil, err
		}
	}

	ids := make([]uint64, len(vecs))
	for i := range ids {
		ids[i] = idx.mappings.Allocate()
	}

	done := make([]bool, len(vecs))

	// The controller's worker slots bound the number of running goroutines.
	g, gctx := errgroup.WithContext(ctx)

	for i, v := range vecs {
		if err := idx.rc.AcquireWorker(gctx); err != nil {
			break
		}
		g.Go(func() error {
			defer idx.rc.ReleaseWorker()

			if err := gctx.Err(); err != nil {
				return err
			}
			if err := idx.insert(ids[i], v); err != nil {
				return err
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	inserted := ids[:0]
	for i, ok := range done {
		if ok {
			inserted = append(inserted, ids[i])
		}
	}
	nFailed := len(vecs) - len(inserted)

	idx.metrics.RecordBatchInsert(len(vecs), nFailed, time.Since(start))
	idx.logger.LogBatchInsert(ctx, len(vecs), nFailed)

	return inserted, err
}

// insert links vec into the graph and publishes it under id. The mapping is
// written last, so searches never see a node without its external id.
func (idx *Index) insert(id uint64, vec []float32) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.store != nil {
		if err := idx.rc.AcquireMemory(int64(idx.dim) * 4); err != nil {
			return err
		}
	}

	node := idx.graph.Insert(vec)

	if idx.store != nil {
		if err := idx.store.Set(node, vec); err != nil {
			idx.rc.ReleaseMemory(int64(idx.dim) * 4)
			return err
		}
	}

	idx.mappings.Put(id, node)
	return nil
}
