package hnswdb

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/hnswdb/distance"
	"github.com/hupe1980/hnswdb/internal/vectorstore"
	"github.com/hupe1980/hnswdb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcreteScenario(t *testing.T) {
	ctx := context.Background()

	idx, err := NewWithParams(4, distance.Euclidean, 16, 200)
	require.NoError(t, err)

	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
		{0.9, 0.1, 0, 0},
	}
	ids := make([]uint64, len(vectors))
	for i, v := range vectors {
		ids[i], err = idx.Insert(ctx, v)
		require.NoError(t, err)
	}

	res, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2, 50)
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, ids[0], res[0].ID)
	assert.InDelta(t, 0, res[0].Distance, 1e-6)
	assert.Equal(t, ids[4], res[1].ID)
	assert.InDelta(t, math.Sqrt(0.02), res[1].Distance, 1e-5)
}

func TestEmptyIndex(t *testing.T) {
	idx, err := New(8, distance.Cosine)
	require.NoError(t, err)

	assert.True(t, idx.IsEmpty())
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 8, idx.Dimension())
	assert.Equal(t, distance.Cosine, idx.Metric())
	assert.True(t, idx.HasVectorStorage())
	assert.NotEmpty(t, idx.ID())

	for _, k := range []int{-1, 0, 1, 10, 1000} {
		res, err := idx.Search(context.Background(), make([]float32, 8), k, 0)
		require.NoError(t, err)
		assert.NotNil(t, res)
		assert.Empty(t, res)
	}
}

func TestInvalidInput(t *testing.T) {
	ctx := context.Background()

	_, err := New(0, distance.Euclidean)
	var dimErr *ErrInvalidDimension
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 0, dimErr.Dimension)

	_, err = NewWithParams(4, distance.Euclidean, 1, 200)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = New(4, distance.Euclidean, WithAlpha(0.5))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = New(4, distance.Euclidean, WithEFSearch(-1))
	assert.ErrorIs(t, err, ErrInvalidOption)

	idx, err := New(4, distance.Euclidean)
	require.NoError(t, err)

	_, err = idx.Insert(ctx, []float32{1, 2, 3})
	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Actual)

	res, err := idx.Search(ctx, []float32{1, 2, 3, 4}, 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)

	_, err = idx.Search(ctx, []float32{1}, 1, 10)
	assert.ErrorAs(t, err, &mismatch)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = idx.Insert(canceled, []float32{1, 2, 3, 4})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, idx.IsEmpty())
}

func TestPresets(t *testing.T) {
	idx, err := New(768, distance.Cosine)
	require.NoError(t, err)
	assert.Equal(t, 32, idx.Stats().M)
	assert.Equal(t, 400, idx.Stats().EFConstruction)

	small, err := New(32, distance.Cosine)
	require.NoError(t, err)
	assert.Equal(t, 16, small.Stats().M)
	assert.Equal(t, 32, small.Stats().M0)

	fast, err := NewInsertOptimized(64, distance.Euclidean)
	require.NoError(t, err)
	assert.False(t, fast.HasVectorStorage())
	assert.Equal(t, 8, fast.Stats().M)

	// Caller options win over preset defaults.
	fastStored, err := NewInsertOptimized(64, distance.Euclidean, WithVectorStorage(true))
	require.NoError(t, err)
	assert.True(t, fastStored.HasVectorStorage())

	recall, err := NewRecallOptimized(64, distance.Euclidean)
	require.NoError(t, err)
	st := recall.Stats()
	assert.Equal(t, 48, st.M)
	assert.Equal(t, 500, st.EFConstruction)
	assert.Equal(t, 256, st.EFSearch)
	assert.InDelta(t, 1.2, st.Alpha, 1e-6)
}

func TestRecallAndMonotonicity(t *testing.T) {
	const (
		dim     = 32
		n       = 2000
		queries = 50
		k       = 10
	)
	ctx := context.Background()
	rng := testutil.NewRNG(4711)

	idx, err := NewWithParams(dim, distance.Euclidean, 16, 100)
	require.NoError(t, err)

	data := rng.UniformVectors(n, dim)
	ids, err := idx.BatchInsert(ctx, data)
	require.NoError(t, err)
	require.Len(t, ids, n)
	for i, id := range ids {
		require.Equal(t, uint64(i), id)
	}

	ref := distance.Reference(distance.Euclidean)
	recallAt := func(ef int) float64 {
		total := 0.0
		for q := range queries {
			query := data[q*7]
			truth := testutil.BruteForceSearch(ref, data, query, k)

			res, err := idx.Search(ctx, query, k, ef)
			require.NoError(t, err)

			approx := make([]testutil.SearchResult, len(res))
			for i, r := range res {
				approx[i] = testutil.SearchResult{ID: r.ID, Distance: r.Distance}
			}
			total += testutil.ComputeRecall(truth, approx)
		}
		return total / queries
	}

	low := recallAt(k)
	high := recallAt(200)

	assert.GreaterOrEqual(t, high, 0.95, "recall@10 with ef=200")
	assert.GreaterOrEqual(t, high, low)
}

func TestSelfRetrievalAndOrdering(t *testing.T) {
	const dim = 16
	ctx := context.Background()
	rng := testutil.NewRNG(7)

	idx, err := New(dim, distance.Cosine)
	require.NoError(t, err)

	data := rng.UnitVectors(500, dim)
	ids, err := idx.BatchInsert(ctx, data)
	require.NoError(t, err)

	hits := 0
	for i, v := range data {
		res, err := idx.Search(ctx, v, 5, 64)
		require.NoError(t, err)
		require.NotEmpty(t, res)

		for j := 1; j < len(res); j++ {
			assert.LessOrEqual(t, res[j-1].Distance, res[j].Distance)
		}
		if res[0].ID == ids[i] {
			hits++
		}
	}
	assert.GreaterOrEqual(t, hits, 495)
}

func TestInsertWithIDReplaces(t *testing.T) {
	ctx := context.Background()

	idx, err := New(4, distance.Euclidean)
	require.NoError(t, err)

	require.NoError(t, idx.InsertWithID(ctx, 7, []float32{1, 0, 0, 0}))
	require.NoError(t, idx.InsertWithID(ctx, 8, []float32{0, 0, 1, 0}))
	require.NoError(t, idx.InsertWithID(ctx, 7, []float32{0, 1, 0, 0}))

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 3, idx.Stats().Nodes)

	res, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 10, 10)
	require.NoError(t, err)
	require.Len(t, res, 2, "orphaned node must not be returned")
	for _, r := range res {
		assert.InDelta(t, math.Sqrt2, r.Distance, 1e-5)
	}

	v, err := idx.Vector(7)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0, 0}, v)

	// Auto ids continue after the largest caller id.
	id, err := idx.Insert(ctx, []float32{0, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), id)
}

func TestVector(t *testing.T) {
	ctx := context.Background()

	idx, err := New(3, distance.Euclidean)
	require.NoError(t, err)

	in := []float32{1, 2, 3}
	id, err := idx.Insert(ctx, in)
	require.NoError(t, err)

	out, err := idx.Vector(id)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out[0] = 99
	again, err := idx.Vector(id)
	require.NoError(t, err)
	assert.Equal(t, float32(1), again[0], "Vector returns a copy")

	_, err = idx.Vector(12345)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, idx.Contains(id))
	assert.False(t, idx.Contains(12345))

	noStore, err := NewInsertOptimized(3, distance.Euclidean)
	require.NoError(t, err)
	id, err = noStore.Insert(ctx, in)
	require.NoError(t, err)
	_, err = noStore.Vector(id)
	assert.ErrorIs(t, err, ErrNoVectorStorage)
}

func TestBatchInsert(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(1)

	idx, err := New(8, distance.DotProduct, WithBatchWorkers(3))
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Stats().BatchWorkers)

	ids, err := idx.BatchInsert(ctx, rng.UnitVectors(100, 8))
	require.NoError(t, err)
	assert.Len(t, ids, 100)
	assert.Equal(t, 100, idx.Len())

	bad := rng.UnitVectors(5, 8)
	bad[3] = bad[3][:7]
	ids, err = idx.BatchInsert(ctx, bad)
	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Empty(t, ids)
	assert.Equal(t, 100, idx.Len(), "nothing inserted when any dimension is wrong")

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = idx.BatchInsert(canceled, rng.UnitVectors(10, 8))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 100, idx.Len())
}

func TestSearchWithFilter(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(3)

	idx, err := New(16, distance.Euclidean)
	require.NoError(t, err)

	data := rng.UniformVectors(300, 16)
	_, err = idx.BatchInsert(ctx, data)
	require.NoError(t, err)

	even := roaring64.New()
	for id := uint64(0); id < 300; id += 2 {
		even.Add(id)
	}

	res, err := idx.SearchWithOptions(ctx, data[1], 10, func(o *SearchOptions) {
		o.EF = 100
		o.Filter = even
	})
	require.NoError(t, err)
	require.Len(t, res, 10)
	for _, r := range res {
		assert.True(t, even.Contains(r.ID), "id %d not in filter", r.ID)
	}

	none, err := idx.SearchWithOptions(ctx, data[1], 10, func(o *SearchOptions) {
		o.Filter = roaring64.New()
	})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchMultiEntry(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(5)

	idx, err := New(16, distance.Euclidean)
	require.NoError(t, err)

	data := rng.UniformVectors(500, 16)
	ids, err := idx.BatchInsert(ctx, data)
	require.NoError(t, err)

	res, err := idx.SearchMultiEntry(ctx, data[42], 5, 32, 4)
	require.NoError(t, err)
	require.Len(t, res, 5)
	assert.Equal(t, ids[42], res[0].ID)
	for j := 1; j < len(res); j++ {
		assert.LessOrEqual(t, res[j-1].Distance, res[j].Distance)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(9)

	idx, err := NewWithParams(8, distance.Euclidean, 8, 64)
	require.NoError(t, err)
	_, err = idx.BatchInsert(ctx, rng.UniformVectors(400, 8))
	require.NoError(t, err)

	st := idx.Stats()
	assert.Equal(t, 400, st.Vectors)
	assert.Equal(t, 400, st.Nodes)
	assert.Equal(t, "euclidean", st.Metric)
	assert.Equal(t, int64(400*8*4), st.MemoryBytes)
	assert.Equal(t, int64(0), st.MemoryLimit)
	assert.Equal(t, 16, st.MappingShards)
	require.Len(t, st.Levels, st.MaxLayer+1)
	assert.Equal(t, 400, st.Levels[0].Nodes)

	for i, l := range st.Levels {
		assert.Equal(t, i, l.Level)
		limit := st.M
		if i == 0 {
			limit = st.M0
		}
		assert.LessOrEqual(t, l.MaxDegree, limit)
		if i > 0 {
			assert.LessOrEqual(t, l.Nodes, st.Levels[i-1].Nodes)
		}
	}
	assert.Positive(t, st.Levels[0].AvgDegree)
}

func TestMemoryLimit(t *testing.T) {
	ctx := context.Background()

	idx, err := New(4, distance.Euclidean, WithResourceLimits(3*4*4, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(48), idx.Stats().MemoryLimit)

	for range 3 {
		_, err := idx.Insert(ctx, []float32{1, 2, 3, 4})
		require.NoError(t, err)
	}
	_, err = idx.Insert(ctx, []float32{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, int64(48), idx.MemoryUsage())
}

func TestBatchInsertSingleWorkerStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(8)

	idx, err := New(4, distance.Euclidean, WithBatchWorkers(1), WithResourceLimits(5*4*4, 0))
	require.NoError(t, err)

	// One worker slot means items run in input order, so exactly the first
	// five fit the budget.
	ids, err := idx.BatchInsert(ctx, rng.UniformVectors(8, 4))
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, ids)
	assert.Equal(t, 5, idx.Len())
	assert.Equal(t, int64(5*4*4), idx.MemoryUsage())
}

func TestInsertReleasesMemoryOnStoreFailure(t *testing.T) {
	idx, err := New(4, distance.Euclidean, WithResourceLimits(1<<10, 0))
	require.NoError(t, err)

	// A store of the wrong width rejects every write.
	idx.store = vectorstore.New(5)

	err = idx.insert(7, []float32{1, 2, 3, 4})
	assert.ErrorIs(t, err, vectorstore.ErrWrongDimension)
	assert.Equal(t, int64(0), idx.MemoryUsage())
	assert.False(t, idx.Contains(7))
}

func TestConcurrentInsertAndSearch(t *testing.T) {
	const (
		dim     = 8
		writers = 4
		each    = 250
	)
	ctx := context.Background()
	rng := testutil.NewRNG(11)

	idx, err := NewWithParams(dim, distance.Euclidean, 8, 64)
	require.NoError(t, err)

	data := rng.ClusteredVectors(writers*each, dim, 4, 0.05)

	var wg sync.WaitGroup
	errs := make(chan error, writers+1)
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range each {
				if err := idx.InsertWithID(ctx, uint64(w*each+i), data[w*each+i]); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 200 {
			if _, err := idx.Search(ctx, data[i], 5, 32); err != nil {
				errs <- err
				return
			}
		}
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, writers*each, idx.Len())

	for i := 0; i < writers*each; i += 97 {
		res, err := idx.Search(ctx, data[i], 1, 64)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.InDelta(t, 0, res[0].Distance, 1e-5)
	}
}

func TestMetricsAndLogging(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}

	idx, err := New(4, distance.Euclidean,
		WithMetricsCollector(metrics),
		WithLogger(nil),
	)
	require.NoError(t, err)

	_, err = idx.Insert(ctx, []float32{1, 0, 0, 0})
	require.NoError(t, err)
	_, err = idx.Insert(ctx, []float32{1, 0})
	require.Error(t, err)
	_, err = idx.BatchInsert(ctx, [][]float32{{0, 1, 0, 0}, {0, 0, 1, 0}})
	require.NoError(t, err)
	_, err = idx.Search(ctx, []float32{1, 0, 0, 0}, 1, 0)
	require.NoError(t, err)
	_, err = idx.Search(ctx, []float32{1, 0}, 1, 0)
	var mismatch *ErrDimensionMismatch
	require.True(t, errors.As(err, &mismatch))

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.InsertCount)
	assert.Equal(t, int64(1), stats.InsertErrors)
	assert.Equal(t, int64(1), stats.BatchInsertCount)
	assert.Equal(t, int64(2), stats.BatchInsertItems)
	assert.Equal(t, int64(0), stats.BatchInsertFailed)
	assert.Equal(t, int64(2), stats.SearchCount)
	assert.Equal(t, int64(1), stats.SearchErrors)
}

func TestBackends(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(13)
	data := rng.UniformVectors(200, 24)

	var first []SearchResult
	for _, b := range []distance.Backend{distance.BackendScalar, distance.BackendSIMD, distance.BackendNative} {
		idx, err := New(24, distance.Euclidean, WithBackend(b), WithSeed(99))
		require.NoError(t, err)
		assert.Equal(t, b, idx.Backend())

		_, err = idx.BatchInsert(ctx, data)
		require.NoError(t, err)

		res, err := idx.Search(ctx, data[0], 3, 200)
		require.NoError(t, err)
		require.Len(t, res, 3)

		if first == nil {
			first = res
			continue
		}
		for i := range res {
			assert.InDelta(t, first[i].Distance, res[i].Distance, 1e-4)
		}
	}
}
