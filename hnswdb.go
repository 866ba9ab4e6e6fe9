package hnswdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hupe1980/hnswdb/distance"
	"github.com/hupe1980/hnswdb/internal/hnsw"
	"github.com/hupe1980/hnswdb/internal/mapping"
	"github.com/hupe1980/hnswdb/internal/resource"
	"github.com/hupe1980/hnswdb/internal/simd"
	"github.com/hupe1980/hnswdb/internal/vectorstore"
)

// Index is an HNSW approximate nearest-neighbor index addressed by external
// uint64 ids. It is safe for concurrent use: inserts and searches run in
// parallel, Save and Load see a consistent snapshot.
type Index struct {
	// mu is held shared by inserts and searches and exclusively by saves.
	mu sync.RWMutex

	id     uuid.UUID
	dim    int
	metric distance.Metric

	graph    *hnsw.Graph
	mappings *mapping.Mappings
	store    *vectorstore.Store // nil without vector storage
	rerank   distance.Engine

	rc      *resource.Controller
	opts    options
	logger  *Logger
	metrics MetricsCollector
}

// Presets for the insert-throughput constructor.
const (
	insertOptimizedSmallM   = 8
	insertOptimizedLargeM   = 12
	insertOptimizedSmallEFC = 64
	insertOptimizedLargeEFC = 100
)

// Presets for the recall constructor.
const (
	recallOptimizedM        = 48
	recallOptimizedEFC      = 500
	recallOptimizedAlpha    = 1.2
	recallOptimizedEFSearch = 256
)

// tuneForDimension returns M and ef_construction for a vector length. Longer
// vectors lie in emptier space and need more links to stay navigable.
func tuneForDimension(dim int) (m, efConstruction int) {
	switch {
	case dim <= 128:
		return hnsw.DefaultM, hnsw.DefaultEFConstruction
	case dim <= 512:
		return 24, 300
	default:
		return 32, 400
	}
}

// New creates an index with M and ef_construction tuned for dim.
func New(dim int, metric distance.Metric, optFns ...Option) (*Index, error) {
	m, efc := tuneForDimension(dim)
	return NewWithParams(dim, metric, m, efc, optFns...)
}

// NewWithParams creates an index with explicit graph parameters.
//
// Example:
//
//	idx, err := hnswdb.NewWithParams(4, distance.Euclidean, 16, 200)
//	if err != nil {
//	    return err
//	}
//	id, err := idx.Insert(ctx, []float32{1, 0, 0, 0})
func NewWithParams(dim int, metric distance.Metric, m, efConstruction int, optFns ...Option) (*Index, error) {
	o := applyOptions(defaultOptions(), optFns)
	return newIndex(uuid.New(), dim, metric, m, efConstruction, o)
}

// NewInsertOptimized creates an index tuned for build throughput: a sparse
// graph, a narrow construction beam and no stored vectors.
func NewInsertOptimized(dim int, metric distance.Metric, optFns ...Option) (*Index, error) {
	m, efc := insertOptimizedSmallM, insertOptimizedSmallEFC
	if dim > 256 {
		m, efc = insertOptimizedLargeM, insertOptimizedLargeEFC
	}
	base := []Option{WithVectorStorage(false)}
	return NewWithParams(dim, metric, m, efc, append(base, optFns...)...)
}

// NewRecallOptimized creates an index tuned for recall: a dense graph built
// with a wide beam, diversified pruning and a wide default search beam.
func NewRecallOptimized(dim int, metric distance.Metric, optFns ...Option) (*Index, error) {
	base := []Option{
		WithAlpha(recallOptimizedAlpha),
		WithEFSearch(recallOptimizedEFSearch),
	}
	return NewWithParams(dim, metric, recallOptimizedM, recallOptimizedEFC, append(base, optFns...)...)
}

func newIndex(id uuid.UUID, dim int, metric distance.Metric, m, efConstruction int, o options) (*Index, error) {
	if dim <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dim}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	engine, err := distance.NewEngine(metric, o.backend, dim)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	graph, err := hnsw.New(engine, func(ho *hnsw.Options) {
		ho.Dimension = dim
		ho.M = m
		ho.EFConstruction = efConstruction
		ho.Alpha = o.alpha
		ho.Seed = o.seed
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	return assemble(id, metric, graph, mapping.New(o.mappingShards), o), nil
}

// assemble wires a graph and its mappings into an Index. The vector store
// starts empty; Load refills it.
func assemble(id uuid.UUID, metric distance.Metric, graph *hnsw.Graph, mappings *mapping.Mappings, o options) *Index {
	idx := &Index{
		id:       id,
		dim:      graph.Dimension(),
		metric:   metric,
		graph:    graph,
		mappings: mappings,
		rerank:   distance.Reference(metric),
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes:   o.memoryLimitBytes,
			MaxWorkers:         int64(o.batchWorkers),
			IOLimitBytesPerSec: o.ioBytesPerSec,
		}),
		opts:    o,
		logger:  o.logger.WithIndex(id.String()),
		metrics: o.metricsCollector,
	}
	if o.vectorStorage {
		idx.store = vectorstore.New(idx.dim)
	}

	idx.logger.DebugContext(context.Background(), "index created",
		"dimension", idx.dim,
		"metric", metric.String(),
		"backend", graph.Engine().Backend().String(),
		"m", graph.Options().M,
		"ef_construction", graph.Options().EFConstruction,
		"alpha", graph.Options().Alpha,
		"vector_storage", o.vectorStorage,
		"cpu", simd.Describe(),
	)
	return idx
}

// ID returns the index identity. It survives save and load.
func (idx *Index) ID() string { return idx.id.String() }

// Dimension returns the vector length of the index.
func (idx *Index) Dimension() int { return idx.dim }

// Metric returns the distance metric of the index.
func (idx *Index) Metric() distance.Metric { return idx.metric }

// Backend returns the distance backend the graph was built with.
func (idx *Index) Backend() distance.Backend { return idx.graph.Engine().Backend() }

// Len returns the number of live external ids. Nodes orphaned by
// re-inserting an id are not counted.
func (idx *Index) Len() int { return idx.mappings.Len() }

// IsEmpty reports whether the index holds no vectors.
func (idx *Index) IsEmpty() bool { return idx.Len() == 0 }

// HasVectorStorage reports whether full-precision vectors are kept.
func (idx *Index) HasVectorStorage() bool { return idx.store != nil }

// MemoryUsage returns the bytes reserved for stored vectors.
func (idx *Index) MemoryUsage() int64 { return idx.rc.MemoryUsage() }

// LevelStats describes one layer of the graph.
type LevelStats struct {
	Level     int
	Nodes     int
	Edges     int
	AvgDegree float64
	MaxDegree int
}

// Stats describes the index and its graph.
type Stats struct {
	Dimension      int
	Metric         string
	Backend        string
	Vectors        int // live external ids
	Nodes          int // graph nodes, including orphaned ones
	MaxLayer       int
	EntryPoint     uint32
	M              int
	M0             int
	EFConstruction int
	EFSearch       int
	Alpha          float32
	VectorStorage  bool
	BatchWorkers   int
	MappingShards  int
	MemoryBytes    int64
	MemoryLimit    int64 // 0 when unlimited
	Levels         []LevelStats
}

// Stats returns statistics about the index.
func (idx *Index) Stats() Stats {
	gs := idx.graph.Stats()

	s := Stats{
		Dimension:      idx.dim,
		Metric:         idx.metric.String(),
		Backend:        idx.Backend().String(),
		Vectors:        idx.Len(),
		Nodes:          gs.Nodes,
		MaxLayer:       gs.MaxLayer,
		EntryPoint:     uint32(gs.EntryPoint),
		M:              gs.M,
		M0:             gs.M0,
		EFConstruction: gs.EFConstruction,
		EFSearch:       idx.opts.efSearch,
		Alpha:          gs.Alpha,
		VectorStorage:  idx.HasVectorStorage(),
		BatchWorkers:   idx.rc.Workers(),
		MappingShards:  idx.mappings.Shards(),
		MemoryBytes:    idx.rc.MemoryUsage(),
		MemoryLimit:    idx.rc.MemoryLimit(),
		Levels:         make([]LevelStats, len(gs.Levels)),
	}
	for i, l := range gs.Levels {
		s.Levels[i] = LevelStats(l)
	}
	return s
}
