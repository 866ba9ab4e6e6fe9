package hnswdb

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hupe1980/hnswdb/distance"
	"github.com/hupe1980/hnswdb/internal/hnsw"
	"github.com/hupe1980/hnswdb/internal/mapping"
	"github.com/hupe1980/hnswdb/persistence"
)

// DefaultEFSearch is the beam width used when a search passes ef <= 0.
const DefaultEFSearch = 64

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	backend          distance.Backend
	alpha            float32
	efSearch         int
	vectorStorage    bool
	seed             uint64
	mappingShards    int
	compression      persistence.Compression
	memoryLimitBytes int64
	ioBytesPerSec    int64
	batchWorkers     int
}

// Option configures index construction and load behavior.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &hnswdb.BasicMetricsCollector{}
//	idx, _ := hnswdb.New(128, distance.Cosine, hnswdb.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Inserts: %d, Avg latency: %dns\n", stats.InsertCount, stats.InsertAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := hnswdb.NewJSONLogger(slog.LevelInfo)
//	idx, _ := hnswdb.New(128, distance.Cosine, hnswdb.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithBackend selects the distance backend. The default, distance.BackendAuto,
// picks the native backend on SIMD-capable CPUs.
func WithBackend(b distance.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithAlpha sets the neighbor diversification factor. 1.0 is classic HNSW
// pruning; larger values keep more long-range edges.
func WithAlpha(alpha float32) Option {
	return func(o *options) {
		o.alpha = alpha
	}
}

// WithEFSearch sets the default beam width for searches that pass ef <= 0.
func WithEFSearch(ef int) Option {
	return func(o *options) {
		o.efSearch = ef
	}
}

// WithVectorStorage toggles the full-precision vector store. Without it
// Vector returns ErrNoVectorStorage and results are not re-ranked.
func WithVectorStorage(enabled bool) Option {
	return func(o *options) {
		o.vectorStorage = enabled
	}
}

// WithSeed seeds the level generator. Zero keeps the fixed default seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithMappingShards sets the number of id mapping shards (rounded up to a
// power of two).
func WithMappingShards(n int) Option {
	return func(o *options) {
		o.mappingShards = n
	}
}

// WithCompression selects the compression of the saved graph dump.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithResourceLimits bounds the memory held by stored vectors and the write
// throughput of saves. Zero means unlimited.
//
// Example:
//
//	idx, _ := hnswdb.New(768, distance.Cosine,
//	    hnswdb.WithResourceLimits(2<<30, 64<<20), // 2GB vectors, 64MB/s saves
//	)
func WithResourceLimits(memoryBytes, ioBytesPerSec int64) Option {
	return func(o *options) {
		o.memoryLimitBytes = memoryBytes
		o.ioBytesPerSec = ioBytesPerSec
	}
}

// WithBatchWorkers sets the parallelism of BatchInsert.
// Defaults to GOMAXPROCS.
func WithBatchWorkers(n int) Option {
	return func(o *options) {
		o.batchWorkers = n
	}
}

func defaultOptions() options {
	return options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		backend:          distance.BackendAuto,
		alpha:            hnsw.DefaultAlpha,
		efSearch:         DefaultEFSearch,
		vectorStorage:    true,
		mappingShards:    mapping.DefaultShards,
		compression:      persistence.CompressionNone,
		batchWorkers:     runtime.GOMAXPROCS(0),
	}
}

func applyOptions(o options, optFns []Option) options {
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o options) validate() error {
	if o.efSearch <= 0 {
		return fmt.Errorf("%w: ef search %d", ErrInvalidOption, o.efSearch)
	}
	if o.batchWorkers <= 0 {
		return fmt.Errorf("%w: batch workers %d", ErrInvalidOption, o.batchWorkers)
	}
	if o.memoryLimitBytes < 0 || o.ioBytesPerSec < 0 {
		return fmt.Errorf("%w: negative resource limit", ErrInvalidOption)
	}
	if o.compression > persistence.CompressionLZ4 {
		return fmt.Errorf("%w: compression %v", ErrInvalidOption, o.compression)
	}
	return nil
}
