package hnsw

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/hnswdb/distance"
)

// NodeID is the dense internal identifier of a node, equal to its insertion order.
type NodeID uint32

const (
	// MaxLevel is the highest level a node can be assigned.
	MaxLevel = 15

	// mmax0Multiplier is the multiplier for calculating maximum connections at layer 0.
	mmax0Multiplier = 2

	// minimumM is the minimum valid value for M.
	minimumM = 2

	// DefaultM is the default number of bidirectional links.
	DefaultM = 16

	// DefaultEFConstruction is the default size of the dynamic candidate list.
	DefaultEFConstruction = 200

	// DefaultAlpha disables VAMANA diversification beyond classic HNSW pruning.
	DefaultAlpha = 1.0
)

var (
	ErrInvalidM              = fmt.Errorf("hnsw: M must be at least %d", minimumM)
	ErrInvalidEFConstruction = errors.New("hnsw: ef construction must be positive")
	ErrInvalidAlpha          = errors.New("hnsw: alpha must be >= 1")
	ErrInvalidDimension      = errors.New("hnsw: dimension must be positive")
	ErrNilEngine             = errors.New("hnsw: distance engine is required")
)

// Options represents the options for configuring a Graph.
type Options struct {
	Dimension      int
	M              int
	EFConstruction int
	Alpha          float32
	// Seed initializes the level generator. Zero selects a fixed default so
	// builds are reproducible unless the caller asks otherwise.
	Seed uint64
}

// DefaultOptions contains the default options for a Graph.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	Alpha:          DefaultAlpha,
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Dimension <= 0 {
		return ErrInvalidDimension
	}
	if o.M < minimumM {
		return ErrInvalidM
	}
	if o.EFConstruction <= 0 {
		return ErrInvalidEFConstruction
	}
	if o.Alpha < 1 || math.IsNaN(float64(o.Alpha)) {
		return ErrInvalidAlpha
	}
	return nil
}

// Result is one search hit.
type Result struct {
	ID       NodeID
	Distance float32
}

// Graph is a concurrent HNSW graph over vectors of one dimension.
type Graph struct {
	engine distance.Engine
	opts   Options

	maxConnections  int
	maxConnections0 int
	levelMult       float64

	// Node storage: flat vectors and per-node levels. Existing entries are
	// never modified, so slices handed out remain valid after growth.
	vecMu   sync.RWMutex
	vectors []float32
	levels  []uint8
	count   atomic.Uint32

	layersMu sync.RWMutex
	layers   []*Layer

	epMu       sync.RWMutex
	entryPoint NodeID
	hasEntry   bool
	maxLayer   int

	rng      rng // level assignment
	probeRNG rng // multi-entry probes

	searchPool sync.Pool
}

// New creates an empty graph.
func New(engine distance.Engine, optFns ...func(o *Options)) (*Graph, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	g := &Graph{
		engine:          engine,
		opts:            opts,
		maxConnections:  opts.M,
		maxConnections0: opts.M * mmax0Multiplier,
		levelMult:       1 / math.Log(float64(opts.M)),
	}
	g.rng.seed(opts.Seed)
	g.probeRNG.seed(opts.Seed ^ probeSeedMix)
	g.searchPool.New = func() any {
		return newSearchContext(int(g.count.Load()))
	}

	return g, nil
}

// Options returns the options the graph was built with.
func (g *Graph) Options() Options { return g.opts }

// Engine returns the distance engine.
func (g *Graph) Engine() distance.Engine { return g.engine }

// Dimension returns the vector dimension.
func (g *Graph) Dimension() int { return g.opts.Dimension }

// Len returns the number of nodes.
func (g *Graph) Len() int { return int(g.count.Load()) }

// EntryPoint returns the current entry point and max layer. ok is false for an
// empty graph.
func (g *Graph) EntryPoint() (ep NodeID, maxLayer int, ok bool) {
	g.epMu.RLock()
	defer g.epMu.RUnlock()

	return g.entryPoint, g.maxLayer, g.hasEntry
}

// Vector returns the stored vector of id. The returned slice must not be modified.
func (g *Graph) Vector(id NodeID) ([]float32, bool) {
	g.vecMu.RLock()
	defer g.vecMu.RUnlock()

	if int(id) >= len(g.levels) {
		return nil, false
	}
	return g.vectorLocked(id), true
}

// Level returns the top level of id.
func (g *Graph) Level(id NodeID) (int, bool) {
	g.vecMu.RLock()
	defer g.vecMu.RUnlock()

	if int(id) >= len(g.levels) {
		return 0, false
	}
	return int(g.levels[id]), true
}

func (g *Graph) vectorLocked(id NodeID) []float32 {
	dim := g.opts.Dimension
	off := int(id) * dim
	return g.vectors[off : off+dim : off+dim]
}

// appendVector copies v into storage and assigns the next NodeID.
func (g *Graph) appendVector(v []float32, level int) NodeID {
	g.vecMu.Lock()
	defer g.vecMu.Unlock()

	id := NodeID(len(g.levels))
	g.vectors = append(g.vectors, v...)
	g.levels = append(g.levels, uint8(level))
	g.count.Add(1)

	return id
}

// gatherVectors appends the vectors of ids to dst under one read lock.
func (g *Graph) gatherVectors(ids []NodeID, dst [][]float32) [][]float32 {
	g.vecMu.RLock()
	defer g.vecMu.RUnlock()

	for _, id := range ids {
		dst = append(dst, g.vectorLocked(id))
	}
	return dst
}

// layer returns layer l or nil when the hierarchy is not that tall.
func (g *Graph) layer(l int) *Layer {
	g.layersMu.RLock()
	defer g.layersMu.RUnlock()

	if l >= len(g.layers) {
		return nil
	}
	return g.layers[l]
}

// ensureLayers grows the layer table to hold level top.
func (g *Graph) ensureLayers(top int) {
	g.layersMu.Lock()
	defer g.layersMu.Unlock()

	for l := len(g.layers); l <= top; l++ {
		g.layers = append(g.layers, newLayer(l, g.capFor(l)))
	}
}

// numLayers returns the number of allocated layers.
func (g *Graph) numLayers() int {
	g.layersMu.RLock()
	defer g.layersMu.RUnlock()

	return len(g.layers)
}

func (g *Graph) capFor(level int) int {
	if level == 0 {
		return g.maxConnections0
	}
	return g.maxConnections
}

// randomLevel draws floor(-ln(u) * levelMult), clamped to MaxLevel.
func (g *Graph) randomLevel() int {
	u := g.rng.float64()
	level := int(math.Floor(-math.Log(u) * g.levelMult))
	if level > MaxLevel {
		return MaxLevel
	}
	if level < 0 {
		return 0
	}
	return level
}
