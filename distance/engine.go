package distance

import (
	"fmt"
	"strings"

	"github.com/hupe1980/hnswdb/internal/simd"
)

// Engine computes distances between fixed-length float32 vectors.
// Implementations are safe for concurrent use.
type Engine interface {
	// Distance returns the distance between a and b. Lower is closer.
	Distance(a, b []float32) float32
	// BatchDistance appends the distance from query to every candidate to dst[:0]
	// and returns the extended slice.
	BatchDistance(query []float32, candidates [][]float32, dst []float32) []float32
	// Metric returns the metric the engine computes.
	Metric() Metric
	// Backend returns the backend the engine was built with.
	Backend() Backend
}

// Backend selects the kernel family of an engine.
type Backend uint8

const (
	// BackendAuto resolves to BackendNative on SIMD-capable CPUs and to
	// BackendScalar otherwise.
	BackendAuto Backend = iota
	// BackendScalar is the portable reference implementation.
	BackendScalar
	// BackendSIMD uses the package-wide ISA kernels.
	BackendSIMD
	// BackendNative binds length-specialized kernels at construction.
	BackendNative
)

func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendScalar:
		return "scalar"
	case BackendSIMD:
		return "simd"
	case BackendNative:
		return "native"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(b))
	}
}

// ParseBackend parses a backend name.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return BackendAuto, nil
	case "scalar":
		return BackendScalar, nil
	case "simd":
		return BackendSIMD, nil
	case "native":
		return BackendNative, nil
	default:
		return 0, fmt.Errorf("unknown distance backend %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Backend) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Backend) UnmarshalText(text []byte) error {
	v, err := ParseBackend(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Resolve maps BackendAuto to the concrete backend for this CPU.
func (b Backend) Resolve() Backend {
	if b != BackendAuto {
		return b
	}
	if simd.ActiveISA() == simd.Generic {
		return BackendScalar
	}
	return BackendNative
}

// NewEngine creates an engine for the metric and backend. dim is the fixed
// vector length of the index; the native backend specializes on it.
func NewEngine(m Metric, b Backend, dim int) (Engine, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dim)
	}

	switch b.Resolve() {
	case BackendScalar:
		return &scalarEngine{metric: m}, nil
	case BackendSIMD:
		return &simdEngine{metric: m}, nil
	case BackendNative:
		return newNativeEngine(m, dim), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %v", b)
	}
}

// Reference returns the scalar reference engine for m.
func Reference(m Metric) Engine {
	return &scalarEngine{metric: m}
}

// batchLoop is the default batch implementation: one Distance call per candidate.
func batchLoop(e Engine, query []float32, candidates [][]float32, dst []float32) []float32 {
	dst = dst[:0]
	for _, c := range candidates {
		dst = append(dst, e.Distance(query, c))
	}
	return dst
}

func cosineFromParts(dot, normA, normB float32) float32 {
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(sqrt32(normA)*sqrt32(normB))
}

func jaccardFromCounts(intersection, union int) float32 {
	if union == 0 {
		return 0
	}
	return 1 - float32(intersection)/float32(union)
}
