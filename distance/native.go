package distance

import (
	"slices"

	"github.com/hupe1980/hnswdb/internal/simd"
)

// nativeEngine binds its kernels once, from the index dimension and the CPU
// features, so the per-call path is a single indirect call with no switches.
type nativeEngine struct {
	metric  Metric
	dim     int
	kernels simd.KernelSet
	dist    func(a, b []float32) float32
	// blocked enables the four-candidate kernels in BatchDistance; it is set
	// when a query plus four candidates fit in the L1 data cache.
	blocked bool
}

func newNativeEngine(m Metric, dim int) *nativeEngine {
	e := &nativeEngine{
		metric:  m,
		dim:     dim,
		kernels: simd.KernelsFor(simd.ActiveISA(), dim),
	}
	e.blocked = 5*dim*4 <= simd.L1DataCacheBytes()

	switch m {
	case Euclidean:
		l2 := e.kernels.SquaredL2
		e.dist = func(a, b []float32) float32 { return sqrt32(l2(a, b)) }
	case Cosine:
		dn := e.kernels.DotAndNorms
		e.dist = func(a, b []float32) float32 { return cosineFromParts(dn(a, b)) }
	case DotProduct:
		dot := e.kernels.Dot
		e.dist = func(a, b []float32) float32 { return 1 - dot(a, b) }
	case Hamming:
		e.dist = func(a, b []float32) float32 { return float32(simd.Hamming(a, b)) }
	case Jaccard:
		e.dist = func(a, b []float32) float32 { return jaccardFromCounts(simd.Jaccard(a, b)) }
	}
	return e
}

func (e *nativeEngine) Metric() Metric   { return e.metric }
func (e *nativeEngine) Backend() Backend { return BackendNative }

func (e *nativeEngine) Distance(a, b []float32) float32 {
	return e.dist(a, b)
}

// BatchDistance scores blocks of four candidates per pass over the query
// while they fit in L1. The remainder goes through the flat batch kernels.
func (e *nativeEngine) BatchDistance(query []float32, candidates [][]float32, dst []float32) []float32 {
	dst = slices.Grow(dst[:0], len(candidates))

	i := 0
	if e.blocked {
		switch e.metric {
		case Euclidean:
			for ; i+4 <= len(candidates); i += 4 {
				c := candidates[i : i+4 : i+4]
				s := simd.SquaredL2X4(query, c[0], c[1], c[2], c[3])
				dst = append(dst, sqrt32(s[0]), sqrt32(s[1]), sqrt32(s[2]), sqrt32(s[3]))
			}
		case DotProduct:
			for ; i+4 <= len(candidates); i += 4 {
				c := candidates[i : i+4 : i+4]
				s := simd.DotX4(query, c[0], c[1], c[2], c[3])
				dst = append(dst, 1-s[0], 1-s[1], 1-s[2], 1-s[3])
			}
		case Cosine:
			qn := simd.Dot(query, query)
			for ; i+4 <= len(candidates); i += 4 {
				c := candidates[i : i+4 : i+4]
				dots := simd.DotX4(query, c[0], c[1], c[2], c[3])
				norms := simd.NormsX4(c[0], c[1], c[2], c[3])
				for j := 0; j < 4; j++ {
					dst = append(dst, cosineFromParts(dots[j], qn, norms[j]))
				}
			}
		}
	}

	rest := candidates[i:]
	out := dst[i:len(candidates)]

	switch e.metric {
	case Euclidean:
		e.kernels.SquaredL2Batch(query, rest, out)
		for j, s := range out {
			out[j] = sqrt32(s)
		}
	case DotProduct:
		e.kernels.DotBatch(query, rest, out)
		for j, s := range out {
			out[j] = 1 - s
		}
	default:
		for j, c := range rest {
			out[j] = e.dist(query, c)
		}
	}
	return dst[:len(candidates)]
}
