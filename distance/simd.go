package distance

import "github.com/hupe1980/hnswdb/internal/simd"

// simdEngine routes every call through the package-level ISA kernels.
type simdEngine struct {
	metric Metric
}

func (e *simdEngine) Metric() Metric   { return e.metric }
func (e *simdEngine) Backend() Backend { return BackendSIMD }

func (e *simdEngine) Distance(a, b []float32) float32 {
	switch e.metric {
	case Euclidean:
		return sqrt32(simd.SquaredL2(a, b))
	case Cosine:
		return cosineFromParts(simd.DotAndNorms(a, b))
	case DotProduct:
		return 1 - simd.Dot(a, b)
	case Hamming:
		return float32(simd.Hamming(a, b))
	case Jaccard:
		return jaccardFromCounts(simd.Jaccard(a, b))
	default:
		return 0
	}
}

func (e *simdEngine) BatchDistance(query []float32, candidates [][]float32, dst []float32) []float32 {
	return batchLoop(e, query, candidates, dst)
}
