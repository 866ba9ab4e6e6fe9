package distance

import "math"

// scalarEngine is the reference backend. It accumulates in float64 so it is
// the most accurate of the backends and the one others are checked against.
type scalarEngine struct {
	metric Metric
}

func (e *scalarEngine) Metric() Metric   { return e.metric }
func (e *scalarEngine) Backend() Backend { return BackendScalar }

func (e *scalarEngine) Distance(a, b []float32) float32 {
	switch e.metric {
	case Euclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return float32(math.Sqrt(sum))
	case Cosine:
		var dot, na, nb float64
		for i := range a {
			x, y := float64(a[i]), float64(b[i])
			dot += x * y
			na += x * x
			nb += y * y
		}
		if na == 0 || nb == 0 {
			return 1
		}
		return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
	case DotProduct:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return float32(1 - dot)
	case Hamming:
		var n int
		for i := range a {
			if a[i] != b[i] {
				n++
			}
		}
		return float32(n)
	case Jaccard:
		var in, un int
		for i := range a {
			x, y := a[i] != 0, b[i] != 0
			if x && y {
				in++
			}
			if x || y {
				un++
			}
		}
		return jaccardFromCounts(in, un)
	default:
		return float32(math.Inf(1))
	}
}

func (e *scalarEngine) BatchDistance(query []float32, candidates [][]float32, dst []float32) []float32 {
	return batchLoop(e, query, candidates, dst)
}

func sqrt32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
