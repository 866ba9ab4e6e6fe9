package distance

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allMetrics = []Metric{Euclidean, Cosine, DotProduct, Hamming, Jaccard}

var allBackends = []Backend{BackendScalar, BackendSIMD, BackendNative, BackendAuto}

func TestKnownDistances(t *testing.T) {
	a := []float32{1, 0, 0, 0}
	b := []float32{0, 1, 0, 0}
	c := []float32{0.9, 0.1, 0, 0}

	for _, backend := range allBackends {
		t.Run(backend.String(), func(t *testing.T) {
			l2 := mustEngine(t, Euclidean, backend, 4)
			assert.InDelta(t, 0, l2.Distance(a, a), 1e-6)
			assert.InDelta(t, math.Sqrt2, l2.Distance(a, b), 1e-6)
			assert.InDelta(t, math.Sqrt(0.02), l2.Distance(a, c), 1e-6)

			cos := mustEngine(t, Cosine, backend, 4)
			assert.InDelta(t, 0, cos.Distance(a, a), 1e-6)
			assert.InDelta(t, 1, cos.Distance(a, b), 1e-6)
			assert.InDelta(t, 1, cos.Distance(a, []float32{0, 0, 0, 0}), 1e-6)

			dot := mustEngine(t, DotProduct, backend, 4)
			assert.InDelta(t, 0, dot.Distance(a, a), 1e-6)
			assert.InDelta(t, 1, dot.Distance(a, b), 1e-6)
			assert.InDelta(t, 0.1, dot.Distance(a, c), 1e-6)

			ham := mustEngine(t, Hamming, backend, 4)
			assert.Equal(t, float32(0), ham.Distance(a, a))
			assert.Equal(t, float32(2), ham.Distance(a, b))

			jac := mustEngine(t, Jaccard, backend, 4)
			assert.Equal(t, float32(0), jac.Distance(a, a))
			assert.Equal(t, float32(1), jac.Distance(a, b))
			assert.InDelta(t, 0.5, jac.Distance(a, c), 1e-6)
			assert.Equal(t, float32(0), jac.Distance([]float32{0, 0, 0, 0}, []float32{0, 0, 0, 0}))
		})
	}
}

func TestBackendsAgreeWithReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dims := []int{1, 3, 4, 8, 16, 17, 64, 100, 128, 384, 768, 1536}

	for _, m := range allMetrics {
		ref := Reference(m)
		for _, dim := range dims {
			for _, backend := range []Backend{BackendSIMD, BackendNative} {
				eng := mustEngine(t, m, backend, dim)
				for trial := 0; trial < 5; trial++ {
					a, b := randomPair(rng, m, dim)
					want := float64(ref.Distance(a, b))
					got := float64(eng.Distance(a, b))
					assert.InDelta(t, want, got, tolerance(want, dim),
						"metric=%s backend=%s dim=%d", m, backend, dim)
				}
			}
		}
	}
}

func TestBatchDistanceMatchesSingle(t *testing.T) {
	rng := rand.New(rand.NewSource(9))

	for _, m := range allMetrics {
		for _, backend := range allBackends {
			for _, dim := range []int{4, 32, 129} {
				eng := mustEngine(t, m, backend, dim)
				query, _ := randomPair(rng, m, dim)

				candidates := make([][]float32, 11)
				for i := range candidates {
					candidates[i], _ = randomPair(rng, m, dim)
				}

				out := eng.BatchDistance(query, candidates, nil)
				require.Len(t, out, len(candidates))
				for i, c := range candidates {
					want := float64(eng.Distance(query, c))
					assert.InDelta(t, want, float64(out[i]), tolerance(want, dim), "metric=%s backend=%s", m, backend)
				}

				// dst is reused from index zero
				reused := eng.BatchDistance(query, candidates[:2], out)
				assert.Len(t, reused, 2)
			}
		}
	}
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(Metric(99), BackendScalar, 4)
	require.Error(t, err)

	_, err = NewEngine(Euclidean, BackendScalar, 0)
	require.Error(t, err)

	_, err = NewEngine(Euclidean, Backend(99), 4)
	require.Error(t, err)

	eng, err := NewEngine(Cosine, BackendAuto, 16)
	require.NoError(t, err)
	assert.Equal(t, Cosine, eng.Metric())
	assert.NotEqual(t, BackendAuto, eng.Backend())
}

func TestParseMetric(t *testing.T) {
	cases := map[string]Metric{
		"euclidean": Euclidean,
		"L2":        Euclidean,
		"cosine":    Cosine,
		"dot":       DotProduct,
		"ip":        DotProduct,
		"hamming":   Hamming,
		" Jaccard ": Jaccard,
	}
	for in, want := range cases {
		got, err := ParseMetric(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMetric("manhattan")
	assert.Error(t, err)

	for _, m := range allMetrics {
		text, err := m.MarshalText()
		require.NoError(t, err)
		var back Metric
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, m, back)
	}
}

func TestParseBackend(t *testing.T) {
	for _, b := range allBackends {
		got, err := ParseBackend(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}

	got, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendAuto, got)

	_, err = ParseBackend("gpu")
	assert.Error(t, err)
}

func mustEngine(t *testing.T, m Metric, b Backend, dim int) Engine {
	t.Helper()
	eng, err := NewEngine(m, b, dim)
	require.NoError(t, err)
	return eng
}

// randomPair returns inputs suited to the metric: sparse 0/1 vectors for the
// set metrics and values in [-1, 1) otherwise.
func randomPair(rng *rand.Rand, m Metric, dim int) ([]float32, []float32) {
	a := make([]float32, dim)
	b := make([]float32, dim)
	for i := 0; i < dim; i++ {
		switch m {
		case Hamming, Jaccard:
			if rng.Intn(3) == 0 {
				a[i] = 1
			}
			if rng.Intn(3) == 0 {
				b[i] = 1
			}
		default:
			a[i] = rng.Float32()*2 - 1
			b[i] = rng.Float32()*2 - 1
		}
	}
	return a, b
}

func tolerance(want float64, dim int) float64 {
	rel := 1e-4 * math.Max(1, math.Sqrt(float64(dim)))
	return rel * math.Max(1, math.Abs(want))
}
