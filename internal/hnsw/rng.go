package hnsw

import "sync/atomic"

const (
	defaultSeed  uint64 = 0x9E3779B97F4A7C15
	probeSeedMix uint64 = 0xD1B54A32D192ED03
)

// rng is a xorshift64 generator whose state is advanced with a CAS loop, so
// concurrent callers never block each other and never observe a torn state.
type rng struct {
	state atomic.Uint64
}

func (r *rng) seed(s uint64) {
	if s == 0 {
		s = defaultSeed
	}
	r.state.Store(s)
}

func (r *rng) next() uint64 {
	for {
		old := r.state.Load()
		x := old
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		if r.state.CompareAndSwap(old, x) {
			return x
		}
	}
}

// float64 returns a value in (0, 1].
func (r *rng) float64() float64 {
	return float64(r.next()>>11+1) / (1 << 53)
}

// intn returns a value in [0, n).
func (r *rng) intn(n int) int {
	return int(r.next() % uint64(n))
}
