package simd

import "gonum.org/v1/gonum/blas/gonum"

var blasEngine = gonum.Implementation{}

// dotBLAS delegates to the gonum Sdot, which dispatches to its own assembly
// kernels on amd64 and arm64.
func dotBLAS(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return blasEngine.Sdot(len(a), a, 1, b[:len(a)], 1)
}
