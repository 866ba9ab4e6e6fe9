// Package distance provides the pluggable distance engines used by the HNSW graph.
//
// Every engine returns a distance where lower means closer, whatever the
// underlying similarity, so graph code compares distances uniformly.
//
// # Supported Metrics
//
//   - Euclidean: sqrt(Σ(a-b)²)
//   - Cosine: 1 - a·b / (|a||b|)
//   - DotProduct: 1 - a·b
//   - Hamming: number of differing components
//   - Jaccard: 1 - |A∩B| / |A∪B| over the non-zero components
//
// # Backends
//
//   - BackendScalar: portable reference with float64 accumulation
//   - BackendSIMD: the ISA-wide kernels of internal/simd
//   - BackendNative: kernels chosen once by vector length and CPU features
//   - BackendAuto: native on SIMD-capable CPUs, scalar otherwise
//
// # Usage
//
//	eng, err := distance.NewEngine(distance.Cosine, distance.BackendAuto, 768)
//	d := eng.Distance(a, b)
package distance
