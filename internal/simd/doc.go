// Package simd provides the vectorized float32 kernels behind the distance engines.
//
// # Supported Platforms
//
//   - x86-64: AVX2+FMA, AVX-512
//   - ARM64: NEON, SVE2
//
// Runtime CPU feature detection selects the kernel set once at init.
// Set HNSWDB_SIMD=generic to force the portable loops.
//
// # Operations
//
//   - Distance: Dot, SquaredL2, Norms, Hamming, Jaccard
//   - Batch: DotX4, SquaredL2X4, NormsX4, and KernelSet.DotBatch / SquaredL2Batch
//   - Utility: ScaleInPlace
//
// The wide kernels are written as multi-accumulator Go loops that the compiler
// keeps in vector registers; long dot products go through the gonum BLAS
// implementation, which carries its own assembly.
package simd
