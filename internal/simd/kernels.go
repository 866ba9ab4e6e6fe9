package simd

// Kernel function pointers, set once at init. Generic implementations are the
// default; selectKernels swaps in the wide variants for the detected ISA.
var (
	kernelDot            = dotGeneric
	kernelSquaredL2      = squaredL2Generic
	kernelDotAndNorms    = dotAndNormsGeneric
	kernelScale          = scaleGeneric
	kernelHamming        = hammingGeneric
	kernelJaccard        = jaccardGeneric
)

func selectKernels(isa ISA) {
	set := kernelsFor(isa, 0)
	kernelDot = set.Dot
	kernelSquaredL2 = set.SquaredL2
	kernelDotAndNorms = set.DotAndNorms

	switch isa {
	case Generic:
		kernelScale = scaleGeneric
		kernelHamming = hammingGeneric
		kernelJaccard = jaccardGeneric
	default:
		kernelScale = scaleUnroll4
		kernelHamming = hammingUnroll4
		kernelJaccard = jaccardUnroll4
	}
}

// KernelSet is one consistent family of float32 kernels.
type KernelSet struct {
	Name        string
	Dot         func(a, b []float32) float32
	SquaredL2   func(a, b []float32) float32
	DotAndNorms func(a, b []float32) (dot, normA, normB float32)
	// DotBatch and SquaredL2Batch write one result per target into out,
	// which must hold len(targets) elements.
	DotBatch       func(query []float32, targets [][]float32, out []float32)
	SquaredL2Batch func(query []float32, targets [][]float32, out []float32)
}

func (s KernelSet) withBatch() KernelSet {
	s.DotBatch = batchOf(s.Dot)
	s.SquaredL2Batch = batchOf(s.SquaredL2)
	return s
}

func batchOf(kernel func(a, b []float32) float32) func([]float32, [][]float32, []float32) {
	return func(query []float32, targets [][]float32, out []float32) {
		out = out[:len(targets)]
		for i, t := range targets {
			out[i] = kernel(query, t)
		}
	}
}

// blasMinDim is the length from which the BLAS dot beats the unrolled loop.
const blasMinDim = 256

// KernelsFor picks the kernel family for an ISA and a fixed vector length.
// A dim of 0 means the length is unknown and selects by ISA alone.
func KernelsFor(isa ISA, dim int) KernelSet {
	return kernelsFor(isa, dim).withBatch()
}

func kernelsFor(isa ISA, dim int) KernelSet {
	if isa == Generic || (dim > 0 && dim < 8) {
		return KernelSet{
			Name:        "generic",
			Dot:         dotGeneric,
			SquaredL2:   squaredL2Generic,
			DotAndNorms: dotAndNormsGeneric,
		}
	}

	switch {
	case isa == AVX512 && (dim == 0 || dim%16 == 0):
		set := KernelSet{
			Name:        "unroll16",
			Dot:         dotUnroll16,
			SquaredL2:   squaredL2Unroll16,
			DotAndNorms: dotAndNormsUnroll8,
		}
		if dim >= blasMinDim {
			set.Name = "unroll16+blas"
			set.Dot = dotBLAS
		}
		return set
	case (isa == AVX2 || isa == AVX512) && (dim == 0 || dim%8 == 0):
		set := KernelSet{
			Name:        "unroll8",
			Dot:         dotUnroll8,
			SquaredL2:   squaredL2Unroll8,
			DotAndNorms: dotAndNormsUnroll8,
		}
		if dim >= blasMinDim {
			set.Name = "unroll8+blas"
			set.Dot = dotBLAS
		}
		return set
	default:
		return KernelSet{
			Name:        "unroll4",
			Dot:         dotUnroll4,
			SquaredL2:   squaredL2Unroll4,
			DotAndNorms: dotAndNormsUnroll4,
		}
	}
}

// Dot calculates the dot product of two vectors.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func Dot(a, b []float32) float32 {
	return kernelDot(a, b)
}

// SquaredL2 calculates the squared L2 distance.
//
// SAFETY: Assumes len(a) == len(b). Caller MUST ensure lengths match.
func SquaredL2(a, b []float32) float32 {
	return kernelSquaredL2(a, b)
}

// DotAndNorms returns a·b, |a|² and |b|² in a single pass.
func DotAndNorms(a, b []float32) (dot, normA, normB float32) {
	return kernelDotAndNorms(a, b)
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float32) {
	kernelScale(a, scalar)
}

// Hamming counts the positions where a and b differ.
func Hamming(a, b []float32) int {
	return kernelHamming(a, b)
}

// Jaccard returns the sizes of the intersection and union of the non-zero
// positions of a and b.
func Jaccard(a, b []float32) (intersection, union int) {
	return kernelJaccard(a, b)
}
