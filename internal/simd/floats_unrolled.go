package simd

// Multi-accumulator kernels. Independent accumulators break the add dependency
// chain so the compiler can keep several lanes in flight; the summation order
// differs from the generic loop, so results agree only up to float rounding.

func dotUnroll4(a, b []float32) float32 {
	n := len(a)
	b = b[:n]
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < n; i++ {
		s0 += a[i] * b[i]
	}
	return (s0 + s1) + (s2 + s3)
}

func dotUnroll8(a, b []float32) float32 {
	n := len(a)
	b = b[:n]
	var s0, s1, s2, s3, s4, s5, s6, s7 float32
	i := 0
	for ; i+8 <= n; i += 8 {
		x := a[i : i+8 : i+8]
		y := b[i : i+8 : i+8]
		s0 += x[0] * y[0]
		s1 += x[1] * y[1]
		s2 += x[2] * y[2]
		s3 += x[3] * y[3]
		s4 += x[4] * y[4]
		s5 += x[5] * y[5]
		s6 += x[6] * y[6]
		s7 += x[7] * y[7]
	}
	for ; i < n; i++ {
		s0 += a[i] * b[i]
	}
	return ((s0 + s1) + (s2 + s3)) + ((s4 + s5) + (s6 + s7))
}

func dotUnroll16(a, b []float32) float32 {
	n := len(a)
	b = b[:n]
	var lo, hi [8]float32
	i := 0
	for ; i+16 <= n; i += 16 {
		x := a[i : i+16 : i+16]
		y := b[i : i+16 : i+16]
		for j := 0; j < 8; j++ {
			lo[j] += x[j] * y[j]
			hi[j] += x[j+8] * y[j+8]
		}
	}
	var tail float32
	for ; i < n; i++ {
		tail += a[i] * b[i]
	}
	return sum8(lo) + sum8(hi) + tail
}

func squaredL2Unroll4(a, b []float32) float32 {
	n := len(a)
	b = b[:n]
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= n; i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < n; i++ {
		d := a[i] - b[i]
		s0 += d * d
	}
	return (s0 + s1) + (s2 + s3)
}

func squaredL2Unroll8(a, b []float32) float32 {
	n := len(a)
	b = b[:n]
	var s [8]float32
	i := 0
	for ; i+8 <= n; i += 8 {
		x := a[i : i+8 : i+8]
		y := b[i : i+8 : i+8]
		for j := 0; j < 8; j++ {
			d := x[j] - y[j]
			s[j] += d * d
		}
	}
	var tail float32
	for ; i < n; i++ {
		d := a[i] - b[i]
		tail += d * d
	}
	return sum8(s) + tail
}

func squaredL2Unroll16(a, b []float32) float32 {
	n := len(a)
	b = b[:n]
	var lo, hi [8]float32
	i := 0
	for ; i+16 <= n; i += 16 {
		x := a[i : i+16 : i+16]
		y := b[i : i+16 : i+16]
		for j := 0; j < 8; j++ {
			d0 := x[j] - y[j]
			d1 := x[j+8] - y[j+8]
			lo[j] += d0 * d0
			hi[j] += d1 * d1
		}
	}
	var tail float32
	for ; i < n; i++ {
		d := a[i] - b[i]
		tail += d * d
	}
	return sum8(lo) + sum8(hi) + tail
}

func dotAndNormsUnroll4(a, b []float32) (dot, normA, normB float32) {
	n := len(a)
	b = b[:n]
	var d [4]float32
	var na [4]float32
	var nb [4]float32
	i := 0
	for ; i+4 <= n; i += 4 {
		for j := 0; j < 4; j++ {
			x, y := a[i+j], b[i+j]
			d[j] += x * y
			na[j] += x * x
			nb[j] += y * y
		}
	}
	for ; i < n; i++ {
		x, y := a[i], b[i]
		d[0] += x * y
		na[0] += x * x
		nb[0] += y * y
	}
	return (d[0] + d[1]) + (d[2] + d[3]),
		(na[0] + na[1]) + (na[2] + na[3]),
		(nb[0] + nb[1]) + (nb[2] + nb[3])
}

func dotAndNormsUnroll8(a, b []float32) (dot, normA, normB float32) {
	n := len(a)
	b = b[:n]
	var d, na, nb [8]float32
	i := 0
	for ; i+8 <= n; i += 8 {
		x := a[i : i+8 : i+8]
		y := b[i : i+8 : i+8]
		for j := 0; j < 8; j++ {
			d[j] += x[j] * y[j]
			na[j] += x[j] * x[j]
			nb[j] += y[j] * y[j]
		}
	}
	var td, ta, tb float32
	for ; i < n; i++ {
		x, y := a[i], b[i]
		td += x * y
		ta += x * x
		tb += y * y
	}
	return sum8(d) + td, sum8(na) + ta, sum8(nb) + tb
}

func scaleUnroll4(a []float32, scalar float32) {
	n := len(a)
	i := 0
	for ; i+4 <= n; i += 4 {
		a[i] *= scalar
		a[i+1] *= scalar
		a[i+2] *= scalar
		a[i+3] *= scalar
	}
	for ; i < n; i++ {
		a[i] *= scalar
	}
}

func hammingUnroll4(a, b []float32) int {
	n := len(a)
	b = b[:n]
	var c0, c1, c2, c3 int
	i := 0
	for ; i+4 <= n; i += 4 {
		c0 += neq(a[i], b[i])
		c1 += neq(a[i+1], b[i+1])
		c2 += neq(a[i+2], b[i+2])
		c3 += neq(a[i+3], b[i+3])
	}
	for ; i < n; i++ {
		c0 += neq(a[i], b[i])
	}
	return c0 + c1 + c2 + c3
}

func jaccardUnroll4(a, b []float32) (intersection, union int) {
	n := len(a)
	b = b[:n]
	var in0, in1, un0, un1 int
	i := 0
	for ; i+2 <= n; i += 2 {
		x0, y0 := nz(a[i]), nz(b[i])
		x1, y1 := nz(a[i+1]), nz(b[i+1])
		in0 += x0 & y0
		un0 += x0 | y0
		in1 += x1 & y1
		un1 += x1 | y1
	}
	for ; i < n; i++ {
		x, y := nz(a[i]), nz(b[i])
		in0 += x & y
		un0 += x | y
	}
	return in0 + in1, un0 + un1
}

func sum8(s [8]float32) float32 {
	return ((s[0] + s[1]) + (s[2] + s[3])) + ((s[4] + s[5]) + (s[6] + s[7]))
}

func neq(x, y float32) int {
	if x != y {
		return 1
	}
	return 0
}

func nz(x float32) int {
	if x != 0 {
		return 1
	}
	return 0
}
