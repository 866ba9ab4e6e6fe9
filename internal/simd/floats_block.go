package simd

// Register-blocked kernels: one pass over the query serves four candidates.

// DotX4 returns the dot products of q with a, b, c and d.
func DotX4(q, a, b, c, d []float32) [4]float32 {
	n := len(q)
	a, b, c, d = a[:n], b[:n], c[:n], d[:n]
	var s0, s1, s2, s3 float32
	for i, x := range q {
		s0 += x * a[i]
		s1 += x * b[i]
		s2 += x * c[i]
		s3 += x * d[i]
	}
	return [4]float32{s0, s1, s2, s3}
}

// SquaredL2X4 returns the squared L2 distances of q to a, b, c and d.
func SquaredL2X4(q, a, b, c, d []float32) [4]float32 {
	n := len(q)
	a, b, c, d = a[:n], b[:n], c[:n], d[:n]
	var s0, s1, s2, s3 float32
	for i, x := range q {
		d0 := x - a[i]
		d1 := x - b[i]
		d2 := x - c[i]
		d3 := x - d[i]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	return [4]float32{s0, s1, s2, s3}
}

// NormsX4 returns the squared norms of a, b, c and d.
func NormsX4(a, b, c, d []float32) [4]float32 {
	n := len(a)
	b, c, d = b[:n], c[:n], d[:n]
	var s0, s1, s2, s3 float32
	for i := 0; i < n; i++ {
		s0 += a[i] * a[i]
		s1 += b[i] * b[i]
		s2 += c[i] * c[i]
		s3 += d[i] * d[i]
	}
	return [4]float32{s0, s1, s2, s3}
}
