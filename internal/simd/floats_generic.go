package simd

func dotGeneric(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}

	return ret
}

func squaredL2Generic(a, b []float32) float32 {
	var distance float32
	for i := range a {
		d := a[i] - b[i]
		distance += d * d
	}

	return distance
}

func dotAndNormsGeneric(a, b []float32) (dot, normA, normB float32) {
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	return dot, normA, normB
}

func scaleGeneric(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

func hammingGeneric(a, b []float32) int {
	var n int
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

func jaccardGeneric(a, b []float32) (intersection, union int) {
	for i := range a {
		x, y := a[i] != 0, b[i] != 0
		if x && y {
			intersection++
		}
		if x || y {
			union++
		}
	}
	return intersection, union
}
