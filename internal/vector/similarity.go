package vector

import "math"

// CosineSimilarity returns dot(a,b) / (|a| * |b|). A zero-norm operand yields
// 0 rather than dividing by zero. Mismatched lengths also yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return cosine(a, norm(a), b, norm(b))
}

// cosine computes cosine similarity with precomputed norms.
func cosine(a []float32, normA float64, b []float32, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

// norm returns the L2 norm of x.
func norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
