// Package vector holds the similarity math shared by matching and relevance scoring.
package vector

import "math"

// Normalize scales a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	// Calculate magnitude
	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// Cosine returns the cosine similarity of a and b in [-1,1].
// Mismatched lengths, empty vectors and zero vectors yield 0.
// Accumulation is done in float64 in index order so the result is
// bit-for-bit reproducible for identical inputs.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// rounding can push |sim| slightly past 1
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Clip01 clamps v to [0,1]. NaN clips to 0.
func Clip01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Similarity is Cosine clipped to [0,1].
func Similarity(a, b []float32) float64 {
	return Clip01(Cosine(a, b))
}
