package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("unit length", func(t *testing.T) {
		v := Normalize([]float32{3, 4})
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("zero vector stays zero", func(t *testing.T) {
		v := Normalize([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("empty vector", func(t *testing.T) {
		assert.Empty(t, Normalize(nil))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []float32{2, 0}
		_ = Normalize(in)
		assert.Equal(t, []float32{2, 0}, in)
	})
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "scale invariant", a: []float32{1, 1}, b: []float32{5, 5}, want: 1},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosine_Deterministic(t *testing.T) {
	a := []float32{0.1234, -0.9876, 0.5555, 0.3141}
	b := []float32{0.2718, 0.1618, -0.4142, 0.7071}
	first := Cosine(a, b)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Cosine(a, b))
	}
}

func TestClip01(t *testing.T) {
	assert.Equal(t, 0.0, Clip01(-0.3))
	assert.Equal(t, 0.0, Clip01(math.NaN()))
	assert.Equal(t, 1.0, Clip01(1.2))
	assert.Equal(t, 0.42, Clip01(0.42))
}

func TestSimilarity_AlwaysInUnitRange(t *testing.T) {
	vecs := [][]float32{
		{1, 0, 0},
		{-1, 0, 0},
		{0.3, -0.7, 0.2},
		{-0.9, -0.1, 0.4},
		{0, 0, 0},
	}
	for _, a := range vecs {
		for _, b := range vecs {
			s := Similarity(a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}
