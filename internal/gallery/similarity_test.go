package gallery

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"identical unit vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1.0},
		{"identical non-unit", []float32{3, 4}, []float32{3, 4}, 1.0},
		{"mismatched lengths", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"empty", nil, nil, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := CosineSimilarity(tc.a, tc.b)
			if math.Abs(result-tc.expected) > 1e-9 {
				t.Errorf("CosineSimilarity(%v, %v) = %f; want %f", tc.a, tc.b, result, tc.expected)
			}
		})
	}
}

func TestCosineSimilarity_Clamped(t *testing.T) {
	// Parallel vectors whose norms invite floating point drift must still
	// stay within [-1, 1].
	a := []float32{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}
	b := []float32{0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3}

	result := CosineSimilarity(a, b)
	if result > 1 || result < -1 {
		t.Errorf("CosineSimilarity out of range: %f", result)
	}
	if math.Abs(result-1.0) > 1e-6 {
		t.Errorf("parallel vectors should score ~1.0, got %f", result)
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1.0) > 1e-6 {
		t.Errorf("normalized vector has squared norm %f; want 1.0", norm)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("Normalize([3, 4]) = %v; want [0.6, 0.8]", v)
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	for i, x := range v {
		if x != 0 {
			t.Errorf("zero vector changed at index %d: %f", i, x)
		}
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []float32{3, 4}
	_ = Normalize(in)
	if in[0] != 3 || in[1] != 4 {
		t.Errorf("input mutated: %v", in)
	}
}
