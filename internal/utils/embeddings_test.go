package utils

import (
	"math"
	"testing"
)

func TestDotProduct(t *testing.T) {
	got, err := DotProduct([]float32{1, 2, 3}, []float32{4, 5, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 32 {
		t.Errorf("expected 32, got %v", got)
	}
}

func TestDotProduct_DimensionMismatch(t *testing.T) {
	if _, err := DotProduct([]float32{1}, []float32{1, 2}); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
}

func TestCosineSimilarity_Identical(t *testing.T) {
	got, err := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("expected 1, got %v", got)
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	got, err := CosineSimilarity([]float32{0, 0}, []float32{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0 for zero vector, got %v", got)
	}
}
