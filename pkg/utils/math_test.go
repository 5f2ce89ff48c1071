package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("normalized = %v", v)
	}

	zero := []float32{0, 0, 0}
	NormalizeL2(zero)
	for _, x := range zero {
		if x != 0 {
			t.Error("zero vector must stay zero")
		}
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	tests := []struct {
		p    float64
		want float64
	}{
		{50, 50},
		{95, 100},
		{99, 100},
		{10, 10},
		{100, 100},
	}
	for _, tt := range tests {
		if got := Percentile(values, tt.p); got != tt.want {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("empty input = %v, want 0", got)
	}
	if got := Percentile([]float64{7}, 99); got != 7 {
		t.Errorf("single value = %v", got)
	}
}
