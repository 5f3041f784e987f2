package telemetry

import (
	"math"
	"testing"
)

func TestComputeSpeedStats(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		wantMean float64
		wantP50  float64
		wantP90  float64
	}{
		{"empty slice", []float64{}, 0, 0, 0},
		{"single element", []float64{0.4}, 0.4, 0.4, 0.4},
		{"ascending", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5.5, 5, 9},
		{"unsorted", []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}, 5.5, 5, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, _, p50, p90 := ComputeSpeedStats(tt.values)
			if math.Abs(mean-tt.wantMean) > 1e-9 {
				t.Errorf("mean = %v, want %v", mean, tt.wantMean)
			}
			if math.Abs(p50-tt.wantP50) > 1e-9 {
				t.Errorf("p50 = %v, want %v", p50, tt.wantP50)
			}
			if math.Abs(p90-tt.wantP90) > 1e-9 {
				t.Errorf("p90 = %v, want %v", p90, tt.wantP90)
			}
		})
	}
}

func TestComputeSpeedStatsDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeSpeedStats(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input was modified: %v", values)
	}
}

func TestComputeSpeedStatsStd(t *testing.T) {
	_, std, _, _ := ComputeSpeedStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	// Sample (n-1) standard deviation
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(std-want) > 1e-9 {
		t.Errorf("std = %v, want %v", std, want)
	}
}
