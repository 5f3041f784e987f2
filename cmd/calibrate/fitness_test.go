package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/hourglass/config"
)

// TestComputeFitness verifies the score is zero at target and symmetric in
// relative error.
func TestComputeFitness(t *testing.T) {
	tests := []struct {
		name   string
		drain  float64
		target float64
		want   float64
	}{
		{"on target", 60, 60, 0},
		{"twice as slow", 120, 60, 1},
		{"instant", 0, 60, 1},
		{"ten percent fast", 54, 60, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeFitness(tt.drain, tt.target); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("computeFitness(%v, %v) = %v, want %v", tt.drain, tt.target, got, tt.want)
			}
		})
	}

	if got := computeFitness(10, 0); !math.IsInf(got, 1) {
		t.Errorf("zero target fitness = %v, want +Inf", got)
	}
}

// TestApplyToConfigClamps verifies out-of-range values are clamped before
// they reach the config.
func TestApplyToConfigClamps(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	pv.ApplyToConfig(cfg, []float64{1, -3})
	if cfg.Flow.Factor != pv.Specs[0].Max {
		t.Errorf("Flow.Factor = %v, want %v", cfg.Flow.Factor, pv.Specs[0].Max)
	}
	if cfg.Flow.Constant != pv.Specs[1].Min {
		t.Errorf("Flow.Constant = %v, want %v", cfg.Flow.Constant, pv.Specs[1].Min)
	}
}

// TestRunDrainStops verifies a short run terminates at the cap or earlier.
func TestRunDrainStops(t *testing.T) {
	cfg := config.Default()
	fe := NewFitnessEvaluator(NewParamVector(), cfg, []int64{1}, 200, 1, 0.5)

	got := fe.runDrain(cfg, 1)
	if got <= 0 || got > 0.5 {
		t.Errorf("runDrain = %v, want in (0, 0.5]", got)
	}
}
