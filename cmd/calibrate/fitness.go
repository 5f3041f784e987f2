package main

import (
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/hourglass/config"
	"github.com/pthm-cable/hourglass/sim"
)

// FitnessEvaluator runs headless drains and scores how far their duration
// is from the target.
type FitnessEvaluator struct {
	params     *ParamVector
	baseConfig *config.Config
	seeds      []int64
	grains     int
	targetSec  float64
	maxSec     float64

	mu           sync.Mutex
	lastDrainSec float64 // mean drain time from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. Runs give up after
// maxSec simulated seconds.
func NewFitnessEvaluator(params *ParamVector, baseCfg *config.Config, seeds []int64, grains int, targetSec, maxSec float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		baseConfig: baseCfg,
		seeds:      seeds,
		grains:     grains,
		targetSec:  targetSec,
		maxSec:     maxSec,
	}
}

// LastDrainSec returns the mean drain time from the most recent evaluation.
func (fe *FitnessEvaluator) LastDrainSec() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastDrainSec
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel; each simulation owns its state
	drains := make([]float64, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			drains[idx] = fe.runDrain(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	for _, d := range drains {
		total += d
	}
	mean := total / float64(len(drains))

	fe.mu.Lock()
	fe.lastDrainSec = mean
	fe.mu.Unlock()

	return computeFitness(mean, fe.targetSec)
}

// runDrain fills the vessel and returns the simulated seconds until the
// feeding chamber holds at most the configured drain share, or maxSec.
func (fe *FitnessEvaluator) runDrain(cfg *config.Config, seed int64) float64 {
	s, err := sim.New(sim.Options{Config: cfg, Seed: seed})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		return fe.maxSec
	}
	defer s.Close()

	s.Refill(fe.grains)
	limit := int(cfg.Telemetry.DrainShare * float64(s.Count()))
	dt := cfg.Simulation.DT

	for s.SimTime() < fe.maxSec {
		s.Step(dt)
		if lower, _ := s.ChamberCounts(); lower <= limit {
			return s.SimTime()
		}
	}
	return fe.maxSec
}

// copyConfig creates a copy of the base config. Tier slices are shared;
// they are never modified.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness is the squared relative error of the drain time.
func computeFitness(drainSec, targetSec float64) float64 {
	if targetSec <= 0 {
		return math.Inf(1)
	}
	rel := (drainSec - targetSec) / targetSec
	return rel * rel
}
