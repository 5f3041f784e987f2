// Package main provides Nelder-Mead calibration of the neck flow limiter so
// a full vessel drains in a target time.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/hourglass/config"
)

// EvalRecord is one row of the evaluation log.
type EvalRecord struct {
	Eval     int     `csv:"eval"`
	Fitness  float64 `csv:"fitness"`
	DrainSec float64 `csv:"drain_sec"`
	Factor   float64 `csv:"flow_factor"`
	Constant float64 `csv:"flow_constant"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	grains := flag.Int("grains", 1000, "Grain count per run")
	target := flag.Float64("target", 60, "Target drain time in simulated seconds")
	maxSec := flag.Float64("max-sec", 0, "Give up on a run after this many simulated seconds (0 = 3x target)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 60, "Maximum number of evaluations")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if *maxSec <= 0 {
		*maxSec = 3 * *target
	}

	// Simulation lifecycle logs are noise here
	slog.SetLogLoggerLevel(slog.LevelWarn)

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	// Load base config
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, baseCfg, evalSeeds, *grains, *target, *maxSec)

	// Track evaluations and timing
	var records []EvalRecord
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(raw)
			drain := evaluator.LastDrainSec()

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = raw
			}
			records = append(records, EvalRecord{
				Eval:     len(records) + 1,
				Fitness:  fitness,
				DrainSec: drain,
				Factor:   raw[0],
				Constant: raw[1],
			})

			elapsed := time.Since(startTime)
			fmt.Printf("Eval %d/%d: drain=%.1fs target=%.1fs fitness=%.4f (best=%.4f) | elapsed: %s\n",
				len(records), *maxEvals, drain, *target, fitness, bestFitness, formatDuration(elapsed))
			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential; seeds already run in parallel
	}
	method := &optimize.NelderMead{SimplexSize: 0.2}

	fmt.Printf("Starting Nelder-Mead calibration with %d parameters, max_evals=%d\n", params.Dim(), *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, grains: %d, target: %.1fs\n", *seeds, *grains, *target)

	initX := params.Normalize(params.ExtractFromConfig(baseCfg))
	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("calibration ended: %v", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	fmt.Printf("\nCalibration complete after %d evaluations in %s\n", len(records), formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.6f\n", bestFitness)

	if err := writeRecords(filepath.Join(*outputDir, "calibrate_log.csv"), records); err != nil {
		log.Printf("failed to write evaluation log: %v", err)
	}
	if bestParams == nil {
		return
	}

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Path, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}

// writeRecords writes the evaluation log as CSV.
func writeRecords(path string, records []EvalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
