package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pthm-cable/hourglass/config"
	"github.com/pthm-cable/hourglass/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	grains := flag.Int("grains", 0, "Grain count (0 = use config)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	flipEvery := flag.Int("flip-every", 0, "Request a flip every N ticks (0 = never)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	check := flag.Bool("check", false, "Validate every grain after each tick and exit on the first NaN")
	plot := flag.Bool("plot", false, "Print a chart of chamber counts and flow rate per stats window on exit")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *grains > 0 {
		cfg.Grain.Initial = cfg.ClampCount(*grains)
	}

	var history windowHistory
	s, err := sim.New(sim.Options{
		Config:         cfg,
		Seed:           *seed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		StatsCallback:  history.record,
	})
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}

	slog.Info("starting headless simulation",
		"seed", s.Seed(),
		"grains", s.Count(),
		"max_ticks", *maxTicks,
		"flip_every", *flipEvery,
		"output_dir", *outputDir,
	)

	code := run(s, cfg.Simulation.DT, *maxTicks, *flipEvery, *check)
	if *plot {
		if chart := history.render(60, 10); chart != "" {
			fmt.Println(chart)
		}
	}
	if err := s.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
		code = 1
	}
	os.Exit(code)
}

// run steps the simulation until maxTicks and returns the process exit code.
func run(s *sim.Simulation, dt float64, maxTicks, flipEvery int, check bool) int {
	for {
		if flipEvery > 0 && s.Tick() > 0 && int(s.Tick())%flipEvery == 0 {
			s.RequestFlip()
		}

		s.Step(dt)

		if check {
			if err := s.Validate(); err != nil {
				slog.Error("simulation check failed", "error", err)
				return 1
			}
		}

		if maxTicks > 0 && int(s.Tick()) >= maxTicks {
			passed, blocked := s.FlowTotals()
			lower, upper := s.ChamberCounts()
			slog.Info("max ticks reached",
				"tick", s.Tick(),
				"sim_time", s.SimTime(),
				"passed", passed,
				"blocked", blocked,
				"lower", lower,
				"upper", upper,
				"angle", s.Angle(),
			)
			return 0
		}
	}
}
