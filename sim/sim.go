// Package sim owns the hourglass simulation context: the grain store, the
// tilt state, the flow budget and the per-step pipeline that drives the
// physics systems.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hourglass/components"
	"github.com/pthm-cable/hourglass/config"
	"github.com/pthm-cable/hourglass/systems"
	"github.com/pthm-cable/hourglass/telemetry"
)

// Options configures a new Simulation.
type Options struct {
	Config         *config.Config // nil = embedded defaults
	Seed           int64          // 0 = time-based
	LogStats       bool
	StatsWindowSec float64 // 0 = use config
	OutputDir      string  // empty = no CSV output
	StatsCallback  func(telemetry.WindowStats)
}

// Simulation is the complete simulation state. It has a single writer:
// callers must not use it from more than one goroutine.
type Simulation struct {
	cfg     *config.Config
	rng     *rand.Rand
	rngSeed int64

	vessel     systems.Vessel
	boundary   *systems.Boundary
	collisions *systems.CollisionSolver
	flow       *systems.FlowGate
	sampler    *systems.Sampler

	grains []components.Grain

	// Tilt
	angle       float64
	angleVel    float64
	targetAngle float64
	dragging    bool

	// State
	tick          int32
	simTime       float64
	neckTraffic   int
	totalPassed   int
	totalBlocked  int
	lastCollision systems.CollisionStats

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool
	statsCallback    func(telemetry.WindowStats)
}

// New creates a simulation filled with the configured initial grain count.
func New(opts Options) (*Simulation, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	vessel := systems.NewVessel(cfg.Vessel)
	boundary := systems.NewBoundary(vessel, cfg)

	s := &Simulation{
		cfg:              cfg,
		rng:              rng,
		rngSeed:          seed,
		vessel:           vessel,
		boundary:         boundary,
		collisions:       systems.NewCollisionSolver(cfg, boundary),
		flow:             systems.NewFlowGate(vessel, cfg.Flow),
		sampler:          systems.NewSampler(vessel, cfg.Grain.Radius, cfg.Grain.InitialSpeed, rng),
		grains:           make([]components.Grain, 0, cfg.Grain.Max),
		collector:        telemetry.NewCollector(statsWindow, cfg.Simulation.DT),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize, cfg.Telemetry),
		outputManager:    om,
		logStats:         opts.LogStats,
		statsCallback:    opts.StatsCallback,
	}

	s.Refill(cfg.Grain.Initial)
	return s, nil
}

// Close flushes and closes any output files.
func (s *Simulation) Close() error {
	return s.outputManager.Close()
}

// Config returns the configuration the simulation runs with.
func (s *Simulation) Config() *config.Config { return s.cfg }

// Seed returns the RNG seed the simulation was created with.
func (s *Simulation) Seed() int64 { return s.rngSeed }

// Vessel returns the container geometry.
func (s *Simulation) Vessel() systems.Vessel { return s.vessel }

// Grains returns the current grains. The slice is a read-only view owned
// by the simulation and is only valid until the next mutating call.
func (s *Simulation) Grains() []components.Grain { return s.grains }

// Positions appends every grain position to dst and returns it.
func (s *Simulation) Positions(dst []r3.Vec) []r3.Vec {
	for i := range s.grains {
		dst = append(dst, s.grains[i].Pos)
	}
	return dst
}

// Count returns the number of grains.
func (s *Simulation) Count() int { return len(s.grains) }

// Tick returns the number of completed steps.
func (s *Simulation) Tick() int32 { return s.tick }

// SimTime returns the simulated seconds elapsed.
func (s *Simulation) SimTime() float64 { return s.simTime }

// FlowBudget returns the remaining neck crossing budget.
func (s *Simulation) FlowBudget() float64 { return s.flow.Budget() }

// FlowTotals returns the cumulative number of grains passed and blocked at
// the neck.
func (s *Simulation) FlowTotals() (passed, blocked int) {
	return s.totalPassed, s.totalBlocked
}

// NeckTraffic returns the number of grains in the neck after the last step.
func (s *Simulation) NeckTraffic() int { return s.neckTraffic }

// LastCollision returns the collision stats of the last sub-step that ran
// the solver.
func (s *Simulation) LastCollision() systems.CollisionStats { return s.lastCollision }

// FlowDirection returns +1 when grains fall toward +y and -1 otherwise.
func (s *Simulation) FlowDirection() int {
	if math.Cos(s.angle) >= 0 {
		return 1
	}
	return -1
}

// ChamberCounts returns the number of grains below and above the neck plane.
func (s *Simulation) ChamberCounts() (lower, upper int) {
	for i := range s.grains {
		if s.grains[i].Chamber() < 0 {
			lower++
		} else {
			upper++
		}
	}
	return lower, upper
}

// Validate returns an error for the first grain holding a NaN or infinite
// component. Any such grain is a solver defect.
func (s *Simulation) Validate() error {
	for i := range s.grains {
		if !s.grains[i].Finite() {
			g := s.grains[i]
			return fmt.Errorf("grain %d is not finite at tick %d: pos=%v vel=%v", i, s.tick, g.Pos, g.Vel)
		}
	}
	return nil
}

// logger returns a logger tagged with the current tick.
func (s *Simulation) logger() *slog.Logger {
	return slog.With("tick", s.tick)
}
