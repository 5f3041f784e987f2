// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Vessel     VesselConfig     `yaml:"vessel"`
	Grain      GrainConfig      `yaml:"grain"`
	Material   MaterialConfig   `yaml:"material"`
	Collision  CollisionConfig  `yaml:"collision"`
	Flow       FlowConfig       `yaml:"flow"`
	Flip       FlipConfig       `yaml:"flip"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// VesselConfig describes the bi-conical container.
// Radius grows linearly from the neck (y=0) to the caps (|y|=HalfHeight).
type VesselConfig struct {
	HalfHeight float64 `yaml:"half_height"`
	BodyRadius float64 `yaml:"body_radius"`
	NeckRadius float64 `yaml:"neck_radius"`
	NeckBand   float64 `yaml:"neck_band"` // Half-thickness of the gated band around y=0
}

// GrainConfig holds per-grain and population parameters.
type GrainConfig struct {
	Radius       float64 `yaml:"radius"`
	Initial      int     `yaml:"initial"`
	Min          int     `yaml:"min"`
	Max          int     `yaml:"max"`
	SourceShare  float64 `yaml:"source_share"`  // Fraction of a refill placed in the feeding chamber
	InitialSpeed float64 `yaml:"initial_speed"` // Half-width of the uniform initial velocity range
}

// MaterialConfig holds contact and medium coefficients.
type MaterialConfig struct {
	Gravity         float64 `yaml:"gravity"`
	AirDrag         float64 `yaml:"air_drag"` // Per-1/60s velocity retention
	WallBounce      float64 `yaml:"wall_bounce"`
	CapBounce       float64 `yaml:"cap_bounce"`
	WallFriction    float64 `yaml:"wall_friction"`
	SurfaceFriction float64 `yaml:"surface_friction"`
}

// Tier maps a grain count ceiling to a value. Tiers are checked in order;
// the first with Count <= MaxGrains wins.
type Tier struct {
	MaxGrains int `yaml:"max_grains"`
	Value     int `yaml:"value"`
}

// CollisionConfig holds collision solver parameters.
type CollisionConfig struct {
	CellSize     float64 `yaml:"cell_size"`
	HashBound    float64 `yaml:"hash_bound"`  // Offset applied before quantizing positions
	HashOffset   int     `yaml:"hash_offset"` // Keeps packed cell coordinates non-negative
	Restitution  float64 `yaml:"restitution"`
	Friction     float64 `yaml:"friction"` // Tangential Coulomb coefficient (0 disables)
	Push         float64 `yaml:"push"`     // Fraction of overlap corrected per pass, (0, 1]
	SleepSpeed   float64 `yaml:"sleep_speed"`
	SleepDamping float64 `yaml:"sleep_damping"`
	Passes       []Tier  `yaml:"passes"` // Passes per step; counts above every tier skip collisions
}

// FlowConfig holds neck throughput limiter parameters.
type FlowConfig struct {
	Factor         float64 `yaml:"factor"`           // Budget per grain per second at full vertical power
	Constant       float64 `yaml:"constant"`         // Budget per second independent of count
	MaxShare       float64 `yaml:"max_share"`        // Budget ceiling as a fraction of grain count
	RefillShare    float64 `yaml:"refill_share"`     // Budget after refill as a fraction of grain count
	GateMinPower   float64 `yaml:"gate_min_power"`   // Gate only runs above this vertical power
	SettleMinPower float64 `yaml:"settle_min_power"` // Floor settle damping runs above this
	BlockRebound   float64 `yaml:"block_rebound"`    // Fraction of vy reversed on a blocked grain
	BlockDamping   float64 `yaml:"block_damping"`    // Lateral damping on a blocked grain
}

// FlipConfig holds tilt spring parameters.
type FlipConfig struct {
	Spring  float64 `yaml:"spring"`
	Damping float64 `yaml:"damping"`
	Epsilon float64 `yaml:"epsilon"` // Snap threshold for both angle error and angular velocity
}

// SimulationConfig holds stepping parameters.
type SimulationConfig struct {
	DT         float64 `yaml:"dt"`
	MinFrameDT float64 `yaml:"min_frame_dt"`
	MaxFrameDT float64 `yaml:"max_frame_dt"`
	SubSteps   []Tier  `yaml:"sub_steps"` // Sub-steps per step; counts above every tier use 1
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	BookmarkHistorySize int     `yaml:"bookmark_history_size"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	RestSpeed           float64 `yaml:"rest_speed"`  // Mean speed below which a pile counts as at rest
	DrainShare          float64 `yaml:"drain_share"` // Source share below which a chamber counts as drained
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ConeSlope   float64 // (BodyRadius - NeckRadius) / HalfHeight
	InvCellSize float64 // 1 / Collision.CellSize
	Diameter    float64 // 2 * Grain.Radius
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate rejects parameter sets the solver cannot run with.
func (c *Config) Validate() error {
	v := c.Vessel
	var errs []error
	if v.HalfHeight <= 0 || v.BodyRadius <= 0 || v.NeckRadius <= 0 {
		errs = append(errs, errors.New("vessel dimensions must be positive"))
	}
	if v.NeckRadius >= v.BodyRadius {
		errs = append(errs, fmt.Errorf("neck_radius %g must be smaller than body_radius %g", v.NeckRadius, v.BodyRadius))
	}
	if c.Grain.Radius <= 0 || c.Grain.Radius*2 >= v.NeckRadius {
		errs = append(errs, fmt.Errorf("grain radius %g must be positive and fit through the neck", c.Grain.Radius))
	}
	if c.Grain.Min < 0 || c.Grain.Min > c.Grain.Max {
		errs = append(errs, fmt.Errorf("grain range [%d, %d] is invalid", c.Grain.Min, c.Grain.Max))
	}
	if c.Grain.SourceShare < 0 || c.Grain.SourceShare > 1 {
		errs = append(errs, fmt.Errorf("source_share %g outside [0, 1]", c.Grain.SourceShare))
	}
	if c.Collision.CellSize < c.Grain.Radius*2 {
		errs = append(errs, fmt.Errorf("cell_size %g smaller than a grain diameter", c.Collision.CellSize))
	}
	if c.Collision.Push <= 0 || c.Collision.Push > 1 {
		errs = append(errs, fmt.Errorf("push %g outside (0, 1]", c.Collision.Push))
	}
	if c.Flow.MaxShare <= 0 {
		errs = append(errs, errors.New("flow max_share must be positive"))
	}
	if c.Simulation.MinFrameDT <= 0 || c.Simulation.MinFrameDT > c.Simulation.MaxFrameDT {
		errs = append(errs, fmt.Errorf("frame dt range [%g, %g] is invalid", c.Simulation.MinFrameDT, c.Simulation.MaxFrameDT))
	}
	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ConeSlope = (c.Vessel.BodyRadius - c.Vessel.NeckRadius) / c.Vessel.HalfHeight
	c.Derived.InvCellSize = 1 / c.Collision.CellSize
	c.Derived.Diameter = c.Grain.Radius * 2
}

// TierValue returns the value of the first tier whose ceiling admits count,
// or fallback when count exceeds every tier.
func TierValue(tiers []Tier, count, fallback int) int {
	for _, t := range tiers {
		if count <= t.MaxGrains {
			return t.Value
		}
	}
	return fallback
}

// ClampCount clamps a requested grain count into the configured range.
func (c *Config) ClampCount(n int) int {
	if n < c.Grain.Min {
		return c.Grain.Min
	}
	if n > c.Grain.Max {
		return c.Grain.Max
	}
	return n
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
