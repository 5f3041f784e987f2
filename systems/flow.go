package systems

import (
	"github.com/pthm-cable/hourglass/components"
	"github.com/pthm-cable/hourglass/config"
)

// FlowOutcome is the result of gating one grain in one sub-step.
type FlowOutcome uint8

const (
	FlowNone    FlowOutcome = iota // Grain did not reach the neck plane
	FlowPassed                     // Crossed and paid one unit of budget
	FlowBlocked                    // Crossed without budget; pushed back
)

// FlowGate limits how many grains may cross the neck per unit time.
// The budget refills proportionally to grain count and how upright the
// vessel is; each crossing spends one unit.
type FlowGate struct {
	vessel Vessel
	cfg    config.FlowConfig

	budget float64
}

// NewFlowGate creates a gate with an empty budget.
func NewFlowGate(v Vessel, cfg config.FlowConfig) *FlowGate {
	return &FlowGate{vessel: v, cfg: cfg}
}

// Budget returns the remaining crossing budget.
func (f *FlowGate) Budget() float64 {
	return f.budget
}

// Ceiling returns the budget cap for a population of n grains.
func (f *FlowGate) Ceiling(n int) float64 {
	return float64(n) * f.cfg.MaxShare
}

// Reset sets the budget for a freshly filled vessel of n grains.
func (f *FlowGate) Reset(n int) {
	f.budget = clampFloat(float64(n)*f.cfg.RefillShare, 0, f.Ceiling(n))
}

// Clamp re-applies the budget range after the population changed.
func (f *FlowGate) Clamp(n int) {
	f.budget = clampFloat(f.budget, 0, f.Ceiling(n))
}

// Rate returns the budget replenishment per second.
func (f *FlowGate) Rate(n int, verticalPower float64) float64 {
	return float64(n)*f.cfg.Factor*verticalPower + f.cfg.Constant
}

// Replenish adds budget for an elapsed slice dt.
func (f *FlowGate) Replenish(n int, verticalPower, dt float64) {
	f.budget = clampFloat(f.budget+f.Rate(n, verticalPower)*dt, 0, f.Ceiling(n))
}

// Active reports whether gating applies at the given vertical power.
func (f *FlowGate) Active(verticalPower float64) bool {
	return verticalPower > f.cfg.GateMinPower
}

// Gate accounts one grain after integration. gy is the vertical gravity
// component; its sign gives the flow direction. Any grain whose chamber
// changed to the downstream side since it was last accounted is a
// crossing, wherever it passed the neck plane and whatever moved it there.
// Moving back upstream is free.
func (f *FlowGate) Gate(g *components.Grain, gy float64) FlowOutcome {
	side := int8(g.Chamber())
	if g.Side == 0 || g.Side == side {
		g.Side = side
		return FlowNone
	}

	downstream := int8(1)
	if gy < 0 {
		downstream = -1
	}
	if side != downstream {
		g.Side = side
		return FlowNone
	}

	if f.budget >= 1 {
		f.budget--
		g.Side = side
		return FlowPassed
	}

	// Out of budget: hold the grain at the upstream edge of the band
	g.Pos.Y = -float64(downstream) * f.vessel.NeckBand
	if g.Vel.Y*gy > 0 {
		g.Vel.Y *= -f.cfg.BlockRebound
	}
	g.Vel.X *= f.cfg.BlockDamping
	g.Vel.Z *= f.cfg.BlockDamping
	return FlowBlocked
}
