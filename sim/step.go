package sim

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hourglass/components"
	"github.com/pthm-cable/hourglass/config"
	"github.com/pthm-cable/hourglass/systems"
	"github.com/pthm-cable/hourglass/telemetry"
)

// Floor settle damping for grains resting on the downstream cap while the
// vessel is near upright.
const (
	settleBand     = 2.2 // grain radii above the cap
	settleLateral  = 0.9
	settleVertical = 0.58
)

// Neck traffic window, matching the band the falling stream occupies.
const (
	trafficBand   = 1.3  // neck bands
	trafficRadius = 0.68 // neck radii
)

// Frame advances the simulation by a real elapsed duration, clamped to the
// configured frame range.
func (s *Simulation) Frame(elapsed time.Duration) {
	s.perfCollector.RecordFrame(elapsed)
	dt := math.Min(math.Max(elapsed.Seconds(), s.cfg.Simulation.MinFrameDT), s.cfg.Simulation.MaxFrameDT)
	s.Step(dt)
}

// Step advances the simulation by one logical tick of dt seconds: the tilt
// controller runs once, then the physics runs in count-dependent sub-steps.
func (s *Simulation) Step(dt float64) {
	if dt <= 0 {
		return
	}

	s.perfCollector.StartStep(len(s.grains))

	s.perfCollector.StartPhase(telemetry.PhaseTilt)
	s.updateTilt(dt)

	subSteps := config.TierValue(s.cfg.Simulation.SubSteps, len(s.grains), 1)
	stepDt := dt / float64(subSteps)
	for i := 0; i < subSteps; i++ {
		s.subStep(stepDt)
	}

	s.tick++
	s.simTime += dt

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.neckTraffic = s.countNeckTraffic()
	s.collector.RecordNeckTraffic(s.neckTraffic)
	s.flushTelemetry()

	s.perfCollector.EndStep()
}

// subStep runs gravity, drag, integration, boundary, flow gating and floor
// settling for every grain, then the collision solver, then gates any grain
// the solver moved across the neck. The order is fixed.
func (s *Simulation) subStep(dt float64) {
	s.perfCollector.StartPhase(telemetry.PhaseIntegrate)

	cfg := s.cfg
	n := len(s.grains)
	r := cfg.Grain.Radius

	// Gravity rotates with the vessel
	gx := math.Sin(s.angle) * cfg.Material.Gravity
	gy := math.Cos(s.angle) * cfg.Material.Gravity
	verticalPower := math.Abs(math.Cos(s.angle))
	drag := math.Pow(cfg.Material.AirDrag, dt*60)

	s.flow.Replenish(n, verticalPower, dt)
	gate := s.flow.Active(verticalPower)

	settle := verticalPower > cfg.Flow.SettleMinPower
	floorY := cfg.Vessel.HalfHeight - r
	if gy < 0 {
		floorY = -floorY
	}

	for i := range s.grains {
		g := &s.grains[i]

		g.Vel.X += gx * dt
		g.Vel.Y += gy * dt
		g.Vel = r3.Scale(drag, g.Vel)
		g.Pos = r3.Add(g.Pos, r3.Scale(dt, g.Vel))

		s.boundary.Apply(g)

		if gate {
			s.gateGrain(g, gy)
		} else {
			g.MarkSide()
		}

		if settle && math.Abs(g.Pos.Y-floorY) < r*settleBand {
			g.Vel.X *= settleLateral
			g.Vel.Y *= settleVertical
			g.Vel.Z *= settleLateral
		}
	}

	passes := config.TierValue(cfg.Collision.Passes, n, 0)
	if passes == 0 {
		s.perfCollector.RecordSubStep(0, 0)
		return
	}

	s.perfCollector.StartPhase(telemetry.PhaseCollision)
	s.lastCollision = s.collisions.Solve(s.grains, passes)
	s.collector.RecordContacts(s.lastCollision.Contacts, s.lastCollision.MaxOverlap)
	s.perfCollector.RecordSubStep(s.lastCollision.Passes, s.lastCollision.Contacts)

	// Grains the solver pushed across the neck pay or go back like any other
	if gate {
		for i := range s.grains {
			s.gateGrain(&s.grains[i], gy)
		}
	}
}

// gateGrain runs the flow gate on one grain and records the outcome.
func (s *Simulation) gateGrain(g *components.Grain, gy float64) {
	switch s.flow.Gate(g, gy) {
	case systems.FlowPassed:
		s.totalPassed++
		s.collector.RecordPassed()
	case systems.FlowBlocked:
		s.boundary.Apply(g)
		s.totalBlocked++
		s.collector.RecordBlocked()
	}
}

// countNeckTraffic counts grains inside the narrow stream at the neck.
func (s *Simulation) countNeckTraffic() int {
	band := s.vessel.NeckBand * trafficBand
	rad := s.vessel.NeckRadius * trafficRadius
	radSq := rad * rad

	var n int
	for i := range s.grains {
		g := &s.grains[i]
		if math.Abs(g.Pos.Y) < band && g.Pos.X*g.Pos.X+g.Pos.Z*g.Pos.Z < radSq {
			n++
		}
	}
	return n
}
