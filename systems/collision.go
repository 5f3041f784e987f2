package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hourglass/components"
	"github.com/pthm-cable/hourglass/config"
)

// Contact thresholds. Pairs closer than coincidentDistSq have no usable
// normal and are skipped; tangential speeds below minTangential get no
// friction impulse.
const (
	coincidentDistSq = 1e-8
	minTangential    = 1e-6
	frictionShare    = 0.5
)

// CollisionStats summarizes one Solve call.
type CollisionStats struct {
	Passes     int
	Contacts   int     // Overlapping pairs resolved, summed over passes
	MaxOverlap float64 // Deepest penetration seen in the first pass
}

// CollisionSolver resolves grain-grain overlap with soft positional
// correction plus restitution and Coulomb friction impulses. Each pass is
// one Gauss-Seidel sweep over candidate pairs; more passes converge closer
// but never solve the contact system exactly.
type CollisionSolver struct {
	hash     *SpatialHash
	boundary *Boundary

	minDist      float64
	minDistSq    float64
	restitution  float64
	friction     float64
	push         float64
	sleepSpeedSq float64
	sleepDamping float64

	neighbors []int32 // scratch, reused across grains
}

// NewCollisionSolver creates a solver sharing the given boundary resolver.
func NewCollisionSolver(cfg *config.Config, boundary *Boundary) *CollisionSolver {
	c := cfg.Collision
	minDist := cfg.Derived.Diameter
	return &CollisionSolver{
		hash:         NewSpatialHash(cfg),
		boundary:     boundary,
		minDist:      minDist,
		minDistSq:    minDist * minDist,
		restitution:  c.Restitution,
		friction:     c.Friction,
		push:         c.Push,
		sleepSpeedSq: c.SleepSpeed * c.SleepSpeed,
		sleepDamping: c.SleepDamping,
		neighbors:    make([]int32, 0, 64),
	}
}

// Solve runs the given number of passes over all grains.
func (s *CollisionSolver) Solve(grains []components.Grain, passes int) CollisionStats {
	var stats CollisionStats
	for p := 0; p < passes; p++ {
		contacts, maxOverlap := s.pass(grains)
		stats.Contacts += contacts
		if p == 0 {
			stats.MaxOverlap = maxOverlap
		}
		stats.Passes++
	}
	return stats
}

// pass rebuilds the hash, resolves every candidate pair once, re-clamps to
// the vessel and damps near-stationary grains.
func (s *CollisionSolver) pass(grains []components.Grain) (contacts int, maxOverlap float64) {
	s.hash.Rebuild(grains)

	for i := range grains {
		a := &grains[i]
		s.neighbors = s.hash.QueryInto(s.neighbors[:0], a)

		for _, j := range s.neighbors {
			if int(j) <= i {
				continue
			}
			overlap, ok := s.resolvePair(a, &grains[j])
			if !ok {
				continue
			}
			contacts++
			if overlap > maxOverlap {
				maxOverlap = overlap
			}
		}
	}

	for i := range grains {
		s.boundary.Apply(&grains[i])
		s.sleep(&grains[i])
	}
	return contacts, maxOverlap
}

// resolvePair separates two grains and exchanges impulses.
// Returns the penetration depth before correction.
func (s *CollisionSolver) resolvePair(a, b *components.Grain) (float64, bool) {
	d := r3.Sub(b.Pos, a.Pos)
	distSq := r3.Norm2(d)
	if distSq >= s.minDistSq || distSq <= coincidentDistSq {
		return 0, false
	}

	dist := math.Sqrt(distSq)
	n := r3.Scale(1/dist, d)
	depth := s.minDist - dist

	// Equal masses: each grain takes half the correction
	corr := r3.Scale(depth*0.5*s.push, n)
	a.Pos = r3.Sub(a.Pos, corr)
	b.Pos = r3.Add(b.Pos, corr)

	rv := r3.Sub(b.Vel, a.Vel)
	rel := r3.Dot(rv, n)
	if rel >= 0 {
		return depth, true // separating
	}

	jn := -(1 + s.restitution) * rel * 0.5
	a.Vel = r3.Sub(a.Vel, r3.Scale(jn, n))
	b.Vel = r3.Add(b.Vel, r3.Scale(jn, n))

	if s.friction <= 0 {
		return depth, true
	}

	// Tangential slip from the pre-impulse relative velocity
	vt := r3.Sub(rv, r3.Scale(rel, n))
	vtLen := r3.Norm(vt)
	if vtLen <= minTangential {
		return depth, true
	}
	// Both grains receive jt, so the relative change is 2*jt <= vtLen:
	// friction can stop slip but never reverse it.
	jt := math.Min(jn*s.friction, vtLen*frictionShare)
	t := r3.Scale(jt/vtLen, vt)
	a.Vel = r3.Add(a.Vel, t)
	b.Vel = r3.Sub(b.Vel, t)

	return depth, true
}

func (s *CollisionSolver) sleep(g *components.Grain) {
	if r3.Norm2(g.Vel) < s.sleepSpeedSq {
		g.Vel = r3.Scale(s.sleepDamping, g.Vel)
	}
}
