package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hourglass/components"
	"github.com/pthm-cable/hourglass/config"
)

// Boundary keeps grains inside the vessel: flat caps at both ends and a
// conical wall in between.
type Boundary struct {
	vessel      Vessel
	grainRadius float64
	coneSlope   float64

	capBounce       float64
	wallBounce      float64
	wallFriction    float64
	surfaceFriction float64
}

// NewBoundary creates a boundary resolver for the given vessel.
func NewBoundary(v Vessel, cfg *config.Config) *Boundary {
	m := cfg.Material
	return &Boundary{
		vessel:          v,
		grainRadius:     cfg.Grain.Radius,
		coneSlope:       cfg.Derived.ConeSlope,
		capBounce:       m.CapBounce,
		wallBounce:      m.WallBounce,
		wallFriction:    m.WallFriction,
		surfaceFriction: m.SurfaceFriction,
	}
}

// Apply clamps a grain back inside the vessel and adjusts its velocity.
// The correction is local and positional; there is no swept contact.
func (b *Boundary) Apply(g *components.Grain) {
	b.applyCaps(g)
	b.applyWall(g)
}

func (b *Boundary) applyCaps(g *components.Grain) {
	maxY := b.vessel.HalfHeight - b.grainRadius
	minY := -maxY

	switch {
	case g.Pos.Y < minY:
		g.Pos.Y = minY
		if g.Vel.Y < 0 {
			g.Vel.Y *= -b.capBounce
		}
	case g.Pos.Y > maxY:
		g.Pos.Y = maxY
		if g.Vel.Y > 0 {
			g.Vel.Y *= -b.capBounce
		}
	default:
		return
	}
	// Caps drag lateral motion whether or not the grain bounced
	g.Vel.X *= b.surfaceFriction
	g.Vel.Z *= b.surfaceFriction
}

func (b *Boundary) applyWall(g *components.Grain) {
	radial := g.Radial()
	limit := b.vessel.InnerLimit(g.Pos.Y, b.grainRadius)
	if radial <= limit {
		return
	}

	scale := limit / radial
	g.Pos.X *= scale
	g.Pos.Z *= scale

	// Exactly on the neck plane the cone has no defined side; use the
	// direction of travel instead.
	signY := signOr(g.Pos.Y, signOr(g.Vel.Y, 1))
	n := r3.Vec{
		X: g.Pos.X / limit,
		Y: -b.coneSlope * signY,
		Z: g.Pos.Z / limit,
	}
	if l := r3.Norm(n); l > 0 {
		n = r3.Scale(1/l, n)
	}

	if vn := r3.Dot(g.Vel, n); vn > 0 {
		g.Vel = r3.Sub(g.Vel, r3.Scale((1+b.wallBounce)*vn, n))
	}
	g.Vel = r3.Scale(b.wallFriction, g.Vel)
}

// Contains reports whether a grain satisfies both vessel constraints
// within tolerance eps.
func (b *Boundary) Contains(g *components.Grain, eps float64) bool {
	if g.Pos.Y > b.vessel.HalfHeight-b.grainRadius+eps || g.Pos.Y < -b.vessel.HalfHeight+b.grainRadius-eps {
		return false
	}
	return g.Radial() <= b.vessel.InnerLimit(g.Pos.Y, b.grainRadius)+eps
}
