// Package components defines the fixed-layout records the simulation stores.
package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Grain is a single simulated particle.
// IX, IY, IZ cache the spatial hash cell the grain was last bucketed in;
// they are only meaningful right after a hash rebuild. Side is the chamber
// the flow gate last accounted the grain in (0 = not yet accounted).
type Grain struct {
	Pos r3.Vec
	Vel r3.Vec

	IX, IY, IZ int32
	Side       int8
}

// Radial returns the distance from the vertical axis.
func (g *Grain) Radial() float64 {
	return r3.Norm(r3.Vec{X: g.Pos.X, Z: g.Pos.Z})
}

// Speed returns the velocity magnitude.
func (g *Grain) Speed() float64 {
	return r3.Norm(g.Vel)
}

// Chamber returns -1 for grains below the neck plane and +1 otherwise.
func (g *Grain) Chamber() int {
	if g.Pos.Y < 0 {
		return -1
	}
	return 1
}

// MarkSide records the current chamber as accounted for.
func (g *Grain) MarkSide() {
	g.Side = int8(g.Chamber())
}

// Finite reports whether every position and velocity component is a
// finite number.
func (g *Grain) Finite() bool {
	for _, v := range [...]float64{g.Pos.X, g.Pos.Y, g.Pos.Z, g.Vel.X, g.Vel.Y, g.Vel.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
