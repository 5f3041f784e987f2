// Package systems contains the per-step physics systems: vessel geometry,
// boundary constraints, broad-phase hashing, collisions and neck gating.
package systems

import (
	"math"

	"github.com/pthm-cable/hourglass/config"
)

// minLimit keeps the wall limit positive so normals never divide by zero.
const minLimit = 0.0001

// Vessel describes the bi-conical container. It is stateless.
type Vessel struct {
	HalfHeight float64
	BodyRadius float64
	NeckRadius float64
	NeckBand   float64
}

// NewVessel builds a vessel from configuration.
func NewVessel(cfg config.VesselConfig) Vessel {
	return Vessel{
		HalfHeight: cfg.HalfHeight,
		BodyRadius: cfg.BodyRadius,
		NeckRadius: cfg.NeckRadius,
		NeckBand:   cfg.NeckBand,
	}
}

// RadiusAt returns the interior radius at height y.
// Heights beyond the caps are clamped to the body radius.
func (v Vessel) RadiusAt(y float64) float64 {
	t := clamp01(math.Abs(y) / v.HalfHeight)
	return v.NeckRadius + (v.BodyRadius-v.NeckRadius)*t
}

// InnerLimit returns the largest radial distance a grain of radius r may
// occupy at height y.
func (v Vessel) InnerLimit(y, r float64) float64 {
	return math.Max(minLimit, v.RadiusAt(y)-r)
}
