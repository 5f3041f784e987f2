package systems

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hourglass/components"
)

// Sampler places new grains inside a chamber.
type Sampler struct {
	vessel      Vessel
	grainRadius float64
	speed       float64 // half-width of the uniform velocity range
	rng         *rand.Rand
}

// NewSampler creates a sampler drawing from rng.
func NewSampler(v Vessel, grainRadius, initialSpeed float64, rng *rand.Rand) *Sampler {
	return &Sampler{vessel: v, grainRadius: grainRadius, speed: initialSpeed, rng: rng}
}

// Sample returns a grain in the lower (chamberSign < 0) or upper chamber,
// uniform by cross-section area, clear of the neck plane, the cap and the
// wall.
func (s *Sampler) Sample(chamberSign int) components.Grain {
	margin := s.grainRadius * 2.2
	minY, maxY := margin, s.vessel.HalfHeight-margin
	if chamberSign < 0 {
		minY, maxY = -s.vessel.HalfHeight+margin, -margin
	}
	y := minY + s.rng.Float64()*(maxY-minY)

	maxR := math.Max(s.vessel.NeckRadius*0.6, s.vessel.RadiusAt(y)-s.grainRadius*1.8)
	theta := s.rng.Float64() * 2 * math.Pi
	radial := math.Sqrt(s.rng.Float64()) * maxR * 0.97

	g := components.Grain{
		Pos: r3.Vec{X: math.Cos(theta) * radial, Y: y, Z: math.Sin(theta) * radial},
		Vel: r3.Vec{X: s.jitter(), Y: s.jitter(), Z: s.jitter()},
	}
	g.MarkSide()
	return g
}

func (s *Sampler) jitter() float64 {
	return (s.rng.Float64()*2 - 1) * s.speed
}
