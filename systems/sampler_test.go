package systems

import (
	"math"
	"math/rand"
	"testing"
)

// TestSamplerPlacement verifies samples land in the requested chamber,
// clear of the neck, the caps and the wall.
func TestSamplerPlacement(t *testing.T) {
	f := newFixture(t)
	speed := f.cfg.Grain.InitialSpeed
	s := NewSampler(f.vessel, f.r, speed, rand.New(rand.NewSource(1)))
	margin := f.r * 2.2

	for _, chamber := range []int{-1, 1} {
		for i := 0; i < 500; i++ {
			g := s.Sample(chamber)

			if g.Chamber() != chamber {
				t.Fatalf("chamber %d: sample at y=%v", chamber, g.Pos.Y)
			}
			if int(g.Side) != chamber {
				t.Fatalf("chamber %d: sample accounted on side %d", chamber, g.Side)
			}
			if ay := math.Abs(g.Pos.Y); ay < margin || ay > f.vessel.HalfHeight-margin {
				t.Fatalf("chamber %d: |y|=%v outside [%v, %v]", chamber, ay, margin, f.vessel.HalfHeight-margin)
			}
			if !f.boundary.Contains(&g, 0) {
				t.Fatalf("chamber %d: sample outside vessel at %v", chamber, g.Pos)
			}
			for _, v := range []float64{g.Vel.X, g.Vel.Y, g.Vel.Z} {
				if math.Abs(v) > speed {
					t.Fatalf("velocity component %v exceeds %v", v, speed)
				}
			}
		}
	}
}

// TestSamplerSeeded verifies equal seeds give equal samples.
func TestSamplerSeeded(t *testing.T) {
	f := newFixture(t)
	a := NewSampler(f.vessel, f.r, 0.01, rand.New(rand.NewSource(9)))
	b := NewSampler(f.vessel, f.r, 0.01, rand.New(rand.NewSource(9)))

	for i := 0; i < 10; i++ {
		if ga, gb := a.Sample(-1), b.Sample(-1); ga != gb {
			t.Fatalf("sample %d differs: %+v vs %+v", i, ga, gb)
		}
	}
}
