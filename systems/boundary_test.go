package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// TestBoundaryCaps verifies cap clamping, bounce and surface friction.
func TestBoundaryCaps(t *testing.T) {
	f := newFixture(t)
	maxY := f.vessel.HalfHeight - f.r

	tests := []struct {
		name   string
		y      float64
		vel    r3.Vec
		wantY  float64
		wantVY float64
	}{
		{"above upper cap moving out", 1.2, r3.Vec{X: 1, Y: 2}, maxY, -0.52},
		{"above upper cap moving in", 1.2, r3.Vec{X: 1, Y: -2}, maxY, -2},
		{"below lower cap moving out", -1.2, r3.Vec{X: 1, Y: -2}, -maxY, 0.52},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := grainAt(0.1, tt.y, 0)
			g.Vel = tt.vel
			f.boundary.Apply(&g)

			if g.Pos.Y != tt.wantY {
				t.Errorf("Y = %v, want %v", g.Pos.Y, tt.wantY)
			}
			if math.Abs(g.Vel.Y-tt.wantVY) > 1e-12 {
				t.Errorf("VY = %v, want %v", g.Vel.Y, tt.wantVY)
			}
			if math.Abs(g.Vel.X-0.92) > 1e-12 {
				t.Errorf("VX = %v, want 0.92 after surface friction", g.Vel.X)
			}
		})
	}
}

// TestBoundaryWall verifies radial clamping and outward velocity reflection.
func TestBoundaryWall(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		pos  r3.Vec
		vel  r3.Vec
	}{
		{"lower cone", r3.Vec{X: 0.6, Y: -0.5}, r3.Vec{X: 1}},
		{"upper cone diagonal", r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vec{X: 1, Z: 1, Y: 0.3}},
		{"neck plane at rest", r3.Vec{X: 0.2}, r3.Vec{}},
		{"neck plane moving", r3.Vec{Z: 0.2}, r3.Vec{Z: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := grainAt(tt.pos.X, tt.pos.Y, tt.pos.Z)
			g.Vel = tt.vel
			f.boundary.Apply(&g)

			if !g.Finite() {
				t.Fatalf("grain not finite: %+v", g)
			}
			limit := f.vessel.InnerLimit(g.Pos.Y, f.r)
			if math.Abs(g.Radial()-limit) > 1e-12 {
				t.Errorf("Radial = %v, want %v", g.Radial(), limit)
			}
			if !f.boundary.Contains(&g, 1e-12) {
				t.Errorf("grain outside after Apply: %v", g.Pos)
			}

			// Velocity must no longer point out through the wall
			signY := signOr(g.Pos.Y, signOr(tt.vel.Y, 1))
			n := r3.Unit(r3.Vec{X: g.Pos.X / limit, Y: -f.cfg.Derived.ConeSlope * signY, Z: g.Pos.Z / limit})
			if vn := r3.Dot(g.Vel, n); vn > 1e-12 {
				t.Errorf("outward normal velocity %v after Apply", vn)
			}
		})
	}
}

// TestBoundaryInsideUntouched verifies interior grains are unchanged.
func TestBoundaryInsideUntouched(t *testing.T) {
	f := newFixture(t)
	g := grainAt(0.1, -0.5, 0.05)
	g.Vel = r3.Vec{X: 0.3, Y: 0.2, Z: 0.1}
	want := g

	f.boundary.Apply(&g)
	if g != want {
		t.Errorf("interior grain changed: got %+v, want %+v", g, want)
	}
}
