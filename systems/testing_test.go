package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/hourglass/components"
	"github.com/pthm-cable/hourglass/config"
)

// testFixture bundles the default vessel and boundary.
type testFixture struct {
	cfg      *config.Config
	vessel   Vessel
	boundary *Boundary
	r        float64
}

func newFixture(t *testing.T) testFixture {
	t.Helper()
	cfg := config.Default()
	v := NewVessel(cfg.Vessel)
	return testFixture{
		cfg:      cfg,
		vessel:   v,
		boundary: NewBoundary(v, cfg),
		r:        cfg.Grain.Radius,
	}
}

func grainAt(x, y, z float64) components.Grain {
	return components.Grain{Pos: r3.Vec{X: x, Y: y, Z: z}}
}
