package systems

import (
	"slices"
	"testing"

	"github.com/pthm-cable/hourglass/components"
)

// TestSpatialHashKeys verifies packed keys are distinct across axes.
func TestSpatialHashKeys(t *testing.T) {
	f := newFixture(t)
	h := NewSpatialHash(f.cfg)

	seen := make(map[uint32][3]int32)
	for _, c := range [][3]int32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {-1, 0, 0}, {28, 28, 28}, {56, 0, 56}} {
		k := h.Key(c[0], c[1], c[2])
		if prev, ok := seen[k]; ok {
			t.Errorf("Key%v collides with Key%v", c, prev)
		}
		seen[k] = c
	}
}

// TestSpatialHashQuery verifies neighbors in adjacent cells are returned and
// far grains are not.
func TestSpatialHashQuery(t *testing.T) {
	f := newFixture(t)
	h := NewSpatialHash(f.cfg)

	grains := []components.Grain{
		grainAt(0.01, -0.52, 0.01),
		grainAt(0.07, -0.52, 0.01), // adjacent cell
		grainAt(0.3, -0.52, 0.01),  // far
		grainAt(0.02, -0.51, 0.01), // same cell as 0
	}
	h.Rebuild(grains)

	got := h.QueryInto(nil, &grains[0])
	slices.Sort(got)
	want := []int32{0, 1, 3}
	if !slices.Equal(got, want) {
		t.Errorf("QueryInto = %v, want %v", got, want)
	}

	bucket := h.Bucket(h.Key(grains[0].IX, grains[0].IY, grains[0].IZ))
	if !slices.Equal(bucket, []int32{0, 3}) {
		t.Errorf("Bucket = %v, want [0 3] in insertion order", bucket)
	}
	if got := h.CellCount(); got != 3 {
		t.Errorf("CellCount = %d, want 3", got)
	}
}

// TestSpatialHashRebuildClears verifies stale entries do not survive a rebuild.
func TestSpatialHashRebuildClears(t *testing.T) {
	f := newFixture(t)
	h := NewSpatialHash(f.cfg)

	grains := []components.Grain{grainAt(0, -0.5, 0), grainAt(0.01, -0.5, 0)}
	h.Rebuild(grains)
	oldKey := h.Key(grains[0].IX, grains[0].IY, grains[0].IZ)

	grains[0].Pos.Y = 0.5
	grains[1].Pos.Y = 0.5
	h.Rebuild(grains)

	if b := h.Bucket(oldKey); b != nil {
		t.Errorf("old cell still holds %v", b)
	}
	if got := h.QueryInto(nil, &grains[1]); len(got) != 2 {
		t.Errorf("QueryInto after move = %v, want both grains", got)
	}
}
