package systems

import (
	"math"

	"github.com/pthm-cable/hourglass/components"
	"github.com/pthm-cable/hourglass/config"
)

// Bits per packed axis. Offsets keep each coordinate in [0, 512).
const (
	cellBits = 9
	cellMask = 1<<cellBits - 1
)

// neighborOffsets lists the 27 cells (including the center) around a cell.
var neighborOffsets = func() [27][3]int32 {
	var offs [27][3]int32
	i := 0
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				offs[i] = [3]int32{dx, dy, dz}
				i++
			}
		}
	}
	return offs
}()

// SpatialHash buckets grain indices by integer cell for broad-phase queries.
// It is rebuilt from scratch on every collision pass. Buckets live in an
// arena that is reused between rebuilds; the map only stores arena slots,
// so steady-state rebuilds do not allocate.
type SpatialHash struct {
	invCellSize float64
	bound       float64
	offset      int32

	slots   map[uint32]int32 // packed cell key -> arena slot
	buckets [][]int32        // arena; only [:used] is live
	used    int
}

// NewSpatialHash creates a hash with the configured cell geometry.
func NewSpatialHash(cfg *config.Config) *SpatialHash {
	return &SpatialHash{
		invCellSize: cfg.Derived.InvCellSize,
		bound:       cfg.Collision.HashBound,
		offset:      int32(cfg.Collision.HashOffset),
		slots:       make(map[uint32]int32, 256),
	}
}

// Clear removes all grains from the hash, keeping arena capacity.
func (h *SpatialHash) Clear() {
	clear(h.slots)
	for i := 0; i < h.used; i++ {
		h.buckets[i] = h.buckets[i][:0]
	}
	h.used = 0
}

// Cell returns the integer cell coordinates for a position component triple.
func (h *SpatialHash) Cell(x, y, z float64) (ix, iy, iz int32) {
	ix = int32(math.Floor((x + h.bound) * h.invCellSize))
	iy = int32(math.Floor((y + h.bound) * h.invCellSize))
	iz = int32(math.Floor((z + h.bound) * h.invCellSize))
	return ix, iy, iz
}

// Key packs cell coordinates into a single 32-bit key.
func (h *SpatialHash) Key(ix, iy, iz int32) uint32 {
	return uint32(ix+h.offset)&cellMask |
		(uint32(iy+h.offset)&cellMask)<<cellBits |
		(uint32(iz+h.offset)&cellMask)<<(2*cellBits)
}

// Rebuild clears the hash and inserts every grain in index order,
// refreshing each grain's cached cell.
func (h *SpatialHash) Rebuild(grains []components.Grain) {
	h.Clear()
	for i := range grains {
		g := &grains[i]
		g.IX, g.IY, g.IZ = h.Cell(g.Pos.X, g.Pos.Y, g.Pos.Z)
		h.insert(h.Key(g.IX, g.IY, g.IZ), int32(i))
	}
}

func (h *SpatialHash) insert(key uint32, index int32) {
	slot, ok := h.slots[key]
	if !ok {
		if h.used == len(h.buckets) {
			h.buckets = append(h.buckets, make([]int32, 0, 8))
		}
		slot = int32(h.used)
		h.used++
		h.slots[key] = slot
	}
	h.buckets[slot] = append(h.buckets[slot], index)
}

// Bucket returns the grain indices in a cell, or nil for an empty cell.
// The slice is owned by the hash and valid until the next rebuild.
func (h *SpatialHash) Bucket(key uint32) []int32 {
	slot, ok := h.slots[key]
	if !ok {
		return nil
	}
	return h.buckets[slot]
}

// QueryInto appends the indices in the 27 cells around a grain's cached
// cell to dst and returns the updated slice. Reuse dst across calls.
func (h *SpatialHash) QueryInto(dst []int32, g *components.Grain) []int32 {
	for _, off := range neighborOffsets {
		dst = append(dst, h.Bucket(h.Key(g.IX+off[0], g.IY+off[1], g.IZ+off[2]))...)
	}
	return dst
}

// CellCount returns the number of occupied cells.
func (h *SpatialHash) CellCount() int {
	return h.used
}
