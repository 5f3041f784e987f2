package sim

import "math"

// FeedChamber returns the chamber grains currently drain from: -1 (lower,
// y < 0) while the vessel is closer to upright, +1 once it is closer to
// inverted.
func (s *Simulation) FeedChamber() int {
	if math.Cos(s.angle) >= 0 {
		return -1
	}
	return 1
}

// SetTargetCount resizes the grain store to n, clamped to the configured
// range.
func (s *Simulation) SetTargetCount(n int) {
	s.Resize(n)
}

// Resize grows the store by sampling new grains in the feeding chamber or
// shrinks it by dropping grains from the tail. Tail removal takes whatever
// grains happen to be last; it is not "most recently added" in any
// physical sense.
func (s *Simulation) Resize(n int) {
	target := s.cfg.ClampCount(n)
	current := len(s.grains)
	if target == current {
		return
	}

	if target > current {
		source := s.FeedChamber()
		for i := current; i < target; i++ {
			s.grains = append(s.grains, s.sampler.Sample(source))
		}
	} else {
		s.grains = s.grains[:target]
	}
	s.flow.Clamp(target)

	s.logger().Debug("resize", "from", current, "to", target)
}

// Refill discards every grain and samples a fresh population of n (clamped)
// grains: round(source_share*n) in the feeding chamber, the rest in the
// other. The flow budget restarts at refill_share*n.
func (s *Simulation) Refill(n int) {
	n = s.cfg.ClampCount(n)
	source := s.FeedChamber()
	mostly := int(math.Round(float64(n) * s.cfg.Grain.SourceShare))

	s.grains = s.grains[:0]
	for i := 0; i < n; i++ {
		chamber := source
		if i >= mostly {
			chamber = -source
		}
		s.grains = append(s.grains, s.sampler.Sample(chamber))
	}
	s.flow.Reset(n)

	s.logger().Info("refill", "grains", n, "source", source, "budget", s.flow.Budget())
}
