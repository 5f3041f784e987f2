package sim

import (
	"log/slog"

	"github.com/pthm-cable/hourglass/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.sampleState())
	perfStats := s.perfCollector.Stats()

	// Call stats callback if provided
	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := s.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarkDetector.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if err := s.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}

// sampleState captures the population and tilt state for a stats window.
func (s *Simulation) sampleState() telemetry.StateSample {
	lower, upper := s.ChamberCounts()
	source := lower
	if s.FeedChamber() > 0 {
		source = upper
	}

	speeds := make([]float64, len(s.grains))
	for i := range s.grains {
		speeds[i] = s.grains[i].Speed()
	}

	return telemetry.StateSample{
		Grains:        len(s.grains),
		LowerCount:    lower,
		UpperCount:    upper,
		SourceCount:   source,
		Budget:        s.flow.Budget(),
		BudgetCeiling: s.flow.Ceiling(len(s.grains)),
		Angle:         s.angle,
		AngularVel:    s.angleVel,
		FlowDirection: s.FlowDirection(),
		Speeds:        speeds,
	}
}

// Bookmarks returns the recent stats windows kept by the bookmark detector.
func (s *Simulation) Bookmarks() []telemetry.WindowStats {
	return s.bookmarkDetector.History()
}

// PerfStats returns the rolling per-phase timing stats.
func (s *Simulation) PerfStats() telemetry.PerfStats {
	return s.perfCollector.Stats()
}
