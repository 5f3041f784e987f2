package telemetry

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	passed       int
	blocked      int
	contacts     int
	maxOverlap   float64
	neckTraffic  int
	trafficTicks int
}

// StateSample is the simulation state the caller captures at flush time.
type StateSample struct {
	Grains        int
	LowerCount    int
	UpperCount    int
	SourceCount   int // Grains in the currently feeding chamber
	Budget        float64
	BudgetCeiling float64
	Angle         float64
	AngularVel    float64
	FlowDirection int
	Speeds        []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordPassed records a grain that crossed the neck on budget.
func (c *Collector) RecordPassed() {
	c.passed++
}

// RecordBlocked records a grain held back at the neck.
func (c *Collector) RecordBlocked() {
	c.blocked++
}

// RecordContacts records the outcome of one collision solve.
func (c *Collector) RecordContacts(contacts int, maxOverlap float64) {
	c.contacts += contacts
	if maxOverlap > c.maxOverlap {
		c.maxOverlap = maxOverlap
	}
}

// RecordNeckTraffic records the number of grains in the neck for one tick.
func (c *Collector) RecordNeckTraffic(n int) {
	c.neckTraffic += n
	c.trafficTicks++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, s StateSample) WindowStats {
	elapsed := float64(currentTick-c.windowStartTick) * c.dt

	var passRate float64
	if elapsed > 0 {
		passRate = float64(c.passed) / elapsed
	}
	var traffic float64
	if c.trafficTicks > 0 {
		traffic = float64(c.neckTraffic) / float64(c.trafficTicks)
	}
	var sourceShare float64
	if s.Grains > 0 {
		sourceShare = float64(s.SourceCount) / float64(s.Grains)
	}

	speedMean, speedStd, speedP50, speedP90 := ComputeSpeedStats(s.Speeds)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Grains:      s.Grains,
		LowerCount:  s.LowerCount,
		UpperCount:  s.UpperCount,
		SourceShare: sourceShare,

		Passed:      c.passed,
		Blocked:     c.blocked,
		PassRate:    passRate,
		NeckTraffic: traffic,

		Budget:        s.Budget,
		BudgetCeiling: s.BudgetCeiling,

		Contacts:   c.contacts,
		MaxOverlap: c.maxOverlap,

		SpeedMean: speedMean,
		SpeedStd:  speedStd,
		SpeedP50:  speedP50,
		SpeedP90:  speedP90,

		Angle:         s.Angle,
		AngularVel:    s.AngularVel,
		FlowDirection: s.FlowDirection,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.passed = 0
	c.blocked = 0
	c.contacts = 0
	c.maxOverlap = 0
	c.neckTraffic = 0
	c.trafficTicks = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
