package telemetry

import (
	"math"
	"testing"
)

func TestCollector_WindowTicks(t *testing.T) {
	c := NewCollector(1.0, 0.25)
	if got := c.WindowDurationTicks(); got != 4 {
		t.Fatalf("WindowDurationTicks() = %d, want 4", got)
	}
	if c.ShouldFlush(3) {
		t.Error("should not flush before the window ends")
	}
	if !c.ShouldFlush(4) {
		t.Error("should flush when the window ends")
	}
}

func TestCollector_Flush(t *testing.T) {
	c := NewCollector(1.0, 0.5)

	for i := 0; i < 6; i++ {
		c.RecordPassed()
	}
	c.RecordBlocked()
	c.RecordContacts(10, 0.002)
	c.RecordContacts(5, 0.004)
	c.RecordNeckTraffic(2)
	c.RecordNeckTraffic(4)

	stats := c.Flush(2, StateSample{
		Grains:        100,
		LowerCount:    70,
		UpperCount:    30,
		SourceCount:   70,
		Budget:        3.5,
		BudgetCeiling: 65,
		Speeds:        []float64{0.1, 0.2, 0.3},
	})

	if stats.Passed != 6 || stats.Blocked != 1 {
		t.Errorf("passed/blocked = %d/%d, want 6/1", stats.Passed, stats.Blocked)
	}
	// 6 grains over 2 ticks of 0.5s
	if math.Abs(stats.PassRate-6) > 1e-9 {
		t.Errorf("PassRate = %v, want 6", stats.PassRate)
	}
	if stats.Contacts != 15 || stats.MaxOverlap != 0.004 {
		t.Errorf("contacts = %d overlap = %v, want 15 and 0.004", stats.Contacts, stats.MaxOverlap)
	}
	if stats.NeckTraffic != 3 {
		t.Errorf("NeckTraffic = %v, want 3", stats.NeckTraffic)
	}
	if math.Abs(stats.SourceShare-0.7) > 1e-9 {
		t.Errorf("SourceShare = %v, want 0.7", stats.SourceShare)
	}
	if stats.SimTimeSec != 1.0 {
		t.Errorf("SimTimeSec = %v, want 1", stats.SimTimeSec)
	}

	next := c.Flush(4, StateSample{})
	if next.Passed != 0 || next.Blocked != 0 || next.Contacts != 0 || next.MaxOverlap != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
	if next.WindowStartTick != 2 {
		t.Errorf("WindowStartTick = %d, want 2", next.WindowStartTick)
	}
}
