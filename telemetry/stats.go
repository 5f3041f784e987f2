// Package telemetry provides flow tracking, bookmarking and CSV output for
// headless runs.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Grains      int     `csv:"grains"`
	LowerCount  int     `csv:"lower"`
	UpperCount  int     `csv:"upper"`
	SourceShare float64 `csv:"source_share"` // Fraction still in the feeding chamber

	// Neck traffic during window
	Passed      int     `csv:"passed"`
	Blocked     int     `csv:"blocked"`
	PassRate    float64 `csv:"pass_rate"`    // Passed grains per simulated second
	NeckTraffic float64 `csv:"neck_traffic"` // Mean grains in the neck per tick

	// Budget at window end
	Budget        float64 `csv:"budget"`
	BudgetCeiling float64 `csv:"budget_ceiling"`

	// Contacts during window
	Contacts   int     `csv:"contacts"`
	MaxOverlap float64 `csv:"max_overlap"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Tilt at window end
	Angle         float64 `csv:"angle"`
	AngularVel    float64 `csv:"angular_vel"`
	FlowDirection int     `csv:"flow_direction"`
}

// ComputeSpeedStats calculates mean, standard deviation and quantiles of
// grain speeds. values is not modified.
func ComputeSpeedStats(values []float64) (mean, std, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n > 1 {
		mean, std = stat.MeanStdDev(sorted, nil)
	} else {
		mean = sorted[0]
	}
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)

	return mean, std, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("grains", s.Grains),
		slog.Int("lower", s.LowerCount),
		slog.Int("upper", s.UpperCount),
		slog.Float64("source_share", s.SourceShare),
		slog.Int("passed", s.Passed),
		slog.Int("blocked", s.Blocked),
		slog.Float64("pass_rate", s.PassRate),
		slog.Float64("neck_traffic", s.NeckTraffic),
		slog.Float64("budget", s.Budget),
		slog.Float64("budget_ceiling", s.BudgetCeiling),
		slog.Int("contacts", s.Contacts),
		slog.Float64("max_overlap", s.MaxOverlap),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("angle", s.Angle),
		slog.Float64("angular_vel", s.AngularVel),
		slog.Int("flow_direction", s.FlowDirection),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
