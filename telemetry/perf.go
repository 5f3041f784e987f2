package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies a timed section of a simulation step.
type Phase uint8

const (
	PhaseTilt      Phase = iota // Spring-damper update, once per step
	PhaseIntegrate              // Gravity, boundary, gate and settle, per sub-step
	PhaseCollision              // Solver passes, per sub-step
	PhaseTelemetry              // Neck traffic and window flush
	phaseCount
)

var phaseNames = [phaseCount]string{"tilt", "integrate", "collision", "telemetry"}

func (p Phase) String() string {
	if p < phaseCount {
		return phaseNames[p]
	}
	return "unknown"
}

// stepSample is the timing and work done by one Step call.
type stepSample struct {
	total    time.Duration
	phases   [phaseCount]time.Duration
	grains   int
	subSteps int
	passes   int
	contacts int
}

// PerfCollector times simulation steps over a rolling window of the most
// recent steps. Phases accumulate across sub-steps, so the collision phase
// of a step is the sum over every sub-step that ran the solver.
type PerfCollector struct {
	now func() time.Time

	samples []stepSample
	next    int
	filled  int

	current    stepSample
	stepStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	frame time.Duration // last real elapsed time passed to Frame
}

// NewPerfCollector creates a collector averaging over window steps.
func NewPerfCollector(window int) *PerfCollector {
	return newPerfCollector(window, time.Now)
}

func newPerfCollector(window int, now func() time.Time) *PerfCollector {
	if window < 1 {
		window = 120
	}
	return &PerfCollector{now: now, samples: make([]stepSample, window)}
}

// StartStep begins timing a step over n grains.
func (p *PerfCollector) StartStep(n int) {
	p.current = stepSample{grains: n}
	p.stepStart = p.now()
	p.inPhase = false
}

// StartPhase closes the running phase, if any, and opens phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	t := p.now()
	p.closePhase(t)
	p.phase = phase
	p.phaseStart = t
	p.inPhase = true
}

// RecordSubStep counts one physics sub-step and the solver work it did.
func (p *PerfCollector) RecordSubStep(passes, contacts int) {
	p.current.subSteps++
	p.current.passes += passes
	p.current.contacts += contacts
}

// EndStep closes the running phase and stores the step in the window.
func (p *PerfCollector) EndStep() {
	t := p.now()
	p.closePhase(t)
	p.current.total = t.Sub(p.stepStart)

	p.samples[p.next] = p.current
	p.next = (p.next + 1) % len(p.samples)
	if p.filled < len(p.samples) {
		p.filled++
	}
}

// RecordFrame stores the real elapsed time a frame-driven caller reported.
func (p *PerfCollector) RecordFrame(elapsed time.Duration) {
	p.frame = elapsed
}

func (p *PerfCollector) closePhase(t time.Time) {
	if p.inPhase {
		p.current.phases[p.phase] += t.Sub(p.phaseStart)
		p.inPhase = false
	}
}

// PerfStats aggregates the steps in the window.
type PerfStats struct {
	Steps int

	AvgStep time.Duration
	MinStep time.Duration
	MaxStep time.Duration

	PhaseAvg [phaseCount]time.Duration
	PhasePct [phaseCount]float64

	StepsPerSec     float64
	AvgSubStep      time.Duration // physics time (integrate + collision) per sub-step
	AvgPass         time.Duration // collision time per solver pass
	ContactsPerPass float64
	NsPerGrain      float64 // physics time per grain per sub-step

	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregates over the window.
func (p *PerfCollector) Stats() PerfStats {
	st := PerfStats{Steps: p.filled, FrameDuration: p.frame}
	if p.frame > 0 {
		st.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.filled == 0 {
		return st
	}

	var total time.Duration
	var phases [phaseCount]time.Duration
	var subSteps, passes, contacts, grainSubSteps int
	for i := 0; i < p.filled; i++ {
		s := &p.samples[i]
		total += s.total
		if i == 0 || s.total < st.MinStep {
			st.MinStep = s.total
		}
		st.MaxStep = max(st.MaxStep, s.total)
		for ph := range phases {
			phases[ph] += s.phases[ph]
		}
		subSteps += s.subSteps
		passes += s.passes
		contacts += s.contacts
		grainSubSteps += s.grains * s.subSteps
	}

	n := time.Duration(p.filled)
	st.AvgStep = total / n
	for ph := range phases {
		st.PhaseAvg[ph] = phases[ph] / n
		if total > 0 {
			st.PhasePct[ph] = float64(phases[ph]) / float64(total) * 100
		}
	}
	if st.AvgStep > 0 {
		st.StepsPerSec = float64(time.Second) / float64(st.AvgStep)
	}

	physics := phases[PhaseIntegrate] + phases[PhaseCollision]
	if subSteps > 0 {
		st.AvgSubStep = physics / time.Duration(subSteps)
	}
	if passes > 0 {
		st.AvgPass = phases[PhaseCollision] / time.Duration(passes)
		st.ContactsPerPass = float64(contacts) / float64(passes)
	}
	if grainSubSteps > 0 {
		st.NsPerGrain = float64(physics) / float64(grainSubSteps)
	}
	return st
}

// LogStats logs the aggregates at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("steps", s.Steps),
		slog.Int64("avg_step_us", s.AvgStep.Microseconds()),
		slog.Int64("max_step_us", s.MaxStep.Microseconds()),
		slog.Int64("avg_substep_us", s.AvgSubStep.Microseconds()),
		slog.Int64("avg_pass_us", s.AvgPass.Microseconds()),
		slog.Float64("contacts_per_pass", s.ContactsPerPass),
		slog.Float64("ns_per_grain", s.NsPerGrain),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for ph := Phase(0); ph < phaseCount; ph++ {
		if s.PhasePct[ph] > 0.1 {
			attrs = append(attrs, slog.Float64(ph.String()+"_pct", s.PhasePct[ph]))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd       int32   `csv:"window_end"`
	Steps           int     `csv:"steps"`
	AvgStepUS       int64   `csv:"avg_step_us"`
	MinStepUS       int64   `csv:"min_step_us"`
	MaxStepUS       int64   `csv:"max_step_us"`
	StepsPerSec     float64 `csv:"steps_per_sec"`
	AvgSubStepUS    int64   `csv:"avg_substep_us"`
	AvgPassUS       int64   `csv:"avg_pass_us"`
	ContactsPerPass float64 `csv:"contacts_per_pass"`
	NsPerGrain      float64 `csv:"ns_per_grain"`
	FPS             float64 `csv:"fps"`
	TiltPct         float64 `csv:"tilt_pct"`
	IntegratePct    float64 `csv:"integrate_pct"`
	CollisionPct    float64 `csv:"collision_pct"`
	TelemetryPct    float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:       windowEnd,
		Steps:           s.Steps,
		AvgStepUS:       s.AvgStep.Microseconds(),
		MinStepUS:       s.MinStep.Microseconds(),
		MaxStepUS:       s.MaxStep.Microseconds(),
		StepsPerSec:     s.StepsPerSec,
		AvgSubStepUS:    s.AvgSubStep.Microseconds(),
		AvgPassUS:       s.AvgPass.Microseconds(),
		ContactsPerPass: s.ContactsPerPass,
		NsPerGrain:      s.NsPerGrain,
		FPS:             s.FPS,
		TiltPct:         s.PhasePct[PhaseTilt],
		IntegratePct:    s.PhasePct[PhaseIntegrate],
		CollisionPct:    s.PhasePct[PhaseCollision],
		TelemetryPct:    s.PhasePct[PhaseTelemetry],
	}
}
