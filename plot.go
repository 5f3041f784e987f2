package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/pthm-cable/hourglass/telemetry"
)

var chartStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1)

// windowHistory collects stats windows for the end-of-run chart.
type windowHistory struct {
	lower    []float64
	upper    []float64
	passRate []float64
}

func (h *windowHistory) record(s telemetry.WindowStats) {
	h.lower = append(h.lower, float64(s.LowerCount))
	h.upper = append(h.upper, float64(s.UpperCount))
	h.passRate = append(h.passRate, s.PassRate)
}

// render draws chamber counts and neck pass rate per window. It returns an
// empty string until at least two windows have been recorded.
func (h *windowHistory) render(width, height int) string {
	if len(h.lower) < 2 {
		return ""
	}

	var b strings.Builder
	b.WriteString(asciigraph.PlotMany([][]float64{h.lower, h.upper},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("grains below / above neck"),
	))
	b.WriteString("\n\n")
	b.WriteString(asciigraph.Plot(h.passRate,
		asciigraph.Height(height/2+1),
		asciigraph.Width(width),
		asciigraph.Caption("neck crossings per second"),
	))
	return chartStyle.Render(b.String())
}
