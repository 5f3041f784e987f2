package telemetry

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/pthm-cable/hourglass/config"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFlipSettled   BookmarkType = "flip_settled"
	BookmarkSourceDrained BookmarkType = "source_drained"
	BookmarkFlowStarved   BookmarkType = "flow_starved"
	BookmarkPileAtRest    BookmarkType = "pile_at_rest"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	restSpeed  float64
	drainShare float64

	// Edge-trigger state
	last       *WindowStats
	starved    bool
	atRest     bool
	drained    bool
	settledAt  float64
	hasSettled bool
}

// NewBookmarkDetector creates a detector with the given history size and
// thresholds.
func NewBookmarkDetector(historySize int, cfg config.TelemetryConfig) *BookmarkDetector {
	if historySize < 2 {
		historySize = 2
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
		restSpeed:   cfg.RestSpeed,
		drainShare:  cfg.DrainShare,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkFlipSettled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSourceDrained(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkFlowStarved(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkPileAtRest(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.last = &bd.history[bd.historyIdx]
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

// History returns a copy of the recorded windows, oldest first.
func (bd *BookmarkDetector) History() []WindowStats {
	if !bd.historyFull {
		return slices.Clone(bd.history[:bd.historyIdx])
	}
	out := make([]WindowStats, 0, bd.historySize)
	out = append(out, bd.history[bd.historyIdx:]...)
	return append(out, bd.history[:bd.historyIdx]...)
}

// checkFlipSettled fires when the tilt comes to rest at a new angle.
func (bd *BookmarkDetector) checkFlipSettled(stats WindowStats) *Bookmark {
	if stats.AngularVel != 0 {
		return nil
	}
	if !bd.hasSettled {
		bd.hasSettled = true
		bd.settledAt = stats.Angle
		return nil
	}
	if stats.Angle == bd.settledAt {
		return nil
	}
	from := bd.settledAt
	bd.settledAt = stats.Angle
	return &Bookmark{
		Type:        BookmarkFlipSettled,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Tilt settled at %.3f rad (%.1f turns) from %.3f", stats.Angle, stats.Angle/(2*math.Pi), from),
	}
}

// checkSourceDrained fires once each time the feeding chamber empties.
func (bd *BookmarkDetector) checkSourceDrained(stats WindowStats) *Bookmark {
	if stats.Grains == 0 {
		return nil
	}
	drained := stats.SourceShare <= bd.drainShare
	defer func() { bd.drained = drained }()
	if !drained || bd.drained {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSourceDrained,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Source chamber drained to %.1f%% of %d grains", stats.SourceShare*100, stats.Grains),
	}
}

// checkFlowStarved fires when the gate blocks more grains than it passes
// with no budget left.
func (bd *BookmarkDetector) checkFlowStarved(stats WindowStats) *Bookmark {
	starved := stats.Blocked > stats.Passed && stats.Budget < 1
	defer func() { bd.starved = starved }()
	if !starved || bd.starved {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkFlowStarved,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Neck blocked %d grains and passed %d with budget %.2f", stats.Blocked, stats.Passed, stats.Budget),
	}
}

// checkPileAtRest fires when mean grain speed drops below the rest
// threshold after the previous window was moving.
func (bd *BookmarkDetector) checkPileAtRest(stats WindowStats) *Bookmark {
	if stats.Grains == 0 {
		return nil
	}
	atRest := stats.SpeedMean < bd.restSpeed
	defer func() { bd.atRest = atRest }()
	if !atRest || bd.atRest || bd.last == nil {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkPileAtRest,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Mean speed %.4f fell below %.4f (was %.4f)", stats.SpeedMean, bd.restSpeed, bd.last.SpeedMean),
	}
}
