package tui

import (
	"math"
	"time"

	"github.com/charmbracelet/harmonica"

	"github.com/jask/pnljournal/internal/chart"
	"github.com/jask/pnljournal/internal/config"
	"github.com/jask/pnljournal/internal/sidebar"
)

const (
	defaultSidebarCols   = 24
	defaultCollapsedCols = 4
)

// sidebarWidth animates the sidebar between its collapsed and expanded
// widths. The spring is tuned so it settles within the store's transition
// duration, and the width snaps to the target when the transition ends.
type sidebarWidth struct {
	expanded  int
	collapsed int

	spring harmonica.Spring
	pos    float64
	vel    float64
	target float64
}

func newSidebarWidth(l config.LayoutConfig, d time.Duration, collapsed bool) *sidebarWidth {
	w := &sidebarWidth{expanded: l.SidebarWidth, collapsed: l.CollapsedWidth}
	if w.expanded <= 0 {
		w.expanded = defaultSidebarCols
	}
	if w.collapsed <= 0 || w.collapsed >= w.expanded {
		w.collapsed = min(defaultCollapsedCols, w.expanded)
	}
	if d <= 0 {
		d = sidebar.DefaultDuration
	}
	// A critically damped spring is within 2% of its target after 6/ω.
	fps := int(time.Second / chart.FrameInterval)
	w.spring = harmonica.NewSpring(harmonica.FPS(fps), 6/d.Seconds(), 1.0)

	w.target = float64(w.expanded)
	if collapsed {
		w.target = float64(w.collapsed)
	}
	w.pos = w.target
	return w
}

// Target points the animation at the width matching s.
func (w *sidebarWidth) Target(s sidebar.State) {
	w.target = float64(w.expanded)
	if s.Collapsed {
		w.target = float64(w.collapsed)
	}
	if !s.Transitioning {
		w.pos, w.vel = w.target, 0
	}
}

// Step advances the spring by one frame.
func (w *sidebarWidth) Step(s sidebar.State) {
	if !s.Transitioning {
		w.pos, w.vel = w.target, 0
		return
	}
	w.pos, w.vel = w.spring.Update(w.pos, w.vel, w.target)
}

func (w *sidebarWidth) Settled() bool { return w.pos == w.target }

// Cols is the current width in terminal cells.
func (w *sidebarWidth) Cols() int {
	cols := int(math.Round(w.pos))
	return max(w.collapsed, min(cols, w.expanded))
}

// Compact reports whether the sidebar is too narrow for labels.
func (w *sidebarWidth) Compact() bool { return w.Cols() < 8 }
