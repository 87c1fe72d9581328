package chart

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ResizeMsg is delivered once a burst of resize events has settled.
type ResizeMsg struct {
	id     int
	tag    int
	Width  int
	Height int
}

// resizeDebouncer coalesces rapid resize events. Every call to Resize
// supersedes the previous one; only the message carrying the latest tag is
// accepted.
type resizeDebouncer struct {
	id  int
	tag int

	pending       bool
	pendingWidth  int
	pendingHeight int
	lastWidth     int
	lastHeight    int
}

func (d *resizeDebouncer) Resize(width, height int, interval time.Duration) tea.Cmd {
	d.tag++
	d.pending = true
	d.pendingWidth, d.pendingHeight = width, height
	id, tag := d.id, d.tag
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return ResizeMsg{id: id, tag: tag, Width: width, Height: height}
	})
}

// Accept reports whether msg is the most recent resize for this debouncer
// and, if so, records its size.
func (d *resizeDebouncer) Accept(msg ResizeMsg) bool {
	if msg.id != d.id || msg.tag != d.tag {
		return false
	}
	d.pending = false
	d.lastWidth, d.lastHeight = msg.Width, msg.Height
	return true
}

// Pending returns the size of a resize that has not settled yet.
func (d *resizeDebouncer) Pending() (width, height int, ok bool) {
	return d.pendingWidth, d.pendingHeight, d.pending
}

// Cancel drops any pending resize.
func (d *resizeDebouncer) Cancel() {
	d.tag++
	d.pending = false
}

// Immediate applies a size now and drops any pending resize.
func (d *resizeDebouncer) Immediate(width, height int) {
	d.Cancel()
	d.lastWidth, d.lastHeight = width, height
}

func (d *resizeDebouncer) LastSize() (int, int) {
	return d.lastWidth, d.lastHeight
}
