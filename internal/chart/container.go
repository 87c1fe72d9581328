package chart

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"go.uber.org/zap"
)

// State is the container's layout state.
type State int

const (
	// Idle renders, aggregates and animates normally.
	Idle State = iota
	// Transitioning suspends aggregation and animation while the
	// surrounding layout is still moving.
	Transitioning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Transitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

const (
	DefaultIdleDebounce       = 100 * time.Millisecond
	DefaultTransitionDebounce = 500 * time.Millisecond

	// MinWidth and MinHeight bound the rendered chart so an empty or
	// not-yet-sized container never collapses.
	MinWidth  = 24
	MinHeight = 6

	// FrameInterval is the tick used to drive the entry animation.
	FrameInterval = time.Second / frameRate
	frameRate     = 30

	placeholderPoints = 7
	placeholderLabel  = "—"
)

// RenderConfig is what the renderer needs to know about the current state.
type RenderConfig struct {
	State    State
	Animate  bool
	Debounce time.Duration
}

var lastID int64

func nextID() int {
	return int(atomic.AddInt64(&lastID, 1))
}

// Container wraps a P&L chart and defers expensive work while the layout is
// transitioning.
type Container struct {
	title    string
	currency string
	logger   *zap.Logger

	idleDebounce       time.Duration
	transitionDebounce time.Duration

	state    State
	raw      []PnLPoint
	series   []PnLPoint
	stale    bool
	computed bool
	runs     int

	resize resizeDebouncer

	spring   harmonica.Spring
	reveal   float64
	velocity float64
}

// ContainerOption configures a Container.
type ContainerOption func(*Container)

func WithTitle(title string) ContainerOption {
	return func(c *Container) { c.title = title }
}

func WithCurrency(symbol string) ContainerOption {
	return func(c *Container) { c.currency = symbol }
}

func WithLogger(logger *zap.Logger) ContainerOption {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebounce overrides the resize debounce intervals for both states.
func WithDebounce(idle, transitioning time.Duration) ContainerOption {
	return func(c *Container) {
		if idle > 0 {
			c.idleDebounce = idle
		}
		if transitioning > 0 {
			c.transitionDebounce = transitioning
		}
	}
}

func NewContainer(opts ...ContainerOption) *Container {
	c := &Container{
		title:              "P&L",
		currency:           "$",
		logger:             zap.NewNop(),
		idleDebounce:       DefaultIdleDebounce,
		transitionDebounce: DefaultTransitionDebounce,
		spring:             harmonica.NewSpring(harmonica.FPS(frameRate), 8.0, 1.0),
		reveal:             1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resize.id = nextID()
	return c
}

func (c *Container) State() State { return c.state }

// SetTransitioning moves the container between Idle and Transitioning and
// runs the matching entry action. It returns a command when leaving
// Transitioning flushes a pending resize.
func (c *Container) SetTransitioning(transitioning bool) tea.Cmd {
	switch {
	case transitioning && c.state == Idle:
		c.state = Transitioning
		c.suspend()
		return nil
	case !transitioning && c.state == Transitioning:
		c.state = Idle
		return c.resume()
	}
	return nil
}

// suspend is the entry action for Transitioning.
func (c *Container) suspend() {
	c.reveal, c.velocity = 1, 0
	c.logger.Debug("chart suspended", zap.String("title", c.title))
}

// resume is the exit action for Transitioning.
func (c *Container) resume() tea.Cmd {
	if c.stale {
		c.recompute()
	}
	c.logger.Debug("chart resumed", zap.String("title", c.title), zap.Int("points", len(c.series)))
	if w, h, ok := c.resize.Pending(); ok {
		return c.resize.Resize(w, h, c.idleDebounce)
	}
	return nil
}

// SetData replaces the input series. Aggregation runs immediately when Idle
// and is deferred until the transition ends otherwise.
func (c *Container) SetData(points []PnLPoint) {
	clean, coerced := Sanitize(points, c.logger)
	if coerced > 0 {
		clean = Accumulate(clean)
	}
	c.raw = clean
	c.stale = true
	if c.state == Idle {
		c.recompute()
	}
}

func (c *Container) recompute() {
	c.series = Aggregate(c.raw)
	c.stale = false
	c.computed = true
	c.runs++
	if c.config().Animate && len(c.series) > 0 {
		c.reveal, c.velocity = 0, 0
	}
}

// Series returns the last computed series, or a placeholder when nothing
// has been computed yet or the input was empty.
func (c *Container) Series() []PnLPoint {
	if !c.computed || len(c.series) == 0 {
		return Placeholder()
	}
	return c.series
}

// Aggregations reports how many times the series has been recomputed.
func (c *Container) Aggregations() int { return c.runs }

func (c *Container) Config() RenderConfig { return c.config() }

func (c *Container) config() RenderConfig {
	if c.state == Transitioning {
		return RenderConfig{State: Transitioning, Animate: false, Debounce: c.transitionDebounce}
	}
	return RenderConfig{State: Idle, Animate: true, Debounce: c.idleDebounce}
}

// Resize schedules a re-layout at the given size using the current
// debounce interval.
func (c *Container) Resize(width, height int) tea.Cmd {
	return c.resize.Resize(width, height, c.config().Debounce)
}

// ApplyResize accepts a settled resize. Superseded resizes are ignored.
func (c *Container) ApplyResize(msg ResizeMsg) bool {
	return c.resize.Accept(msg)
}

// SetSize applies a size immediately, dropping any pending resize.
func (c *Container) SetSize(width, height int) {
	c.resize.Immediate(width, height)
}

// Size returns the size the chart renders at, never below MinWidth x MinHeight.
func (c *Container) Size() (int, int) {
	w, h := c.resize.LastSize()
	return max(w, MinWidth), max(h, MinHeight)
}

// Animating reports whether the entry animation still needs frames.
func (c *Container) Animating() bool {
	return c.state == Idle && c.reveal < 0.999
}

// Frame advances the entry animation by one frame.
func (c *Container) Frame() {
	if !c.Animating() {
		return
	}
	c.reveal, c.velocity = c.spring.Update(c.reveal, c.velocity, 1)
	if c.reveal > 0.999 {
		c.reveal, c.velocity = 1, 0
	}
}

func (c *Container) View() string {
	w, h := c.Size()
	reveal := max(c.reveal, 0.01)
	if !c.config().Animate {
		reveal = 1
	}
	return Render(Chart{
		Title:    c.title,
		Points:   c.Series(),
		Currency: c.currency,
		Reveal:   reveal,
	}, w, h)
}

// Placeholder is the deterministic series shown when there is nothing to
// chart.
func Placeholder() []PnLPoint {
	out := make([]PnLPoint, placeholderPoints)
	for i := range out {
		out[i] = PnLPoint{Date: placeholderLabel}
	}
	return out
}
