package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jask/pnljournal/internal/chart"
	"github.com/jask/pnljournal/internal/config"
	"github.com/jask/pnljournal/internal/database/repository"
	"github.com/jask/pnljournal/internal/service"
	"github.com/jask/pnljournal/internal/sidebar"
)

// App is the dashboard: a collapsible symbol sidebar, the P&L chart and the
// trades table.
type App struct {
	ctx    context.Context
	cfg    config.Config
	logger *zap.Logger
	series *service.SeriesService
	loc    *time.Location

	store     *sidebar.Store
	nav       *sidebar.Watcher
	chartSync *sidebar.Watcher
	chart     *chart.Container
	width     *sidebarWidth

	trades  table.Model
	keys    keyMap
	help    help.Model
	focus   focus
	symbols []string
	cursor  int
	filter  string
	summary service.Summary
	last    *chart.PnLPoint
	status  string

	termW, termH int
	sized        bool
	chartW       int
	chartH       int
	ticking      bool
}

// Deps are the collaborators the dashboard is built from.
type Deps struct {
	Store  *sidebar.Store
	Series *service.SeriesService
	Logger *zap.Logger
}

type focus int

const (
	focusSidebar focus = iota
	focusTrades
)

// messages
type (
	tradesMsg struct {
		trades []repository.Trade
		points []chart.PnLPoint
	}
	symbolsMsg []string
	frameMsg   time.Time
	errMsg     struct{ error }
)

func New(ctx context.Context, cfg config.Config, deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := deps.Store
	if store == nil {
		store = sidebar.NewStore(
			sidebar.WithDuration(cfg.Layout.TransitionDuration()),
			sidebar.WithCollapsed(cfg.Layout.SidebarCollapsed),
			sidebar.WithLogger(logger),
		)
	}

	loc := time.Local
	if deps.Series != nil && deps.Series.Location != nil {
		loc = deps.Series.Location
	}

	a := &App{
		ctx:       ctx,
		cfg:       cfg,
		logger:    logger,
		series:    deps.Series,
		loc:       loc,
		store:     store,
		nav:       sidebar.NewWatcher(store, sidebar.All),
		chartSync: sidebar.NewWatcher(store, sidebar.TransitionOnly),
		chart: chart.NewContainer(
			chart.WithTitle("Daily P&L"),
			chart.WithCurrency(cfg.UI.CurrencySymbol),
			chart.WithLogger(logger.Named("chart")),
			chart.WithDebounce(cfg.Chart.IdleDebounce(), cfg.Chart.TransitionDebounce()),
		),
		width:  newSidebarWidth(cfg.Layout, store.Duration(), store.State().Collapsed),
		trades: newTradesTable(),
		keys:   newKeyMap(),
		help:   help.New(),
	}
	return a
}

// Init mounts the sidebar watchers and loads the first page of data.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.nav.Mount(),
		a.chartSync.Mount(),
		a.loadSymbols(),
		a.loadTrades(),
	)
}

// Close releases the sidebar subscriptions. The store itself belongs to the
// caller.
func (a *App) Close() {
	a.nav.Unmount()
	a.chartSync.Unmount()
}

func (a *App) loadTrades() tea.Cmd {
	if a.series == nil || a.series.Trades == nil {
		return nil
	}
	filter := repository.TradeFilters{Symbol: a.filter}
	return func() tea.Msg {
		trades, err := a.series.Trades.List(a.ctx, filter)
		if err != nil {
			return errMsg{fmt.Errorf("load trades: %w", err)}
		}
		return tradesMsg{trades: trades, points: a.series.Daily(trades)}
	}
}

func (a *App) loadSymbols() tea.Cmd {
	if a.series == nil || a.series.Trades == nil {
		return nil
	}
	return func() tea.Msg {
		symbols, err := a.series.Trades.Symbols(a.ctx)
		if err != nil {
			return errMsg{fmt.Errorf("load symbols: %w", err)}
		}
		return symbolsMsg(symbols)
	}
}

// frame schedules the next animation frame unless one is already pending.
func (a *App) frame() tea.Cmd {
	if a.ticking {
		return nil
	}
	a.ticking = true
	return tea.Tick(chart.FrameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (a *App) animating() bool {
	return a.store.State().Transitioning || a.chart.Animating() || !a.width.Settled()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.termW, a.termH = m.Width, m.Height
		return a, a.relayout()

	case tea.KeyMsg:
		return a.handleKey(m)

	case sidebar.StateMsg:
		switch {
		case m.From(a.nav):
			a.width.Target(m.State)
			return a, tea.Batch(a.relayout(), a.frame(), a.nav.Wait())
		case m.From(a.chartSync):
			a.logger.Debug("sidebar transition", zap.Bool("transitioning", m.State.Transitioning), zap.Bool("collapsed", m.State.Collapsed))
			return a, tea.Batch(a.chart.SetTransitioning(m.State.Transitioning), a.relayout(), a.frame(), a.chartSync.Wait())
		}

	case chart.ResizeMsg:
		a.chart.ApplyResize(m)

	case frameMsg:
		a.ticking = false
		a.store.Advance()
		a.chart.Frame()
		a.width.Step(a.store.State())
		cmd := a.relayout()
		if a.animating() {
			return a, tea.Batch(cmd, a.frame())
		}
		return a, cmd

	case tradesMsg:
		a.chart.SetData(m.points)
		a.summary = service.Summarize(m.trades)
		a.last = nil
		if len(m.points) > 0 {
			p := m.points[len(m.points)-1]
			a.last = &p
		}
		a.trades.SetRows(tradeRows(m.trades, a.cfg.UI.CurrencySymbol, a.cfg.UI.DateFormat, a.loc))
		a.status = fmt.Sprintf("%d trades", len(m.trades))
		if a.chart.Animating() {
			return a, a.frame()
		}

	case symbolsMsg:
		a.symbols = []string(m)
		if a.cursor > len(a.symbols) {
			a.cursor = 0
		}

	case errMsg:
		a.logger.Error("dashboard", zap.Error(m.error))
		a.status = "error: " + m.Error()
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Quit):
		a.Close()
		return a, tea.Quit
	case key.Matches(m, a.keys.Toggle):
		// The watchers deliver the change; Update reacts to the StateMsg.
		a.store.Toggle()
		return a, nil
	case key.Matches(m, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, a.relayout()
	case key.Matches(m, a.keys.Focus):
		if a.focus == focusSidebar {
			a.focus = focusTrades
			a.trades.Focus()
		} else {
			a.focus = focusSidebar
			a.trades.Blur()
		}
		return a, nil
	case key.Matches(m, a.keys.Reload):
		a.status = "reloading..."
		return a, tea.Batch(a.loadSymbols(), a.loadTrades())
	}

	if a.focus == focusTrades {
		var cmd tea.Cmd
		a.trades, cmd = a.trades.Update(m)
		return a, cmd
	}

	switch {
	case key.Matches(m, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(m, a.keys.Down):
		if a.cursor < len(a.symbols) {
			a.cursor++
		}
	case key.Matches(m, a.keys.Select):
		a.filter = ""
		if a.cursor > 0 && a.cursor <= len(a.symbols) {
			a.filter = a.symbols[a.cursor-1]
		}
		a.status = "loading..."
		return a, a.loadTrades()
	}
	return a, nil
}
