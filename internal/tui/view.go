package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/jask/pnljournal/internal/chart"
	"github.com/jask/pnljournal/internal/database/repository"
)

// Catppuccin Mocha, matching the chart palette.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay0 lipgloss.Color = "#6c7086"
	colorSurface0 lipgloss.Color = "#313244"
	colorMantle   lipgloss.Color = "#181825"
)

var (
	brandStyle    = lipgloss.NewStyle().Foreground(colorPink).Bold(true)
	navStyle      = lipgloss.NewStyle().Foreground(colorText)
	navActive     = lipgloss.NewStyle().Foreground(colorLavender).Bold(true)
	navFilter     = lipgloss.NewStyle().Foreground(colorPink)
	dividerStyle  = lipgloss.NewStyle().Foreground(colorSurface0)
	progressStyle = lipgloss.NewStyle().Foreground(colorLavender)
	summaryStyle  = lipgloss.NewStyle().Foreground(colorSubtext0)
	statusStyle   = lipgloss.NewStyle().Foreground(colorSubtext0).Background(colorMantle)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorOverlay0)
)

const allSymbols = "All symbols"

func newTradesTable() table.Model {
	cols := []table.Column{
		{Title: "Closed", Width: 10},
		{Title: "Symbol", Width: 8},
		{Title: "Side", Width: 5},
		{Title: "Qty", Width: 8},
		{Title: "P&L", Width: 12},
		{Title: "Notes", Width: 20},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(6))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true)
	styles.Selected = styles.Selected.Bold(true)
	t.SetStyles(styles)
	return t
}

// tradeRows lists trades most recent first.
func tradeRows(trades []repository.Trade, currency, dateFormat string, loc *time.Location) []table.Row {
	if dateFormat == "" {
		dateFormat = time.DateOnly
	}
	rows := make([]table.Row, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		pnl := "—"
		if t.PnL != nil {
			pnl = chart.FormatPnL(*t.PnL, currency)
		}
		rows = append(rows, table.Row{
			t.ClosedAt.In(loc).Format(dateFormat),
			t.Symbol,
			t.Side,
			humanize.Ftoa(t.Quantity),
			pnl,
			t.Notes,
		})
	}
	return rows
}

// layout sizes in cells, derived from the terminal size and the current
// sidebar width.
type layout struct {
	side, main     int
	body           int
	chart, table   int
	helpH, footerH int
}

func (a *App) layout() layout {
	l := layout{side: a.width.Cols()}
	l.main = max(1, a.termW-l.side-1)
	l.helpH = lipgloss.Height(a.help.View(a.keys))
	l.footerH = l.helpH + 1
	l.body = max(1, a.termH-l.footerH)
	l.chart = max(chart.MinHeight, l.body*3/5)
	l.table = max(3, l.body-l.chart-1)
	return l
}

// relayout sizes the table immediately and hands the chart size to the
// container, which debounces it.
func (a *App) relayout() tea.Cmd {
	if a.termW == 0 {
		return nil
	}
	l := a.layout()
	a.help.Width = a.termW
	a.trades.SetWidth(l.main)
	a.trades.SetHeight(l.table)

	if !a.sized {
		a.sized = true
		a.chartW, a.chartH = l.main, l.chart
		a.chart.SetSize(l.main, l.chart)
		return nil
	}
	if l.main == a.chartW && l.chart == a.chartH {
		return nil
	}
	a.chartW, a.chartH = l.main, l.chart
	return a.chart.Resize(l.main, l.chart)
}

func (a *App) View() string {
	if a.termW == 0 {
		return statusStyle.Render("loading...")
	}
	l := a.layout()

	main := make([]string, 0, l.body)
	main = append(main, fitBlock(a.chart.View(), l.main, l.chart)...)
	main = append(main, fit(a.renderSummary(), l.main))
	main = append(main, fitBlock(a.trades.View(), l.main, l.table)...)

	body := joinColumns(a.renderSidebar(l.side, l.body), l.side, main, l.main, l.body)
	status := statusStyle.Render(fit(" "+a.status, a.termW))
	return strings.Join(append(body, status, a.help.View(a.keys)), "\n")
}

func (a *App) renderSidebar(width, height int) []string {
	compact := a.width.Compact()
	lines := make([]string, 0, height)
	if compact {
		lines = append(lines, brandStyle.Render("≡"))
	} else {
		lines = append(lines, brandStyle.Render("pnljournal"))
	}
	lines = append(lines, "")

	st := a.store.State()
	rows := height - len(lines)
	if st.Transitioning {
		rows--
	}
	items := append([]string{allSymbols}, a.symbols...)
	start, end := scrollWindow(len(items), a.cursor, rows)
	for i := start; i < end; i++ {
		name := items[i]
		selected := (i == 0 && a.filter == "") || (i > 0 && name == a.filter)
		label := name
		if compact {
			label = ansi.Truncate(name, max(1, width-2), "")
		}
		prefix := "  "
		style := navStyle
		if i == a.cursor && a.focus == focusSidebar {
			prefix = "> "
			style = navActive
		}
		if selected {
			label = navFilter.Render(label)
		}
		lines = append(lines, style.Render(prefix)+label)
	}

	if st.Transitioning && height > 0 {
		for len(lines) < height-1 {
			lines = append(lines, "")
		}
		bar := strings.Repeat("━", int(st.Progress*float64(width)))
		lines = append(lines[:height-1], progressStyle.Render(bar))
	}
	return lines
}

// scrollWindow returns the slice [start, end) of n items that fits in rows
// and keeps cursor visible, centred when the list allows.
func scrollWindow(n, cursor, rows int) (start, end int) {
	if rows <= 0 || n == 0 {
		return 0, 0
	}
	if n <= rows {
		return 0, n
	}
	cursor = max(0, min(cursor, n-1))
	start = max(0, min(cursor-rows/2, n-rows))
	return start, start + rows
}

func (a *App) renderSummary() string {
	s := a.summary
	currency := a.cfg.UI.CurrencySymbol
	parts := []string{
		fmt.Sprintf("%d trades", s.Trades),
		fmt.Sprintf("win %.0f%%", s.WinRate()*100),
		"total " + chart.PnLStyle(s.Total).Render(chart.FormatPnL(s.Total, currency)),
	}
	if s.Wins+s.Losses > 0 {
		parts = append(parts,
			"best "+chart.PnLStyle(s.Best).Render(chart.FormatPnL(s.Best, currency)),
			"worst "+chart.PnLStyle(s.Worst).Render(chart.FormatPnL(s.Worst, currency)))
	}
	if s.Missing > 0 {
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("%d without pnl", s.Missing)))
	}
	line := summaryStyle.Render(strings.Join(parts, "  "))
	if a.last != nil {
		line += "  " + chart.Tooltip(*a.last, currency)
	}
	return line
}

// joinColumns places left and right side by side with a one-cell divider.
// Both sides are padded or cut to exactly height lines.
func joinColumns(left []string, leftW int, right []string, rightW, height int) []string {
	out := make([]string, height)
	divider := dividerStyle.Render("│")
	for i := range out {
		var l, r string
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		out[i] = fit(l, leftW) + divider + fit(r, rightW)
	}
	return out
}

func fitBlock(s string, width, height int) []string {
	lines := strings.Split(s, "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = lines[:height]
	for i, line := range lines {
		lines[i] = fit(line, width)
	}
	return lines
}

func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = ansi.Truncate(s, width, "")
	if w := ansi.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}
