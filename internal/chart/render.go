package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

const (
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorRed      lipgloss.Color = "#f38ba8"
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay0 lipgloss.Color = "#6c7086"
	colorLavender lipgloss.Color = "#b4befe"
)

var (
	profitStyle = lipgloss.NewStyle().Foreground(colorGreen)
	lossStyle   = lipgloss.NewStyle().Foreground(colorRed)
	flatStyle   = lipgloss.NewStyle().Foreground(colorOverlay0)
	titleStyle  = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(colorSubtext0)
	lineStyle   = lipgloss.NewStyle().Foreground(colorLavender)
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Chart is a renderable P&L series.
type Chart struct {
	Title    string
	Points   []PnLPoint
	Currency string
	// Reveal scales bar lengths in (0,1] for the entry animation. Zero
	// draws full bars.
	Reveal float64
}

// PnLStyle colours a value by sign: profit, loss, or flat.
func PnLStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return profitStyle
	case v < 0:
		return lossStyle
	default:
		return flatStyle
	}
}

// FormatPnL formats a money amount with an explicit sign and thousands
// separators. Zero has no sign.
func FormatPnL(v float64, currency string) string {
	if !finite(v) {
		v = 0
	}
	amount := humanize.FormatFloat("#,###.##", math.Abs(v))
	switch {
	case v > 0 && amount != "0.00":
		return "+" + currency + amount
	case v < 0 && amount != "0.00":
		return "-" + currency + amount
	default:
		return currency + amount
	}
}

// Tooltip describes a single point for the detail line under the chart.
func Tooltip(p PnLPoint, currency string) string {
	return fmt.Sprintf("%s  pnl %s  cum %s",
		labelStyle.Render(p.Date),
		PnLStyle(p.PnL).Render(FormatPnL(p.PnL, currency)),
		PnLStyle(p.Cumulative).Render(FormatPnL(p.Cumulative, currency)))
}

// Legend is the key printed beside the chart title.
func Legend() string {
	return strings.Join([]string{
		profitStyle.Render("■ profit"),
		lossStyle.Render("■ loss"),
		flatStyle.Render("■ flat"),
	}, " ")
}

// Render draws c as exactly height lines of width cells. Rows beyond the
// available height keep the most recent points.
func Render(c Chart, width, height int) string {
	width, height = max(width, MinWidth), max(height, MinHeight)
	points := c.Points
	if len(points) == 0 {
		points = Placeholder()
	}
	reveal := c.Reveal
	if reveal <= 0 || reveal > 1 || !finite(reveal) {
		reveal = 1
	}

	lines := make([]string, 0, height)
	lines = append(lines, titleStyle.Render(c.Title)+"  "+Legend())

	rows := height - 2
	if len(points) > rows {
		points = points[len(points)-rows:]
	}

	labelW := 0
	valueW := 0
	maxAbs := 0.0
	hasNeg, hasPos := false, false
	for _, p := range points {
		labelW = max(labelW, ansi.StringWidth(p.Date))
		valueW = max(valueW, ansi.StringWidth(FormatPnL(p.PnL, c.Currency)))
		if finite(p.PnL) {
			maxAbs = math.Max(maxAbs, math.Abs(p.PnL))
		}
		hasNeg = hasNeg || p.PnL < 0
		hasPos = hasPos || p.PnL > 0
	}
	labelW = min(labelW, 12)
	barW := max(2, width-labelW-valueW-2)

	left, right := 0, barW
	switch {
	case hasNeg && hasPos:
		left = barW / 2
		right = barW - left
	case hasNeg:
		left, right = barW, 0
	}

	for _, p := range points {
		label := padRight(ansi.Truncate(p.Date, labelW, ""), labelW)
		bar := renderBar(p.PnL, maxAbs, left, right, reveal)
		value := PnLStyle(p.PnL).Render(FormatPnL(p.PnL, c.Currency))
		lines = append(lines, labelStyle.Render(label)+" "+bar+" "+value)
	}

	last := points[len(points)-1]
	spark := sparkline(points, max(1, width-valueW-6))
	lines = append(lines, "cum "+lineStyle.Render(spark)+" "+PnLStyle(last.Cumulative).Render(FormatPnL(last.Cumulative, c.Currency)))

	for len(lines) < height {
		lines = append(lines, "")
	}
	lines = lines[:height]
	for i, line := range lines {
		lines[i] = padRight(line, width)
	}
	return strings.Join(lines, "\n")
}

func renderBar(v, maxAbs float64, left, right int, reveal float64) string {
	span := right
	if v < 0 {
		span = left
	}
	if !finite(maxAbs) {
		maxAbs = 0
	}
	n := 0
	switch {
	case v == 0 || math.IsNaN(v):
		v = 0
	case !finite(v):
		// overflowed sums draw as a full bar
		n = max(1, int(math.Round(float64(span)*reveal)))
		n = min(n, span)
	case maxAbs > 0:
		n = int(math.Round(math.Abs(v) / maxAbs * float64(span) * reveal))
		n = max(1, min(n, span))
	}
	if v == 0 {
		axis := flatStyle.Render("·")
		if left > 0 {
			return strings.Repeat(" ", left-1) + axis + strings.Repeat(" ", right)
		}
		return axis + strings.Repeat(" ", right-1)
	}
	block := PnLStyle(v).Render(strings.Repeat("█", n))
	if v < 0 {
		return strings.Repeat(" ", left-n) + block + strings.Repeat(" ", right)
	}
	return strings.Repeat(" ", left) + block + strings.Repeat(" ", right-n)
}

func sparkline(points []PnLPoint, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if finite(p.Cumulative) {
			lo = math.Min(lo, p.Cumulative)
			hi = math.Max(hi, p.Cumulative)
		}
	}
	top := len(sparkRunes) - 1
	n := min(width, len(points))
	var b strings.Builder
	for i := 0; i < n; i++ {
		v := points[i*len(points)/n].Cumulative
		idx := 0
		switch {
		case math.IsInf(v, 1):
			idx = top
		case !finite(v) || !finite(hi-lo) || hi <= lo:
		default:
			idx = int((v - lo) / (hi - lo) * float64(top))
		}
		b.WriteRune(sparkRunes[max(0, min(idx, top))])
	}
	return b.String()
}

func padRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = ansi.Truncate(s, width, "")
	w := ansi.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
