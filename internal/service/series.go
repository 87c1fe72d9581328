package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/jask/pnljournal/internal/chart"
	"github.com/jask/pnljournal/internal/database/repository"
)

// SeriesService turns stored trades into chart series.
type SeriesService struct {
	Trades   *repository.TradeRepo
	Location *time.Location
	Logger   *zap.Logger
}

// DailyPnL returns one point per trading day (by close time in the
// configured location), chronological, with a running cumulative total.
// Trades without a P&L count as zero.
func (s *SeriesService) DailyPnL(ctx context.Context, f repository.TradeFilters) ([]chart.PnLPoint, error) {
	trades, err := s.Trades.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return s.Daily(trades), nil
}

// Daily groups trades that are already ordered by close time.
func (s *SeriesService) Daily(trades []repository.Trade) []chart.PnLPoint {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var points []chart.PnLPoint
	for _, t := range trades {
		day := t.ClosedAt.In(loc).Format(time.DateOnly)
		pnl := 0.0
		if t.PnL != nil {
			pnl = *t.PnL
		} else {
			logger.Warn("trade without pnl counted as zero", zap.String("trade", t.ID), zap.String("symbol", t.Symbol))
		}
		if n := len(points); n > 0 && points[n-1].Date == day {
			points[n-1].PnL += pnl
			continue
		}
		points = append(points, chart.PnLPoint{Date: day, PnL: pnl})
	}
	return chart.Accumulate(points)
}

// SuggestSymbol returns the known symbol closest to symbol, if any is close
// enough to be a plausible typo.
func (s *SeriesService) SuggestSymbol(ctx context.Context, symbol string) (string, bool, error) {
	known, err := s.Trades.Symbols(ctx)
	if err != nil {
		return "", false, fmt.Errorf("list symbols: %w", err)
	}
	best, ok := closestSymbol(strings.ToUpper(strings.TrimSpace(symbol)), known)
	return best, ok, nil
}

func closestSymbol(symbol string, known []string) (string, bool) {
	best, bestDist := "", -1
	for _, k := range known {
		d := levenshtein.ComputeDistance(symbol, k)
		if bestDist < 0 || d < bestDist {
			best, bestDist = k, d
		}
	}
	if bestDist < 0 || bestDist > max(2, len(symbol)/3) {
		return "", false
	}
	return best, true
}

// Summary holds headline statistics for a set of trades.
type Summary struct {
	Trades  int
	Wins    int
	Losses  int
	Total   float64
	Best    float64
	Worst   float64
	Missing int
}

// WinRate is the share of decided trades that were profitable.
func (s Summary) WinRate() float64 {
	if s.Wins+s.Losses == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Wins+s.Losses)
}

func Summarize(trades []repository.Trade) Summary {
	var s Summary
	seen := false
	for _, t := range trades {
		s.Trades++
		if t.PnL == nil {
			s.Missing++
			continue
		}
		v := *t.PnL
		s.Total += v
		switch {
		case v > 0:
			s.Wins++
		case v < 0:
			s.Losses++
		}
		if !seen || v > s.Best {
			s.Best = v
		}
		if !seen || v < s.Worst {
			s.Worst = v
		}
		seen = true
	}
	return s
}
