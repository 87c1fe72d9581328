package chart

import (
	"math"

	"go.uber.org/zap"
)

// Sanitize returns points with malformed values coerced so that aggregation
// and rendering never see NaN, Inf or an unlabeled point. A point with an
// unusable PnL counts as zero. Each coercion is logged and the point is kept
// so the series length and ordering are unchanged. The second result is the
// number of points that were coerced.
func Sanitize(points []PnLPoint, logger *zap.Logger) ([]PnLPoint, int) {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]PnLPoint, len(points))
	coerced := 0
	for i, p := range points {
		bad := false
		if p.Date == "" {
			logger.Warn("pnl point missing date", zap.Int("index", i))
			p.Date = placeholderLabel
			p.PnL = 0
			bad = true
		}
		if !finite(p.PnL) {
			logger.Warn("pnl point has invalid value",
				zap.Int("index", i),
				zap.String("date", p.Date),
				zap.Float64("pnl", p.PnL))
			p.PnL = 0
			bad = true
		}
		if !finite(p.Cumulative) {
			p.Cumulative = 0
			bad = true
		}
		if bad {
			coerced++
		}
		out[i] = p
	}
	return out, coerced
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
