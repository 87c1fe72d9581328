package chart

import "fmt"

// PnLPoint is one point of a chronological profit-and-loss series.
type PnLPoint struct {
	Date       string  `yaml:"date"`
	PnL        float64 `yaml:"pnl"`
	Cumulative float64 `yaml:"cumulative"`
}

// AggregateThreshold is the largest series returned unchanged by Aggregate.
const AggregateThreshold = 30

// Strategy describes how a long series is bucketed.
type Strategy struct {
	Size  int
	Label string
}

var (
	Weekly    = Strategy{Size: 7, Label: "Week"}
	Fortnight = Strategy{Size: 14, Label: "Fortnight"}
	Monthly   = Strategy{Size: 30, Label: "Month"}
)

// StrategyFor picks the bucket size for a series of n points.
func StrategyFor(n int) Strategy {
	switch {
	case n <= 90:
		return Weekly
	case n <= 365:
		return Fortnight
	default:
		return Monthly
	}
}

type bucket struct {
	key    string
	total  float64
	points []PnLPoint
}

// Aggregate downsamples points into consecutive buckets once the series is
// longer than AggregateThreshold. Each output point carries the bucket's
// average PnL; Cumulative is the running sum of bucket totals.
func Aggregate(points []PnLPoint) []PnLPoint {
	if len(points) <= AggregateThreshold {
		return points
	}
	strategy := StrategyFor(len(points))

	buckets := make([]bucket, 0, (len(points)+strategy.Size-1)/strategy.Size)
	for start := 0; start < len(points); start += strategy.Size {
		end := min(start+strategy.Size, len(points))
		b := bucket{
			key:    fmt.Sprintf("%s %d", strategy.Label, len(buckets)+1),
			points: points[start:end],
		}
		for _, p := range b.points {
			b.total += p.PnL
		}
		buckets = append(buckets, b)
	}

	out := make([]PnLPoint, 0, len(buckets))
	running := 0.0
	for _, b := range buckets {
		running += b.total
		out = append(out, PnLPoint{
			Date:       b.key,
			PnL:        b.total / float64(len(b.points)),
			Cumulative: running,
		})
	}
	return out
}

// Accumulate returns a copy of points with Cumulative recomputed as the
// running sum of PnL in order.
func Accumulate(points []PnLPoint) []PnLPoint {
	out := make([]PnLPoint, len(points))
	running := 0.0
	for i, p := range points {
		running += p.PnL
		p.Cumulative = running
		out[i] = p
	}
	return out
}
