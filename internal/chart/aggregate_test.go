package chart

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func series(values ...float64) []PnLPoint {
	out := make([]PnLPoint, len(values))
	running := 0.0
	for i, v := range values {
		running += v
		out[i] = PnLPoint{Date: fmt.Sprintf("2026-01-%02d", i+1), PnL: v, Cumulative: running}
	}
	return out
}

func ramp(n int) []PnLPoint {
	values := make([]float64, n)
	for i := range values {
		// Alternate winners and losers so cumulative is not monotonic.
		values[i] = float64((i%5)-2) * 12.5
	}
	return series(values...)
}

func sum(points []PnLPoint) float64 {
	total := 0.0
	for _, p := range points {
		total += p.PnL
	}
	return total
}

func TestAggregateShortSeriesIsIdentity(t *testing.T) {
	for _, n := range []int{0, 1, 17, 30} {
		in := ramp(n)
		got := Aggregate(in)
		if diff := cmp.Diff(in, got, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("Aggregate(%d points) mismatch (-want +got):\n%s", n, diff)
		}
	}
}

func TestStrategyFor(t *testing.T) {
	cases := []struct {
		n    int
		want Strategy
	}{
		{31, Weekly},
		{90, Weekly},
		{91, Fortnight},
		{365, Fortnight},
		{366, Monthly},
		{2000, Monthly},
	}
	for _, tc := range cases {
		if got := StrategyFor(tc.n); got != tc.want {
			t.Fatalf("StrategyFor(%d) = %+v, want %+v", tc.n, got, tc.want)
		}
	}
}

func TestAggregate45PointsIntoWeeks(t *testing.T) {
	got := Aggregate(ramp(45))
	if len(got) != 7 {
		t.Fatalf("len = %d, want 7", len(got))
	}
	for i, p := range got {
		want := fmt.Sprintf("Week %d", i+1)
		if p.Date != want {
			t.Fatalf("label[%d] = %q, want %q", i, p.Date, want)
		}
	}
}

func TestAggregate100PointsIntoFortnights(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}
	// Days 1..100; with 91+ points the bucket size is 14.
	in := series(values...)
	got := Aggregate(in)
	if len(got) != 8 {
		t.Fatalf("len = %d, want ceil(100/14) = 8", len(got))
	}

	var want []PnLPoint
	running := 0.0
	for b := 0; b < 8; b++ {
		start := b*14 + 1
		end := min(start+13, 100)
		total := 0.0
		for v := start; v <= end; v++ {
			total += float64(v)
		}
		running += total
		want = append(want, PnLPoint{
			Date:       fmt.Sprintf("Fortnight %d", b+1),
			PnL:        total / float64(end-start+1),
			Cumulative: running,
		})
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("Aggregate mismatch (-want +got):\n%s", diff)
	}
	// The short last bucket holds days 99 and 100.
	if got[7].PnL != 99.5 {
		t.Fatalf("last bucket average = %v, want 99.5", got[7].PnL)
	}
	if got[7].Cumulative != 5050 {
		t.Fatalf("final cumulative = %v, want 5050", got[7].Cumulative)
	}
}

func TestAggregateConservesTotal(t *testing.T) {
	for _, n := range []int{5, 31, 45, 90, 91, 200, 365, 366, 1000} {
		in := ramp(n)
		for i := range in {
			in[i].PnL += math.Sin(float64(i)) * 3.3
		}
		in = Accumulate(in)
		got := Aggregate(in)
		if len(got) == 0 {
			t.Fatalf("n=%d: empty output", n)
		}
		last := got[len(got)-1].Cumulative
		if math.Abs(last-sum(in)) > 1e-6 {
			t.Fatalf("n=%d: last cumulative = %v, want %v", n, last, sum(in))
		}
	}
}

func TestAggregateMonthlyLabels(t *testing.T) {
	got := Aggregate(ramp(400))
	if len(got) != 14 {
		t.Fatalf("len = %d, want 14", len(got))
	}
	if got[0].Date != "Month 1" || got[13].Date != "Month 14" {
		t.Fatalf("labels = %q..%q", got[0].Date, got[13].Date)
	}
}

func TestAccumulate(t *testing.T) {
	in := []PnLPoint{{Date: "a", PnL: 10}, {Date: "b", PnL: -4}, {Date: "c", PnL: 0.5}}
	got := Accumulate(in)
	want := []float64{10, 6, 6.5}
	for i, p := range got {
		if p.Cumulative != want[i] {
			t.Fatalf("cumulative[%d] = %v, want %v", i, p.Cumulative, want[i])
		}
	}
	if in[2].Cumulative != 0 {
		t.Fatal("Accumulate must not modify its input")
	}
}
