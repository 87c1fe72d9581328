// Package sample generates demo trades so the dashboard has something to
// show before a real import.
package sample

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/jask/pnljournal/internal/database/repository"
	"github.com/jask/pnljournal/internal/service"
)

// Repos bundles repos used by Seed.
type Repos struct {
	Trades  *repository.TradeRepo
	Batches *repository.BatchRepo
}

// Options controls the generated history.
type Options struct {
	Days int       // trading days to cover, ending at End
	End  time.Time // defaults to today
	Seed int64     // same seed, same trades
}

var symbols = []string{"AAPL", "MSFT", "NVDA", "TSLA", "ES", "NQ", "EURUSD"}

var basePrice = map[string]float64{
	"AAPL": 190, "MSFT": 410, "NVDA": 880, "TSLA": 175, "ES": 5200, "NQ": 18200, "EURUSD": 1.08,
}

// Seed writes one to three closed trades per weekday into a new batch and
// returns the batch ID and number of trades written.
func Seed(ctx context.Context, repos Repos, opts Options) (string, int, error) {
	if opts.Days <= 0 {
		opts.Days = 60
	}
	end := opts.End
	if end.IsZero() {
		end = time.Now()
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(opts.Seed))

	batch := repository.ImportBatch{ID: ulid.Make().String(), Source: "sample"}
	if err := repos.Batches.Insert(ctx, batch); err != nil {
		return "", 0, fmt.Errorf("create batch: %w", err)
	}

	days := tradingDays(end, opts.Days)
	written := 0
	for _, day := range days {
		for n := rng.Intn(3) + 1; n > 0; n-- {
			t := randomTrade(rng, day)
			t.ID = uuid.NewString()
			t.BatchID = &batch.ID
			inserted, err := repos.Trades.Insert(ctx, t)
			if err != nil {
				return batch.ID, written, fmt.Errorf("insert sample trade: %w", err)
			}
			if inserted {
				written++
			}
		}
	}
	if err := repos.Batches.Finish(ctx, batch.ID, written, 0); err != nil {
		return batch.ID, written, fmt.Errorf("finish batch: %w", err)
	}
	return batch.ID, written, nil
}

// tradingDays returns the last n weekdays up to and including end, oldest first.
func tradingDays(end time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := end; len(out) < n; d = d.AddDate(0, 0, -1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func randomTrade(rng *rand.Rand, day time.Time) repository.Trade {
	symbol := symbols[rng.Intn(len(symbols))]
	side := repository.SideLong
	if rng.Intn(3) == 0 {
		side = repository.SideShort
	}
	base := basePrice[symbol]
	entry := round(base*(1+rng.NormFloat64()*0.02), base)
	// Slight positive edge so the cumulative line drifts upwards.
	move := rng.NormFloat64()*0.01 + 0.001
	if side == repository.SideShort {
		move = -move
	}
	exit := round(entry*(1+move), base)
	qty := math.Max(1, math.Round(2000/base))
	fees := math.Round(qty*entry*0.0002*100) / 100

	opened := day.Add(time.Duration(13*60+30+rng.Intn(240)) * time.Minute)
	closed := opened.Add(time.Duration(5+rng.Intn(120)) * time.Minute)
	pnl := service.RealizedPnL(side, qty, entry, exit, fees)
	hash := fmt.Sprintf("sample|%s|%s|%s|%d", symbol, side, opened.Format(time.RFC3339), rng.Int63())
	return repository.Trade{
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		EntryPrice: entry,
		ExitPrice:  exit,
		OpenedAt:   opened,
		ClosedAt:   closed,
		PnL:        &pnl,
		Fees:       fees,
		Notes:      "sample",
		SourceHash: &hash,
	}
}

// round keeps FX quotes at five decimals and everything else at cents.
func round(v, base float64) float64 {
	if base < 10 {
		return math.Round(v*1e5) / 1e5
	}
	return math.Round(v*100) / 100
}
