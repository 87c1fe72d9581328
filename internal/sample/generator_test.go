package sample

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/pnljournal/internal/chart"
	"github.com/jask/pnljournal/internal/database"
	"github.com/jask/pnljournal/internal/database/repository"
	"github.com/jask/pnljournal/internal/service"
)

func seedDB(t *testing.T, opts Options) (*repository.TradeRepo, int) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "sample.db")
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos := Repos{Trades: repository.NewTradeRepo(db), Batches: repository.NewBatchRepo(db)}
	batch, n, err := Seed(context.Background(), repos, opts)
	require.NoError(t, err)
	require.NotEmpty(t, batch)
	return repos.Trades, n
}

func TestSeedCoversTradingDays(t *testing.T) {
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	trades, n := seedDB(t, Options{Days: 120, End: end, Seed: 7})
	require.GreaterOrEqual(t, n, 120)
	require.LessOrEqual(t, n, 360)

	svc := &service.SeriesService{Trades: trades, Location: time.UTC}
	daily, err := svc.DailyPnL(context.Background(), repository.TradeFilters{})
	require.NoError(t, err)
	require.Len(t, daily, 120)
	require.Equal(t, "2026-06-30", daily[len(daily)-1].Date)

	grouped := chart.Aggregate(daily)
	require.Len(t, grouped, 9)
	require.Equal(t, "Fortnight 1", grouped[0].Date)
	require.InDelta(t, daily[len(daily)-1].Cumulative, grouped[len(grouped)-1].Cumulative, 1e-6)
}

func TestSeedIsDeterministic(t *testing.T) {
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	a, na := seedDB(t, Options{Days: 20, End: end, Seed: 42})
	b, nb := seedDB(t, Options{Days: 20, End: end, Seed: 42})
	require.Equal(t, na, nb)

	ctx := context.Background()
	ta, err := a.List(ctx, repository.TradeFilters{})
	require.NoError(t, err)
	tb, err := b.List(ctx, repository.TradeFilters{})
	require.NoError(t, err)
	sa, sb := service.Summarize(ta), service.Summarize(tb)
	require.Equal(t, sa.Trades, sb.Trades)
	require.Equal(t, sa.Wins, sb.Wins)
	require.InDelta(t, sa.Total, sb.Total, 1e-6)
}

func TestTradingDaysSkipsWeekends(t *testing.T) {
	// 2026-06-28 is a Sunday.
	days := tradingDays(time.Date(2026, 6, 28, 0, 0, 0, 0, time.UTC), 3)
	require.Len(t, days, 3)
	require.Equal(t, "2026-06-24", days[0].Format(time.DateOnly))
	require.Equal(t, "2026-06-26", days[2].Format(time.DateOnly))
	for _, d := range days {
		require.NotEqual(t, time.Saturday, d.Weekday())
		require.NotEqual(t, time.Sunday, d.Weekday())
	}
}
