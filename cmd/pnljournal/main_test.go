package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const tradesCSV = `symbol,side,quantity,entry_price,exit_price,opened_at,closed_at,pnl,fees,notes
TSLA,long,2,200,210,2026-01-05,2026-01-05,,,
TSLA,short,1,220,230,2026-01-06,2026-01-06,,,
AAPL,long,10,100,101.5,2026-01-06,2026-01-07,,0.5,
`

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("PNLJOURNAL_CONFIG", filepath.Join(dir, "config.toml"))
	t.Setenv("PNLJOURNAL_DATABASE_PATH", filepath.Join(dir, "data", "journal.db"))
	t.Setenv("PNLJOURNAL_LOG_PATH", filepath.Join(dir, "journal.log"))
	t.Setenv("PNLJOURNAL_UI_TIMEZONE", "UTC")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "trades.csv")
	require.NoError(t, os.WriteFile(path, []byte(tradesCSV), 0o600))
	return path
}

func TestImportTwiceSkipsDuplicates(t *testing.T) {
	dir := isolate(t)
	path := writeCSV(t, dir)

	out, _, err := run(t, "import", path)
	require.NoError(t, err)
	require.Contains(t, out, "imported 3, skipped 0")

	out, _, err = run(t, "import", path, "--source", "again")
	require.NoError(t, err)
	require.Contains(t, out, "imported 0, skipped 3")
}

func TestSeriesYAML(t *testing.T) {
	dir := isolate(t)
	_, _, err := run(t, "import", writeCSV(t, dir))
	require.NoError(t, err)

	out, _, err := run(t, "series", "--raw", "--format", "yaml")
	require.NoError(t, err)

	var doc seriesExport
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.False(t, doc.Aggregated)
	require.Len(t, doc.Points, 3)
	require.Equal(t, "2026-01-05", doc.Points[0].Date)
	require.Equal(t, 20.0, doc.Points[0].PnL)
	require.Equal(t, -10.0, doc.Points[1].PnL)
	require.Equal(t, 24.5, doc.Points[2].Cumulative)
}

func TestSeriesDateRange(t *testing.T) {
	dir := isolate(t)
	_, _, err := run(t, "import", writeCSV(t, dir))
	require.NoError(t, err)

	out, _, err := run(t, "series", "--from", "2026-01-06", "--to", "2026-01-06", "--format", "yaml")
	require.NoError(t, err)
	var doc seriesExport
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Points, 1)
	require.Equal(t, "2026-01-06", doc.Points[0].Date)

	_, _, err = run(t, "series", "--from", "06/01/2026")
	require.ErrorContains(t, err, "--from")
}

func TestSeriesSuggestsSymbol(t *testing.T) {
	dir := isolate(t)
	_, _, err := run(t, "import", writeCSV(t, dir))
	require.NoError(t, err)

	_, _, err = run(t, "series", "--symbol", "tsal")
	require.ErrorContains(t, err, "did you mean TSLA")
}

func TestSeriesTableAndChart(t *testing.T) {
	dir := isolate(t)
	_, _, err := run(t, "import", writeCSV(t, dir))
	require.NoError(t, err)

	out, _, err := run(t, "series", "--symbol", "tsla")
	require.NoError(t, err)
	require.Contains(t, out, "cumulative")
	require.Contains(t, out, "+$20.00")
	require.Contains(t, out, "-$10.00")

	out, _, err = run(t, "series", "--format", "chart")
	require.NoError(t, err)
	require.Contains(t, out, "Daily P&L")

	_, _, err = run(t, "series", "--format", "xml")
	require.ErrorContains(t, err, "unknown format")
}

func TestConfigPrintsAndSaves(t *testing.T) {
	dir := isolate(t)
	t.Setenv("PNLJOURNAL_LAYOUT_TRANSITION_MS", "250")

	out, _, err := run(t, "config", "--save")
	require.NoError(t, err)
	require.Contains(t, out, "transition_ms: 250")
	require.FileExists(t, filepath.Join(dir, "config.toml"))
}

func TestResetNeedsConfirmation(t *testing.T) {
	dir := isolate(t)
	_, _, err := run(t, "import", writeCSV(t, dir))
	require.NoError(t, err)

	_, _, err = run(t, "reset")
	require.ErrorContains(t, err, "--yes")

	out, _, err := run(t, "reset", "--yes")
	require.NoError(t, err)
	require.Contains(t, out, "removed 3 trades")
	out, _, err = run(t, "series", "--raw", "--format", "yaml")
	require.NoError(t, err)
	var doc seriesExport
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Empty(t, doc.Points)
}

func TestSeedThenAggregatedSeries(t *testing.T) {
	isolate(t)
	out, _, err := run(t, "seed", "--days", "45", "--seed", "3")
	require.NoError(t, err)
	require.Contains(t, out, "over 45 days")
	m := regexp.MustCompile(`seeded (\d+) trades over 45 days \(batch \S+, (\d+) in journal\)`).FindStringSubmatch(out)
	require.Len(t, m, 3, out)
	require.Equal(t, m[1], m[2], "an empty journal holds exactly the seeded trades")

	out, _, err = run(t, "series", "--format", "yaml")
	require.NoError(t, err)
	var doc seriesExport
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.True(t, doc.Aggregated)
	require.Len(t, doc.Points, 7)
	require.Equal(t, "Week 1", doc.Points[0].Date)
}
