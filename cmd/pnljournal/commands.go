package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jask/pnljournal/internal/chart"
	"github.com/jask/pnljournal/internal/config"
	"github.com/jask/pnljournal/internal/database/repository"
	"github.com/jask/pnljournal/internal/sample"
	"github.com/jask/pnljournal/internal/service"
)

func (e *env) importCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import closed trades from a CSV file",
		Long: `Imports trades with the columns
  symbol,side,quantity,entry_price,exit_price,opened_at,closed_at,pnl,fees,notes

A header row is optional. An empty pnl is computed from the prices,
quantity and side, net of fees. Rows that were already imported are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()
			if source == "" {
				source = filepath.Base(path)
			}

			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			loc, err := e.cfg.Location()
			if err != nil {
				e.logger.Warn("using local timezone", zap.Error(err))
			}
			ingest := &service.IngestService{
				Trades:  repository.NewTradeRepo(db),
				Batches: repository.NewBatchRepo(db),
				Logger:  e.logger.Named("ingest"),
			}
			res, err := ingest.ImportCSV(cmd.Context(), f, source, loc)
			if err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "imported %d, skipped %d (batch %s)\n", res.Imported, res.Skipped, res.BatchID)
			for _, lineErr := range res.Errors {
				printf(cmd.ErrOrStderr(), "  %v\n", lineErr)
			}
			if res.Imported == 0 && res.Skipped == 0 && len(res.Errors) > 0 {
				return errors.New("no trades imported")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "name recorded for the import batch (default: file name)")
	return cmd
}

// seriesExport is the yaml document written by series --format yaml.
type seriesExport struct {
	Symbol     string           `yaml:"symbol,omitempty"`
	Aggregated bool             `yaml:"aggregated"`
	Points     []chart.PnLPoint `yaml:"points"`
}

func (e *env) seriesCmd() *cobra.Command {
	var (
		symbol   string
		from, to string
		raw      bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print the daily P&L series",
		Long: `Prints one point per trading day with its running total. Series longer
than 30 days are grouped into weeks, fortnights or months unless --raw is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := e.cfg.Location()
			if err != nil {
				e.logger.Warn("using local timezone", zap.Error(err))
			}
			filters := repository.TradeFilters{Symbol: symbol}
			if filters.From, err = parseDay(from, loc); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if filters.To, err = parseDay(to, loc); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if !filters.To.IsZero() {
				// --to is inclusive.
				filters.To = filters.To.AddDate(0, 0, 1)
			}

			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			svc := e.seriesService(db)

			points, err := svc.DailyPnL(cmd.Context(), filters)
			if err != nil {
				return err
			}
			if len(points) == 0 && symbol != "" {
				suggestion, ok, err := svc.SuggestSymbol(cmd.Context(), symbol)
				if err != nil {
					return err
				}
				if ok && !strings.EqualFold(suggestion, symbol) {
					return fmt.Errorf("no trades for %s (did you mean %s?)", strings.ToUpper(symbol), suggestion)
				}
			}
			days := len(points)
			if !raw {
				points = chart.Aggregate(points)
			}
			return writeSeries(cmd.OutOrStdout(), format, seriesExport{
				Symbol:     strings.ToUpper(symbol),
				Aggregated: len(points) != days,
				Points:     points,
			}, e.cfg.UI.CurrencySymbol)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "only trades in this symbol")
	cmd.Flags().StringVar(&from, "from", "", "first close date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last close date, YYYY-MM-DD")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the daily series without grouping")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, yaml or chart")
	return cmd
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(time.DateOnly, s, loc)
}

var (
	dateCol   = lipgloss.NewStyle().Width(14)
	amountCol = lipgloss.NewStyle().Width(16).Align(lipgloss.Right)
	headerRow = lipgloss.NewStyle().Bold(true)
)

func writeSeries(w io.Writer, format string, doc seriesExport, currency string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "chart":
		title := "Daily P&L"
		if doc.Symbol != "" {
			title += " " + doc.Symbol
		}
		printf(w, "%s\n", chart.Render(chart.Chart{Title: title, Points: doc.Points, Currency: currency}, 80, 20))
		return nil
	case "table", "":
		printf(w, "%s\n", headerRow.Render(dateCol.Render("date")+amountCol.Render("pnl")+amountCol.Render("cumulative")))
		for _, p := range doc.Points {
			printf(w, "%s%s%s\n",
				dateCol.Render(p.Date),
				amountCol.Render(chart.FormatPnL(p.PnL, currency)),
				amountCol.Render(chart.FormatPnL(p.Cumulative, currency)))
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q: want table, yaml or chart", format)
	}
}

func (e *env) configCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if save {
				if err := config.Save(e.cfg); err != nil {
					return err
				}
				printf(cmd.ErrOrStderr(), "wrote %s\n", config.Path())
			}
			out, err := yaml.Marshal(e.cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "write the effective configuration to the config file")
	return cmd
}

func (e *env) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all trades and import history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every trade; pass --yes to confirm")
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			maint := &service.MaintenanceService{DB: db, Logger: e.logger.Named("maintenance")}
			removed, err := maint.Reset(cmd.Context())
			if err != nil {
				return err
			}
			e.logger.Info("database reset", zap.String("db", e.cfg.Database.Path), zap.Int("trades", removed))
			printf(cmd.OutOrStdout(), "removed %d trades from %s\n", removed, e.cfg.Database.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func (e *env) seedCmd() *cobra.Command {
	var opts sample.Options
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add generated sample trades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			trades := repository.NewTradeRepo(db)
			batch, n, err := sample.Seed(cmd.Context(), sample.Repos{
				Trades:  trades,
				Batches: repository.NewBatchRepo(db),
			}, opts)
			if err != nil {
				return err
			}
			total, err := trades.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count trades: %w", err)
			}
			e.logger.Info("sample trades seeded", zap.String("batch", batch), zap.Int("trades", n), zap.Int("total", total))
			printf(cmd.OutOrStdout(), "seeded %d trades over %d days (batch %s, %d in journal)\n", n, opts.Days, batch, total)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Days, "days", 60, "trading days to generate")
	cmd.Flags().Int64Var(&opts.Seed, "seed", time.Now().UnixNano(), "random seed")
	return cmd
}
