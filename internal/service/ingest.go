package service

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/jask/pnljournal/internal/database/repository"
)

// IngestService handles CSV trade imports.
type IngestService struct {
	Trades  *repository.TradeRepo
	Batches *repository.BatchRepo
	Logger  *zap.Logger
}

type IngestResult struct {
	BatchID  string
	Imported int
	Skipped  int
	Errors   []error
}

const tradeColumnCount = 10

// ImportCSV ingests trades. Columns:
//
//	symbol, side, quantity, entry_price, exit_price, opened_at, closed_at, pnl, fees, notes
//
// A header row is optional. An empty pnl is derived from prices, quantity
// and side, net of fees. Rows already imported (same source hash) are
// skipped. Per-line problems are collected in the result, not returned.
func (s *IngestService) ImportCSV(ctx context.Context, r io.Reader, source string, tz *time.Location) (IngestResult, error) {
	if tz == nil {
		tz = time.Local
	}
	logger := s.logger()
	source = strings.TrimSpace(source)
	if source == "" {
		source = "csv"
	}

	res := IngestResult{BatchID: ulid.Make().String()}
	if err := s.Batches.Insert(ctx, repository.ImportBatch{ID: res.BatchID, Source: source}); err != nil {
		return res, fmt.Errorf("create batch: %w", err)
	}

	csvr := csv.NewReader(bufio.NewReader(r))
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1
	csvr.Comment = '#'
	first := true
	for {
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", errorLine(err), err))
			first = false
			continue
		}
		line, _ := csvr.FieldPos(0)
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(rec[0]), "symbol") {
				continue
			}
		}
		t, err := parseTrade(rec, tz)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if t.PnL == nil {
			logger.Warn("trade has no pnl", zap.Int("line", line), zap.String("symbol", t.Symbol))
		}
		t.ID = uuid.NewString()
		t.BatchID = &res.BatchID

		inserted, err := s.Trades.Insert(ctx, t)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("line %d insert: %w", line, err))
			continue
		}
		if !inserted {
			res.Skipped++
			continue
		}
		res.Imported++
	}

	if err := s.Batches.Finish(ctx, res.BatchID, res.Imported, res.Skipped); err != nil {
		return res, fmt.Errorf("finish batch: %w", err)
	}
	logger.Info("import finished",
		zap.String("batch", res.BatchID),
		zap.String("source", source),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

// errorLine is the physical line a csv read failed on.
func errorLine(err error) int {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		if perr.StartLine > 0 {
			return perr.StartLine
		}
		return perr.Line
	}
	return 0
}

func (s *IngestService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func parseTrade(rec []string, tz *time.Location) (repository.Trade, error) {
	if len(rec) < 7 {
		return repository.Trade{}, fmt.Errorf("expected at least 7 columns, got %d", len(rec))
	}
	for len(rec) < tradeColumnCount {
		rec = append(rec, "")
	}
	field := func(i int) string { return strings.TrimSpace(rec[i]) }

	t := repository.Trade{
		Symbol: strings.ToUpper(field(0)),
		Side:   strings.ToLower(field(1)),
		Notes:  field(9),
	}
	if t.Symbol == "" {
		return t, errors.New("symbol required")
	}
	switch t.Side {
	case "buy":
		t.Side = repository.SideLong
	case "sell":
		t.Side = repository.SideShort
	case repository.SideLong, repository.SideShort:
	default:
		return t, fmt.Errorf("side %q: want long or short", t.Side)
	}

	var err error
	if t.Quantity, err = parseAmount(field(2)); err != nil {
		return t, fmt.Errorf("quantity: %w", err)
	}
	entry, entryOK, err := optionalAmount(field(3))
	if err != nil {
		return t, fmt.Errorf("entry_price: %w", err)
	}
	exit, exitOK, err := optionalAmount(field(4))
	if err != nil {
		return t, fmt.Errorf("exit_price: %w", err)
	}
	t.EntryPrice, t.ExitPrice = entry, exit
	if t.OpenedAt, err = parseTimestamp(field(5), tz); err != nil {
		return t, fmt.Errorf("opened_at: %w", err)
	}
	if t.ClosedAt, err = parseTimestamp(field(6), tz); err != nil {
		return t, fmt.Errorf("closed_at: %w", err)
	}
	if t.ClosedAt.Before(t.OpenedAt) {
		return t, errors.New("closed_at before opened_at")
	}
	fees, _, err := optionalAmount(field(8))
	if err != nil {
		return t, fmt.Errorf("fees: %w", err)
	}
	t.Fees = fees

	pnl, pnlOK, err := optionalAmount(field(7))
	if err != nil {
		return t, fmt.Errorf("pnl: %w", err)
	}
	switch {
	case pnlOK:
		t.PnL = &pnl
	case entryOK && exitOK:
		v := RealizedPnL(t.Side, t.Quantity, entry, exit, fees)
		t.PnL = &v
	}

	t.SourceHash = hashSource(t.Symbol, t.Side,
		strconv.FormatFloat(t.Quantity, 'f', -1, 64),
		strconv.FormatFloat(entry, 'f', -1, 64),
		strconv.FormatFloat(exit, 'f', -1, 64),
		t.OpenedAt.Format(time.RFC3339),
		t.ClosedAt.Format(time.RFC3339))
	return t, nil
}

// RealizedPnL is the profit of a closed position net of fees, rounded to
// cents.
func RealizedPnL(side string, quantity, entry, exit, fees float64) float64 {
	gross := (exit - entry) * quantity
	if side == repository.SideShort {
		gross = -gross
	}
	return math.Round((gross-fees)*100) / 100
}

func parseAmount(s string) (float64, error) {
	s = strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(s))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func optionalAmount(s string) (float64, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	f, err := parseAmount(s)
	if err != nil {
		return 0, false, err
	}
	return f, true, nil
}

var timestampLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04", time.DateOnly}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func hashSource(parts ...string) *string {
	joined := strings.Join(parts, "|")
	sum := sha256.Sum256([]byte(joined))
	h := fmt.Sprintf("%x", sum[:])
	return &h
}
