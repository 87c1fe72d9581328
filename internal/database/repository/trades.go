package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// TradeFilters defines list filters. Zero values mean no filter.
type TradeFilters struct {
	Symbol  string
	BatchID string
	From    time.Time // closed_at >= From
	To      time.Time // closed_at < To
	Limit   int
}

// TradeRepo handles trades.
type TradeRepo struct {
	db *sql.DB
}

func NewTradeRepo(db *sql.DB) *TradeRepo { return &TradeRepo{db: db} }

const tradeColumns = `id, batch_id, symbol, side, quantity, entry_price, exit_price, opened_at, closed_at, pnl, fees, notes, source_hash, created_at`

// Insert stores t. It reports false without error when a trade with the
// same source hash already exists.
func (r *TradeRepo) Insert(ctx context.Context, t Trade) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT OR IGNORE INTO trades(
	 id, batch_id, symbol, side, quantity, entry_price, exit_price, opened_at, closed_at,
	 pnl, fees, notes, source_hash, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`,
		t.ID, t.BatchID, t.Symbol, t.Side, t.Quantity, t.EntryPrice, t.ExitPrice,
		t.OpenedAt.UTC(), t.ClosedAt.UTC(), t.PnL, t.Fees, t.Notes, t.SourceHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns trades ordered by close time, oldest first.
func (r *TradeRepo) List(ctx context.Context, f TradeFilters) ([]Trade, error) {
	var where []string
	var args []interface{}

	if f.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, strings.ToUpper(f.Symbol))
	}
	if f.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	if !f.From.IsZero() {
		where = append(where, "closed_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "closed_at < ?")
		args = append(args, f.To.UTC())
	}

	query := "SELECT " + tradeColumns + " FROM trades"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY closed_at ASC, created_at ASC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Symbols returns the distinct traded symbols in alphabetical order.
func (r *TradeRepo) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM trades ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the number of stored trades.
func (r *TradeRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n)
	return n, err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row scanner) (Trade, error) {
	var t Trade
	var batch, source sql.NullString
	var pnl sql.NullFloat64
	if err := row.Scan(&t.ID, &batch, &t.Symbol, &t.Side, &t.Quantity, &t.EntryPrice, &t.ExitPrice,
		&t.OpenedAt, &t.ClosedAt, &pnl, &t.Fees, &t.Notes, &source, &t.CreatedAt); err != nil {
		return Trade{}, err
	}
	if batch.Valid {
		t.BatchID = &batch.String
	}
	if pnl.Valid {
		t.PnL = &pnl.Float64
	}
	if source.Valid {
		t.SourceHash = &source.String
	}
	return t, nil
}
