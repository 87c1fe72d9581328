package repository

import (
	"context"
	"database/sql"
)

// BatchRepo handles import batches.
type BatchRepo struct {
	db *sql.DB
}

func NewBatchRepo(db *sql.DB) *BatchRepo { return &BatchRepo{db: db} }

func (r *BatchRepo) Insert(ctx context.Context, b ImportBatch) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO import_batches(id, source, imported, skipped, created_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, b.ID, b.Source, b.Imported, b.Skipped)
	return err
}

// Finish records the final counts of a batch.
func (r *BatchRepo) Finish(ctx context.Context, id string, imported, skipped int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE import_batches SET imported = ?, skipped = ? WHERE id = ?`, imported, skipped, id)
	return err
}

// List returns batches newest first. Batch IDs are ULIDs, so ID order is
// creation order.
func (r *BatchRepo) List(ctx context.Context) ([]ImportBatch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, source, imported, skipped, created_at FROM import_batches ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImportBatch
	for rows.Next() {
		var b ImportBatch
		if err := rows.Scan(&b.ID, &b.Source, &b.Imported, &b.Skipped, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
