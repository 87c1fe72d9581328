package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/jask/pnljournal/internal/database"
)

// MaintenanceService backs the reset command.
type MaintenanceService struct {
	DB     *sql.DB
	Logger *zap.Logger
}

// Reset empties the journal: every trade and import batch is deleted in one
// transaction and the file is compacted. The schema and migration version
// stay. It returns the number of trades removed.
func (s *MaintenanceService) Reset(ctx context.Context) (int, error) {
	if s.DB == nil {
		return 0, fmt.Errorf("maintenance: db not configured")
	}
	var removed int
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&removed); err != nil {
			return fmt.Errorf("count trades: %w", err)
		}
		// trades reference batches
		for _, table := range []string{"trades", "import_batches"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("reset table %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if _, err := s.DB.ExecContext(ctx, "VACUUM"); err != nil {
		s.logger().Warn("vacuum after reset", zap.Error(err))
	}
	return removed, nil
}

func (s *MaintenanceService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
