package service

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/pnljournal/internal/database"
	"github.com/jask/pnljournal/internal/database/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newIngest(db *sql.DB) *IngestService {
	return &IngestService{
		Trades:  repository.NewTradeRepo(db),
		Batches: repository.NewBatchRepo(db),
	}
}
