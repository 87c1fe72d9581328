package repository

import "time"

const (
	SideLong  = "long"
	SideShort = "short"
)

// Trade represents a closed trade row.
type Trade struct {
	ID         string
	BatchID    *string
	Symbol     string
	Side       string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	OpenedAt   time.Time
	ClosedAt   time.Time
	// PnL is the realized profit or loss net of fees. Nil marks a record
	// whose P&L could not be determined.
	PnL        *float64
	Fees       float64
	Notes      string
	SourceHash *string
	CreatedAt  time.Time
}

// ImportBatch represents one CSV import.
type ImportBatch struct {
	ID        string
	Source    string
	Imported  int
	Skipped   int
	CreatedAt time.Time
}
