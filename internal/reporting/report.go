package reporting

import (
	"time"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/metrics"
)

// Report is the rendered summary of one experiment run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Experiment  domain.Experiment

	// Data Summary
	DataSummary DataSummary

	// Outcomes is nil when the experiment produced no sell trades yet.
	Outcomes *metrics.Aggregate

	// Per-token final states (sorted by address)
	TokenRows []TokenRow

	// Trade log (sorted by timestamp_ms, trade_id)
	TradeRows []TradeRow
}

// DataSummary counts the experiment's stored records.
type DataSummary struct {
	TotalTokens   int
	Monitoring    int // still pre-buy at end of run
	OpenPositions int // bought or selling
	Exited        int
	Diverted      int // bad_holder + negative_dev

	TotalSignals    int
	AcceptedSignals int
	RejectedSignals int
	TotalTrades     int
	FailedTrades    int // accepted but not confirmed by the execution sink

	DateRangeStart int64 // Unix ms, earliest signal/trade timestamp
	DateRangeEnd   int64 // Unix ms, latest signal/trade timestamp
}

// TokenRow is one row of the per-token table.
type TokenRow struct {
	Address         string
	Status          domain.Status
	CollectionPrice float64
	BuyPrice        float64
	HighestPrice    float64
	CashCards       int
	TokenCards      int
	Trades          int
	LastSellPct     float64 // ProfitPct of the last sell, 0 if none
}

// TradeRow is one row of the trade log.
type TradeRow struct {
	TradeID      string
	TokenAddress string
	RuleID       string
	Direction    domain.Direction
	TimestampMs  int64
	UnitPrice    float64
	Cards        int
	ProfitPct    float64
	Executed     bool
	ExecError    string
}
