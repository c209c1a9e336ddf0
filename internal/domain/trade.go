package domain

// Direction of a trade.
type Direction string

// Direction constants.
const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// TradeRecord represents one executed (or accepted-but-unexecuted) trade.
// Corresponds to trades table in PostgreSQL.
type TradeRecord struct {
	TradeID      string // deterministic hash
	ExperimentID string
	TokenAddress string
	RuleID       string // rule that produced the trade
	Direction    Direction

	TimestampMs int64   // tick timestamp the signal fired at (ms)
	UnitPrice   float64 // price the cards were converted at
	Cards       int     // cards moved between buckets

	// ProfitPct is the percent return relative to the buy price.
	// Populated on sells only; 0 on buys.
	ProfitPct float64

	// Executed reports whether the execution sink confirmed the trade.
	// A sink failure leaves the lifecycle transition applied so backtest
	// bookkeeping stays consistent; the failure is kept here.
	Executed  bool
	ExecError string // sink error message, empty when executed
}
