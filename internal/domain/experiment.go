package domain

// Mode selects where the replay driver pulls ticks from.
type Mode string

// Mode constants. Backtest replays recorded ticks page by page; virtual
// and live poll the newest tick through the same downstream pipeline.
const (
	ModeBacktest Mode = "backtest"
	ModeVirtual  Mode = "virtual"
	ModeLive     Mode = "live"
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeBacktest, ModeVirtual, ModeLive:
		return true
	}
	return false
}

// Experiment is one evaluation session.
// Corresponds to experiments table in PostgreSQL.
type Experiment struct {
	ExperimentID string // UUID
	Name         string
	Mode         Mode
	CreatedAt    int64 // Unix timestamp in milliseconds
}

// TrendThresholds are the caller-supplied gates of the trend confirmation
// pipeline. All four are required; nothing is hardcoded so backtest sweeps
// and live tuning run against the same engine.
type TrendThresholds struct {
	CV          float64 // minimum coefficient of variation (noise filter)
	Score       float64 // minimum composite strength score
	TotalReturn float64 // minimum total percent return over the window
	RiseRatio   float64 // minimum fraction of up-ticks
}

// ExperimentConfig enumerates every recognized replay option.
type ExperimentConfig struct {
	ExperimentID string
	Name         string
	Mode         Mode
	Rules        []Rule
	Trend        TrendThresholds

	CooldownDefaultMs int64 // applied to rules with CooldownMs == 0

	// Card ledger sizing.
	CardCount        int // total cards per token
	InitialCashCards int // cards starting in the cash bucket
	BuyCards         int // cash cards converted per accepted buy
	SellCards        int // token cards converted per accepted sell

	// Replay behavior.
	MaxConcurrency   int   // parallel token workers, min 1
	PriceRetentionMs int64 // price-history eviction window
	RiskRecheckTicks int   // re-run risk checks every N ticks
	PollIntervalMs   int64 // virtual/live poll spacing
}
