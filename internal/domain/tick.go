package domain

// Measurement carries the raw external market stats attached to a tick.
// Values are passed through to factor snapshots verbatim.
type Measurement struct {
	Volume      float64 // trailing volume reported by the source
	HolderCount float64 // current holder count
	TVL         float64 // pool liquidity
	MarketCap   float64 // fully diluted valuation
}

// Tick is one per-token observation: a price plus raw measurements.
// Corresponds to ticks table in ClickHouse.
type Tick struct {
	ExperimentID string
	TokenAddress string
	TimestampMs  int64 // Unix timestamp in milliseconds
	Price        float64
	Measurement  Measurement
}
