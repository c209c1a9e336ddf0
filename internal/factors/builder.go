// Package factors builds the per-tick factor snapshot a rule set is
// evaluated against: raw measurements passed through verbatim, lifetime
// factors derived from token state, and trend factors computed over the
// token's buffered price history.
package factors

import (
	"fmt"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/trend"
)

// Snapshot is the complete factor mapping for one token at one tick.
// Treated as immutable once built.
type Snapshot map[string]float64

// Factor names recognized by shipped rule sets. Conditions may reference
// any name; unknown names read as zero at evaluation time.
const (
	FactorPrice       = "price"
	FactorVolume      = "volume"
	FactorHolderCount = "holderCount"
	FactorTVL         = "tvl"
	FactorMarketCap   = "marketCap"

	FactorTokenAge    = "tokenAge"    // seconds since first observation
	FactorEarlyReturn = "earlyReturn" // percent change from collection price
	FactorDrawdown    = "drawdown"    // percent below the running highest price

	FactorTrendPassed    = "trendPassed" // 1 when all four gates passed
	FactorTrendCV        = "trendCV"
	FactorTrendScore     = "trendScore"
	FactorTrendReturn    = "trendReturn"
	FactorTrendRiseRatio = "trendRiseRatio"
	FactorTrendVotes     = "trendVotes"
)

// Builder produces factor snapshots for ticks.
type Builder struct {
	thresholds domain.TrendThresholds
}

// NewBuilder creates a snapshot builder using the experiment's trend
// thresholds.
func NewBuilder(thresholds domain.TrendThresholds) *Builder {
	return &Builder{thresholds: thresholds}
}

// Build produces the factor snapshot for one tick.
//
// Side effects, in order: the tick price is appended to the token's price
// history FIRST (so trend factors include the current tick), then
// state.HighestPrice is raised if the tick sets a new high. Everything
// else is a pure read.
func (b *Builder) Build(tick domain.Tick, state *domain.TokenState, history *History) (Snapshot, error) {
	if err := history.Append(tick.TimestampMs, tick.Price); err != nil {
		return nil, fmt.Errorf("append price for %s at %d: %w", tick.TokenAddress, tick.TimestampMs, err)
	}

	if tick.Price > state.HighestPrice {
		state.HighestPrice = tick.Price
	}

	snapshot := Snapshot{
		FactorPrice:       tick.Price,
		FactorVolume:      tick.Measurement.Volume,
		FactorHolderCount: tick.Measurement.HolderCount,
		FactorTVL:         tick.Measurement.TVL,
		FactorMarketCap:   tick.Measurement.MarketCap,

		FactorTokenAge: float64(tick.TimestampMs-state.CollectedAt) / 1000,
	}

	if state.CollectionPrice > 0 {
		snapshot[FactorEarlyReturn] = (tick.Price - state.CollectionPrice) / state.CollectionPrice * 100
	}
	if state.HighestPrice > 0 {
		snapshot[FactorDrawdown] = (state.HighestPrice - tick.Price) / state.HighestPrice * 100
	}

	result := trend.Confirm(history.Prices(), b.thresholds)
	if result.Passed {
		snapshot[FactorTrendPassed] = 1
	}
	snapshot[FactorTrendCV] = result.CV
	snapshot[FactorTrendScore] = result.Score
	snapshot[FactorTrendReturn] = result.Details.TotalReturnPct
	snapshot[FactorTrendRiseRatio] = result.Details.RiseRatio
	snapshot[FactorTrendVotes] = float64(result.Details.DirectionVotes)

	return snapshot, nil
}
