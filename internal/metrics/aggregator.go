package metrics

import (
	"context"
	"errors"

	"token-replay-lab/internal/storage"
)

// ErrNoTrades is returned when an experiment has no realized outcomes.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Aggregator computes experiment aggregates from the trade store.
type Aggregator struct {
	trades storage.TradeStore
}

// NewAggregator creates a metrics aggregator.
func NewAggregator(trades storage.TradeStore) *Aggregator {
	return &Aggregator{trades: trades}
}

// ComputeAggregate loads an experiment's trades and computes the full
// outcome summary. Returns ErrNoTrades when no sell trade exists yet.
func (a *Aggregator) ComputeAggregate(ctx context.Context, experimentID string) (*Aggregate, error) {
	trades, err := a.trades.GetByExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	agg := computeFromTrades(experimentID, trades)
	if agg.TotalTrades == 0 {
		return nil, ErrNoTrades
	}
	return agg, nil
}
