package metrics

import (
	"context"
	"errors"
	"testing"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/storage/memory"
)

func TestAggregator_ComputeAggregate(t *testing.T) {
	store := memory.NewTradeStore()
	ctx := context.Background()

	trades := []*domain.TradeRecord{
		{TradeID: "b1", ExperimentID: "exp-1", TokenAddress: "tokA", Direction: domain.DirectionBuy, TimestampMs: 500},
		sell("s1", "tokA", 1000, 60),
		sell("s2", "tokB", 2000, -10),
	}
	for _, tr := range trades {
		if err := store.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	agg, err := NewAggregator(store).ComputeAggregate(ctx, "exp-1")
	if err != nil {
		t.Fatalf("ComputeAggregate: %v", err)
	}

	if agg.TotalTrades != 2 {
		t.Errorf("expected 2 sells, got %d", agg.TotalTrades)
	}
	if agg.Wins != 1 || agg.Losses != 1 {
		t.Errorf("expected 1 win / 1 loss, got %d / %d", agg.Wins, agg.Losses)
	}
	if agg.OutcomeMean != 25 {
		t.Errorf("expected mean 25, got %f", agg.OutcomeMean)
	}
}

func TestAggregator_NoTrades(t *testing.T) {
	store := memory.NewTradeStore()

	_, err := NewAggregator(store).ComputeAggregate(context.Background(), "exp-empty")
	if !errors.Is(err, ErrNoTrades) {
		t.Errorf("expected ErrNoTrades, got %v", err)
	}
}
