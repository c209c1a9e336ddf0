package execution

import (
	"context"
	"testing"

	"token-replay-lab/internal/domain"
)

func TestSimulator_FillsAtQuotedPrice(t *testing.T) {
	sim := NewSimulator()

	fill, err := sim.Execute(context.Background(), "tokA", domain.DirectionBuy, 5, 1.25)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !fill.Success {
		t.Error("Expected successful fill")
	}
	if fill.FilledPrice != 1.25 {
		t.Errorf("Expected fill at 1.25, got %f", fill.FilledPrice)
	}
	if fill.Err != "" {
		t.Errorf("Expected empty error, got %q", fill.Err)
	}
}
