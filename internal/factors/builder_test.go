package factors

import (
	"math"
	"testing"

	"token-replay-lab/internal/domain"
)

func testState() *domain.TokenState {
	return &domain.TokenState{
		ExperimentID:    "exp-1",
		Address:         "token-1",
		Status:          domain.StatusMonitoring,
		CollectedAt:     1_000_000,
		CollectionPrice: 1.0,
		HighestPrice:    1.0,
	}
}

func testTick(tsMs int64, price float64) domain.Tick {
	return domain.Tick{
		ExperimentID: "exp-1",
		TokenAddress: "token-1",
		TimestampMs:  tsMs,
		Price:        price,
		Measurement: domain.Measurement{
			Volume:      5000,
			HolderCount: 120,
			TVL:         30000,
			MarketCap:   90000,
		},
	}
}

func TestBuild_PassesRawMeasurementsThrough(t *testing.T) {
	b := NewBuilder(domain.TrendThresholds{CV: 0.005, Score: 30, TotalReturn: 5, RiseRatio: 0.5})
	h := NewHistory(0)

	snapshot, err := b.Build(testTick(1_010_000, 1.5), testState(), h)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if snapshot[FactorPrice] != 1.5 {
		t.Errorf("price: got %v", snapshot[FactorPrice])
	}
	if snapshot[FactorVolume] != 5000 || snapshot[FactorHolderCount] != 120 {
		t.Errorf("raw measurements not passed through: %v", snapshot)
	}
	if snapshot[FactorTVL] != 30000 || snapshot[FactorMarketCap] != 90000 {
		t.Errorf("raw measurements not passed through: %v", snapshot)
	}
}

func TestBuild_LifetimeFactors(t *testing.T) {
	b := NewBuilder(domain.TrendThresholds{})
	h := NewHistory(0)
	state := testState()
	state.HighestPrice = 2.0

	// 60 seconds after collection, price doubled from 1.0 collection
	// price but 25% below the 2.0 high.
	snapshot, err := b.Build(testTick(1_060_000, 1.5), state, h)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := snapshot[FactorTokenAge]; got != 60 {
		t.Errorf("tokenAge: expected 60s, got %v", got)
	}
	if got := snapshot[FactorEarlyReturn]; math.Abs(got-50) > 1e-9 {
		t.Errorf("earlyReturn: expected 50%%, got %v", got)
	}
	if got := snapshot[FactorDrawdown]; math.Abs(got-25) > 1e-9 {
		t.Errorf("drawdown: expected 25%%, got %v", got)
	}
}

func TestBuild_UpdatesHighestPrice(t *testing.T) {
	b := NewBuilder(domain.TrendThresholds{})
	h := NewHistory(0)
	state := testState()

	snapshot, err := b.Build(testTick(1_010_000, 3.0), state, h)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if state.HighestPrice != 3.0 {
		t.Errorf("expected highest price raised to 3.0, got %v", state.HighestPrice)
	}
	// A fresh high means zero drawdown at this tick.
	if got := snapshot[FactorDrawdown]; got != 0 {
		t.Errorf("drawdown at new high: expected 0, got %v", got)
	}
}

func TestBuild_AppendsPriceBeforeTrend(t *testing.T) {
	th := domain.TrendThresholds{CV: 0.005, Score: 30, TotalReturn: 5, RiseRatio: 0.5}
	b := NewBuilder(th)
	h := NewHistory(0)
	state := testState()

	// Seed 5 points; the 6th arrives via Build. The reference window
	// only confirms with the current tick included.
	seed := []float64{1.0, 1.01, 1.03, 1.06, 1.02}
	for i, p := range seed {
		if err := h.Append(1_000_000+int64(i)*10_000, p); err != nil {
			t.Fatalf("seed append failed: %v", err)
		}
	}

	snapshot, err := b.Build(testTick(1_050_000, 1.10), state, h)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if h.Len() != 6 {
		t.Fatalf("expected current tick appended, len=%d", h.Len())
	}
	if snapshot[FactorTrendPassed] != 1 {
		t.Errorf("expected trendPassed=1 with current tick included, snapshot=%v", snapshot)
	}
	if math.Abs(snapshot[FactorTrendRiseRatio]-0.8) > 1e-9 {
		t.Errorf("expected rise ratio 0.8, got %v", snapshot[FactorTrendRiseRatio])
	}
}

func TestBuild_PropagatesOutOfOrderTick(t *testing.T) {
	b := NewBuilder(domain.TrendThresholds{})
	h := NewHistory(0)
	state := testState()

	if _, err := b.Build(testTick(1_050_000, 1.0), state, h); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := b.Build(testTick(1_040_000, 1.1), state, h); err == nil {
		t.Errorf("expected out-of-order tick to error")
	}
}

func TestBuild_ZeroCollectionPriceOmitsEarlyReturn(t *testing.T) {
	b := NewBuilder(domain.TrendThresholds{})
	h := NewHistory(0)
	state := testState()
	state.CollectionPrice = 0
	state.HighestPrice = 0

	snapshot, err := b.Build(testTick(1_010_000, 1.5), state, h)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Absent factors read as zero downstream; no NaN/Inf may leak in.
	if _, ok := snapshot[FactorEarlyReturn]; ok {
		t.Errorf("earlyReturn must be omitted when collection price is zero")
	}
}
