package trend

import (
	"math"
	"testing"

	"token-replay-lab/internal/domain"
)

func defaultThresholds() domain.TrendThresholds {
	return domain.TrendThresholds{
		CV:          0.005,
		Score:       30,
		TotalReturn: 5,
		RiseRatio:   0.5,
	}
}

func TestConfirm_ShortWindowNeverPasses(t *testing.T) {
	for _, prices := range [][]float64{
		nil,
		{},
		{1.0},
		{1.0, 1.1},
		{1.0, 1.1, 1.2},
	} {
		result := Confirm(prices, defaultThresholds())
		if result.Passed {
			t.Errorf("window %v: expected Passed=false", prices)
		}
		if result.Score != 0 || result.CV != 0 {
			t.Errorf("window %v: expected zeroed details, got score=%v cv=%v", prices, result.Score, result.CV)
		}
	}
}

func TestConfirm_ReferenceUptrendWindow(t *testing.T) {
	prices := []float64{1.0, 1.01, 1.03, 1.06, 1.02, 1.10}
	result := Confirm(prices, defaultThresholds())

	if !result.Passed {
		t.Fatalf("expected Passed=true, failed gate %q (cv=%v score=%v)",
			result.Details.FailedGate, result.CV, result.Score)
	}
	if result.CV <= 0.005 {
		t.Errorf("expected cv above threshold, got %v", result.CV)
	}
	if result.Details.DirectionVotes != 3 {
		t.Errorf("expected 3/3 direction votes, got %d", result.Details.DirectionVotes)
	}
	if math.Abs(result.Details.TotalReturnPct-10) > 1e-9 {
		t.Errorf("expected total return 10%%, got %v", result.Details.TotalReturnPct)
	}
	if math.Abs(result.Details.RiseRatio-0.8) > 1e-9 {
		t.Errorf("expected rise ratio 0.8, got %v", result.Details.RiseRatio)
	}
}

func TestConfirm_StrictlyIncreasingVotesThreeOfThree(t *testing.T) {
	prices := []float64{1.0, 1.2, 1.4, 1.6, 1.8, 2.0}
	result := Confirm(prices, defaultThresholds())

	if result.Details.DirectionVotes != 3 {
		t.Errorf("expected 3/3 votes for strictly increasing window, got %d", result.Details.DirectionVotes)
	}
	if !result.Passed {
		t.Errorf("expected Passed=true, failed gate %q", result.Details.FailedGate)
	}
	if result.Details.RiseRatio != 1.0 {
		t.Errorf("expected rise ratio 1.0, got %v", result.Details.RiseRatio)
	}
}

func TestConfirm_FlatSeriesFailsNoiseGate(t *testing.T) {
	prices := []float64{1.0, 1.0, 1.0, 1.0, 1.0}
	result := Confirm(prices, defaultThresholds())

	if result.Passed {
		t.Errorf("expected flat series to fail")
	}
	if result.Details.FailedGate != GateNoise {
		t.Errorf("expected noise gate failure, got %q", result.Details.FailedGate)
	}
}

func TestConfirm_DowntrendFailsDirectionGate(t *testing.T) {
	prices := []float64{2.0, 1.8, 1.6, 1.4, 1.2, 1.0}
	result := Confirm(prices, defaultThresholds())

	if result.Passed {
		t.Errorf("expected downtrend to fail")
	}
	if result.Details.FailedGate != GateDirection {
		t.Errorf("expected direction gate failure, got %q", result.Details.FailedGate)
	}
	if result.Details.DirectionVotes != 0 {
		t.Errorf("expected 0 votes, got %d", result.Details.DirectionVotes)
	}
}

func TestConfirm_ScoreThresholdGates(t *testing.T) {
	prices := []float64{1.0, 1.01, 1.03, 1.06, 1.02, 1.10}

	th := defaultThresholds()
	th.Score = 1000 // unreachable: sub-scores cap at 100 so composite caps at 100
	result := Confirm(prices, th)

	if result.Passed {
		t.Errorf("expected strength gate to fail at threshold %v", th.Score)
	}
	if result.Details.FailedGate != GateStrength {
		t.Errorf("expected strength gate, got %q", result.Details.FailedGate)
	}
	if result.Score <= 0 {
		t.Errorf("expected a computed score, got %v", result.Score)
	}
}

func TestConfirm_QualityGateOnTotalReturn(t *testing.T) {
	// Up-ish window with a small net return: direction passes, quality fails.
	prices := []float64{1.0, 1.04, 0.99, 1.03, 1.0, 1.02}

	th := defaultThresholds()
	th.CV = 0.001
	th.Score = 1
	th.TotalReturn = 5 // actual is 2%
	result := Confirm(prices, th)

	if result.Passed {
		t.Errorf("expected quality gate to fail")
	}
	if result.Details.FailedGate != GateQuality {
		t.Errorf("expected quality gate, got %q", result.Details.FailedGate)
	}
}

func TestStrengthScore_DirectionMultiplier(t *testing.T) {
	prices := []float64{1.0, 1.1, 1.05, 1.2, 1.15, 1.3}
	m := mean(prices)
	cv := stddevPop(prices, m) / m
	slope := linearSlope(prices)
	rise := riseRatio(prices)

	positive := strengthScore(prices, m, cv, slope, 10, rise)
	negative := strengthScore(prices, m, cv, slope, -10, rise)
	flat := strengthScore(prices, m, cv, slope, 0, rise)

	if positive <= 0 {
		t.Fatalf("expected positive composite, got %v", positive)
	}
	if math.Abs(negative-positive*0.3) > 1e-9 {
		t.Errorf("expected negative window scaled by 0.3: positive=%v negative=%v", positive, negative)
	}
	// Flat return zeroes the return sub-score (weight 0.3) before the
	// 0.1 multiplier applies.
	if expected := (positive - weightReturn*10) * 0.1; math.Abs(flat-expected) > 1e-9 {
		t.Errorf("expected flat window score %v, got %v", expected, flat)
	}
}

// A window whose majority checks vote up but whose net return is negative
// still reaches the quality gate, where the return threshold rejects it.
func TestConfirm_NetNegativeWindowRejectedAtQuality(t *testing.T) {
	prices := []float64{1.0, 0.95, 1.3, 1.2, 1.1, 0.98}

	th := domain.TrendThresholds{CV: 0.0001, Score: 0, TotalReturn: 5, RiseRatio: -1}
	result := Confirm(prices, th)

	if result.Passed {
		t.Fatalf("expected rejection")
	}
	if result.Details.DirectionVotes < 2 {
		t.Fatalf("fixture broken: expected 2+ direction votes, got %d", result.Details.DirectionVotes)
	}
	if result.Details.FailedGate != GateQuality {
		t.Errorf("expected quality gate, got %q", result.Details.FailedGate)
	}
}

func TestLinearSlope(t *testing.T) {
	// y = 2x + 1
	slope := linearSlope([]float64{1, 3, 5, 7})
	if math.Abs(slope-2) > 1e-12 {
		t.Errorf("expected slope 2, got %v", slope)
	}

	if s := linearSlope([]float64{5}); s != 0 {
		t.Errorf("expected slope 0 for single point, got %v", s)
	}
}

func TestMedian(t *testing.T) {
	if m := median([]float64{3, 1, 2}); m != 2 {
		t.Errorf("odd length: expected 2, got %v", m)
	}
	if m := median([]float64{4, 1, 3, 2}); m != 2.5 {
		t.Errorf("even length: expected 2.5, got %v", m)
	}
	// Input must not be reordered.
	in := []float64{3, 1, 2}
	median(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("median mutated input: %v", in)
	}
}
