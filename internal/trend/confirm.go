// Package trend implements the four-stage statistical gate that decides
// whether a price window represents a genuine uptrend rather than noise.
package trend

import "token-replay-lab/internal/domain"

// MinWindow is the smallest price window the pipeline evaluates. Shorter
// windows return Passed=false with zeroed details instead of erroring.
const MinWindow = 4

// Gate names reported in Details.FailedGate.
const (
	GateNoise     = "noise"
	GateDirection = "direction"
	GateStrength  = "strength"
	GateQuality   = "quality"
)

// Strength score weights. They sum to 1 so the composite stays in the
// same range as its inputs.
const (
	weightSlope     = 0.3
	weightReturn    = 0.3
	weightRiseRatio = 0.2
	weightStability = 0.2
)

// Direction multipliers applied to the composite strength score.
const (
	multiplierPositive = 1.0
	multiplierNegative = 0.3
	multiplierFlat     = 0.1
)

// Details exposes the intermediate values of a confirmation run.
type Details struct {
	Slope          float64 // least-squares regression slope
	TotalReturnPct float64 // percent change first→last
	RiseRatio      float64 // fraction of up-ticks
	DirectionVotes int     // 0..3 directional checks that agreed
	FailedGate     string  // empty when all gates passed
}

// Result is the outcome of one confirmation run.
type Result struct {
	Passed  bool
	CV      float64 // coefficient of variation over the window
	Score   float64 // composite strength score
	Details Details
}

// Confirm runs the four-stage uptrend confirmation over an ordered price
// window. Every stage is a gate; the first failing stage short-circuits
// with Passed=false. All thresholds are caller-supplied so backtest
// parameter sweeps and live tuning exercise the same engine.
//
// Stages:
//  1. Noise filter: population CV must exceed th.CV.
//  2. Direction vote: 2 of 3 checks (slope sign, last>first,
//     second-half median > first-half median) must agree.
//  3. Strength score: weighted composite of normalized sub-scores,
//     scaled by a direction multiplier, must reach th.Score.
//  4. Quality: total return and rise ratio must exceed their thresholds.
func Confirm(prices []float64, th domain.TrendThresholds) Result {
	if len(prices) < MinWindow {
		return Result{}
	}

	m := mean(prices)
	if m == 0 {
		// Degenerate all-zero window: CV undefined, treat as noise.
		return Result{Details: Details{FailedGate: GateNoise}}
	}

	cv := stddevPop(prices, m) / m
	slope := linearSlope(prices)
	totalReturn := totalReturnPct(prices)
	rise := riseRatio(prices)

	details := Details{
		Slope:          slope,
		TotalReturnPct: totalReturn,
		RiseRatio:      rise,
	}

	// Stage 1: noise filter. Near-flat series produce spurious signals.
	if cv <= th.CV {
		details.FailedGate = GateNoise
		return Result{CV: cv, Details: details}
	}

	// Stage 2: direction vote, robust to a single outlier check.
	votes := directionVotes(prices, slope)
	details.DirectionVotes = votes
	if votes < 2 {
		details.FailedGate = GateDirection
		return Result{CV: cv, Details: details}
	}

	// Stage 3: strength score.
	score := strengthScore(prices, m, cv, slope, totalReturn, rise)
	if score < th.Score {
		details.FailedGate = GateStrength
		return Result{CV: cv, Score: score, Details: details}
	}

	// Stage 4: quality filter.
	if totalReturn <= th.TotalReturn || rise <= th.RiseRatio {
		details.FailedGate = GateQuality
		return Result{CV: cv, Score: score, Details: details}
	}

	return Result{Passed: true, CV: cv, Score: score, Details: details}
}

// totalReturnPct returns the percent change from the first to last price.
func totalReturnPct(prices []float64) float64 {
	first := prices[0]
	if first == 0 {
		return 0
	}
	return (prices[len(prices)-1] - first) / first * 100
}

// directionVotes counts the directional checks that agree on "up":
// regression slope positive, last above first, and the second-half median
// above the first-half median.
func directionVotes(prices []float64, slope float64) int {
	votes := 0
	if slope > 0 {
		votes++
	}
	if prices[len(prices)-1] > prices[0] {
		votes++
	}
	half := len(prices) / 2
	if median(prices[half:]) > median(prices[:half]) {
		votes++
	}
	return votes
}

// strengthScore computes the weighted composite strength score. Each
// sub-score is capped at 100; the composite is scaled by a direction
// multiplier so strength computed on a net-negative window is penalized.
//
// Sub-score normalizations: slope as percent-of-mean per tick times 100,
// total return as its absolute percent magnitude, rise ratio and
// stability (1-CV) on a 0-100 scale.
func strengthScore(prices []float64, m, cv, slope, totalReturn, rise float64) float64 {
	slopeScore := cap100(abs(slope) / m * 100 * 100)
	returnScore := cap100(abs(totalReturn))
	riseScore := cap100(rise * 100)
	stabilityScore := cap100((1 - cv) * 100)

	composite := weightSlope*slopeScore +
		weightReturn*returnScore +
		weightRiseRatio*riseScore +
		weightStability*stabilityScore

	switch {
	case totalReturn > 0:
		return composite * multiplierPositive
	case totalReturn < 0:
		return composite * multiplierNegative
	default:
		return composite * multiplierFlat
	}
}

func cap100(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
