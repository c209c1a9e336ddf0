// Package metrics computes aggregate statistics over an experiment's
// realized trade outcomes.
package metrics

import (
	"math"
	"sort"

	"token-replay-lab/internal/domain"
)

// Aggregate summarizes the realized outcome distribution of one experiment.
// Outcomes are the ProfitPct of executed sell trades.
type Aggregate struct {
	ExperimentID string

	// Counts
	TotalTrades  int // sell trades with a realized outcome
	TotalTokens  int
	Wins         int
	Losses       int
	WinRate      float64
	TokenWinRate float64

	// Outcome distribution (percent)
	OutcomeMean   float64
	OutcomeMedian float64
	OutcomeP10    float64
	OutcomeP25    float64
	OutcomeP75    float64
	OutcomeP90    float64
	OutcomeMin    float64
	OutcomeMax    float64
	OutcomeStddev float64

	// Order-dependent
	MaxDrawdown          float64
	MaxConsecutiveLosses int
}

// computeFromTrades calculates all metrics from the experiment's trades.
// Only sell trades carry a realized ProfitPct; buys are ignored. Trades
// are sorted by TimestampMs ASC, TradeID ASC before computing the
// order-dependent metrics (MaxDrawdown, MaxConsecutiveLosses).
func computeFromTrades(experimentID string, trades []*domain.TradeRecord) *Aggregate {
	var sells []*domain.TradeRecord
	for _, t := range trades {
		if t.Direction == domain.DirectionSell {
			sells = append(sells, t)
		}
	}

	n := len(sells)
	if n == 0 {
		return &Aggregate{ExperimentID: experimentID}
	}

	sort.Slice(sells, func(i, j int) bool {
		if sells[i].TimestampMs != sells[j].TimestampMs {
			return sells[i].TimestampMs < sells[j].TimestampMs
		}
		return sells[i].TradeID < sells[j].TradeID
	})

	// Outcomes stay in chronological order; a sorted copy feeds the
	// percentile lookups.
	outcomes := make([]float64, n)
	wins := 0
	for i, t := range sells {
		outcomes[i] = t.ProfitPct
		if t.ProfitPct > 0 {
			wins++
		}
	}
	byRank := append([]float64(nil), outcomes...)
	sort.Float64s(byRank)

	sum := 0.0
	for _, o := range outcomes {
		sum += o
	}
	mean := sum / float64(n)

	totalTokens, tokenWinRate := computeTokenWinRate(sells)

	return &Aggregate{
		ExperimentID: experimentID,

		TotalTrades:  n,
		TotalTokens:  totalTokens,
		Wins:         wins,
		Losses:       n - wins,
		WinRate:      float64(wins) / float64(n),
		TokenWinRate: tokenWinRate,

		OutcomeMean:   mean,
		OutcomeMedian: computePercentile(byRank, 0.50),
		OutcomeP10:    computePercentile(byRank, 0.10),
		OutcomeP25:    computePercentile(byRank, 0.25),
		OutcomeP75:    computePercentile(byRank, 0.75),
		OutcomeP90:    computePercentile(byRank, 0.90),
		OutcomeMin:    byRank[0],
		OutcomeMax:    byRank[n-1],
		OutcomeStddev: computeStddev(outcomes, mean),

		MaxDrawdown:          computeMaxDrawdown(outcomes),
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(outcomes),
	}
}

// computeTokenWinRate groups outcomes by token address. A token counts
// as winning when at least one of its sells realized a positive outcome.
func computeTokenWinRate(trades []*domain.TradeRecord) (int, float64) {
	if len(trades) == 0 {
		return 0, 0
	}

	won := make(map[string]bool)
	for _, t := range trades {
		if t.ProfitPct > 0 {
			won[t.TokenAddress] = true
		} else if _, seen := won[t.TokenAddress]; !seen {
			won[t.TokenAddress] = false
		}
	}

	winners := 0
	for _, w := range won {
		if w {
			winners++
		}
	}
	return len(won), float64(winners) / float64(len(won))
}

// computeStddev is the sample standard deviation (n-1 denominator).
func computeStddev(outcomes []float64, mean float64) float64 {
	if len(outcomes) < 2 {
		return 0
	}
	var sumSq float64
	for _, o := range outcomes {
		d := o - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(outcomes)-1))
}

// computePercentile interpolates linearly between the two ranks
// straddling p. byRank must be sorted ascending.
func computePercentile(byRank []float64, p float64) float64 {
	switch len(byRank) {
	case 0:
		return 0
	case 1:
		return byRank[0]
	}

	rank := p * float64(len(byRank)-1)
	lo := int(math.Floor(rank))
	if lo+1 >= len(byRank) {
		return byRank[len(byRank)-1]
	}
	return byRank[lo] + (rank-float64(lo))*(byRank[lo+1]-byRank[lo])
}

// computeMaxDrawdown is the worst peak-to-trough drop of the cumulative
// outcome curve. Outcomes must be in chronological order.
func computeMaxDrawdown(outcomes []float64) float64 {
	var equity, highWater, worst float64
	for _, o := range outcomes {
		equity += o
		if equity > highWater {
			highWater = equity
		}
		if dd := highWater - equity; dd > worst {
			worst = dd
		}
	}
	return worst
}

// computeMaxConsecutiveLosses is the longest run of outcomes <= 0, in
// chronological order. Zero counts as a loss.
func computeMaxConsecutiveLosses(outcomes []float64) int {
	run, worst := 0, 0
	for _, o := range outcomes {
		if o > 0 {
			run = 0
			continue
		}
		run++
		if run > worst {
			worst = run
		}
	}
	return worst
}
