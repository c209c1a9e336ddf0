package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/metrics"
	"token-replay-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	experiments storage.ExperimentStore
	tokens      storage.TokenStore
	signals     storage.SignalStore
	trades      storage.TradeStore
	aggregator  *metrics.Aggregator
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	experiments storage.ExperimentStore,
	tokens storage.TokenStore,
	signals storage.SignalStore,
	trades storage.TradeStore,
) *Generator {
	return &Generator{
		experiments: experiments,
		tokens:      tokens,
		signals:     signals,
		trades:      trades,
		aggregator:  metrics.NewAggregator(trades),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report for one experiment.
func (g *Generator) Generate(ctx context.Context, experimentID string) (*Report, error) {
	experiment, err := g.experiments.GetByID(ctx, experimentID)
	if err != nil {
		return nil, fmt.Errorf("load experiment: %w", err)
	}

	states, err := g.tokens.GetByExperiment(ctx, experimentID)
	if err != nil {
		return nil, fmt.Errorf("load token states: %w", err)
	}

	signals, err := g.signals.GetByExperiment(ctx, experimentID)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}

	trades, err := g.trades.GetByExperiment(ctx, experimentID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	outcomes, err := g.aggregator.ComputeAggregate(ctx, experimentID)
	if err != nil {
		// An experiment without sell trades still gets a report.
		if !errors.Is(err, metrics.ErrNoTrades) {
			return nil, fmt.Errorf("compute aggregate: %w", err)
		}
		outcomes = nil
	}

	return &Report{
		GeneratedAt: g.now(),
		Experiment:  *experiment,
		DataSummary: generateDataSummary(states, signals, trades),
		Outcomes:    outcomes,
		TokenRows:   generateTokenRows(states, trades),
		TradeRows:   generateTradeRows(trades),
	}, nil
}

// generateDataSummary counts stored records and finds the date range.
func generateDataSummary(states []*domain.TokenState, signals []*domain.Signal, trades []*domain.TradeRecord) DataSummary {
	summary := DataSummary{
		TotalTokens:  len(states),
		TotalSignals: len(signals),
		TotalTrades:  len(trades),
	}

	for _, s := range states {
		switch s.Status {
		case domain.StatusDiscovered, domain.StatusMonitoring:
			summary.Monitoring++
		case domain.StatusBought, domain.StatusSelling:
			summary.OpenPositions++
		case domain.StatusExited:
			summary.Exited++
		case domain.StatusBadHolder, domain.StatusNegativeDev:
			summary.Diverted++
		}
	}

	for _, s := range signals {
		if s.Accepted {
			summary.AcceptedSignals++
		} else {
			summary.RejectedSignals++
		}
	}

	for _, t := range trades {
		if !t.Executed {
			summary.FailedTrades++
		}
	}

	// Date range spans every signal and trade timestamp.
	first := true
	observe := func(ms int64) {
		if first {
			summary.DateRangeStart = ms
			summary.DateRangeEnd = ms
			first = false
			return
		}
		if ms < summary.DateRangeStart {
			summary.DateRangeStart = ms
		}
		if ms > summary.DateRangeEnd {
			summary.DateRangeEnd = ms
		}
	}
	for _, s := range signals {
		observe(s.TimestampMs)
	}
	for _, t := range trades {
		observe(t.TimestampMs)
	}

	return summary
}

// generateTokenRows joins token states with their trades.
func generateTokenRows(states []*domain.TokenState, trades []*domain.TradeRecord) []TokenRow {
	tradeCount := make(map[string]int)
	lastSell := make(map[string]float64)
	for _, t := range trades {
		tradeCount[t.TokenAddress]++
		if t.Direction == domain.DirectionSell {
			// Trades arrive sorted by timestamp, so the last write wins.
			lastSell[t.TokenAddress] = t.ProfitPct
		}
	}

	rows := make([]TokenRow, len(states))
	for i, s := range states {
		rows[i] = TokenRow{
			Address:         s.Address,
			Status:          s.Status,
			CollectionPrice: s.CollectionPrice,
			BuyPrice:        s.BuyPrice,
			HighestPrice:    s.HighestPrice,
			CashCards:       s.CashCards,
			TokenCards:      s.TokenCards,
			Trades:          tradeCount[s.Address],
			LastSellPct:     lastSell[s.Address],
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Address < rows[j].Address
	})
	return rows
}

// generateTradeRows builds the sorted trade log.
func generateTradeRows(trades []*domain.TradeRecord) []TradeRow {
	rows := make([]TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = TradeRow{
			TradeID:      t.TradeID,
			TokenAddress: t.TokenAddress,
			RuleID:       t.RuleID,
			Direction:    t.Direction,
			TimestampMs:  t.TimestampMs,
			UnitPrice:    t.UnitPrice,
			Cards:        t.Cards,
			ProfitPct:    t.ProfitPct,
			Executed:     t.Executed,
			ExecError:    t.ExecError,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TimestampMs != rows[j].TimestampMs {
			return rows[i].TimestampMs < rows[j].TimestampMs
		}
		return rows[i].TradeID < rows[j].TradeID
	})
	return rows
}
