// Package execution defines the trade execution sink consumed by the
// lifecycle machine. Real on-chain execution lives outside this module;
// backtest and virtual runs use the deterministic simulator.
package execution

import (
	"context"

	"token-replay-lab/internal/domain"
)

// Fill is the sink's answer to an execution request.
type Fill struct {
	Success     bool
	FilledPrice float64
	Err         string // sink-side failure reason when Success is false
}

// Executor submits trades. Implementations must be safe for concurrent
// use: token workers call Execute independently.
type Executor interface {
	// Execute submits a trade of the given card count at the quoted
	// price. A returned error means the sink itself was unreachable;
	// both cases are recorded as "accepted but unexecuted" and never
	// revert a lifecycle transition.
	Execute(ctx context.Context, tokenAddress string, direction domain.Direction, cards int, price float64) (Fill, error)
}

// Simulator is an Executor that fills every trade at the quoted price.
// Used in backtest and virtual modes.
type Simulator struct{}

// NewSimulator creates a simulator sink.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Compile-time interface check.
var _ Executor = (*Simulator)(nil)

// Execute fills at the quoted price unconditionally.
func (s *Simulator) Execute(_ context.Context, _ string, _ domain.Direction, _ int, price float64) (Fill, error) {
	return Fill{Success: true, FilledPrice: price}, nil
}
