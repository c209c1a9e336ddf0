// Package lifecycle tracks each token's trading state and the card
// ledger backing buy/sell sizing. Transitions are driven by accepted
// signals from the scheduler and by risk check results.
package lifecycle

import (
	"context"
	"errors"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/execution"
	"token-replay-lab/internal/idhash"
)

// Outcome is the result of applying one fired rule to a token.
type Outcome struct {
	Signal domain.Signal
	// Trade is set when the signal was accepted and moved cards.
	// Hold signals and rejections carry no trade.
	Trade *domain.TradeRecord
}

// Machine applies rule firings and risk results to token state.
// One Machine is shared across workers; all mutable state lives in the
// per-token (TokenState, Ledger) pair owned by the calling worker.
type Machine struct {
	exec      execution.Executor
	buyCards  int
	sellCards int
}

// NewMachine creates a lifecycle machine. buyCards and sellCards are the
// per-signal conversion sizes from the experiment config.
func NewMachine(exec execution.Executor, buyCards, sellCards int) *Machine {
	return &Machine{exec: exec, buyCards: buyCards, sellCards: sellCards}
}

// Apply performs the transition for one fired rule at one tick. The
// returned Outcome always carries a Signal (accepted or rejected); state
// is only mutated on acceptance, and completely before Apply returns.
// There are no partially applied transitions.
//
// An execution sink failure does not revert the transition: the trade is
// recorded as accepted but unexecuted so simulated bookkeeping stays
// consistent.
func (m *Machine) Apply(ctx context.Context, state *domain.TokenState, ledger *Ledger, rule domain.Rule, tick domain.Tick) Outcome {
	signal := domain.Signal{
		SignalID:     idhash.SignalID(state.ExperimentID, state.Address, rule.RuleID, tick.TimestampMs),
		ExperimentID: state.ExperimentID,
		TokenAddress: state.Address,
		RuleID:       rule.RuleID,
		Action:       rule.Action,
		TimestampMs:  tick.TimestampMs,
		Price:        tick.Price,
	}

	if state.Status.IsTerminal() {
		signal.RejectReason = domain.RejectTerminalStatus
		return Outcome{Signal: signal}
	}

	switch rule.Action {
	case domain.ActionBuy:
		return m.applyBuy(ctx, state, ledger, signal, tick)
	case domain.ActionSell:
		return m.applySell(ctx, state, ledger, signal, tick)
	default:
		// Hold rules record an accepted signal and change nothing.
		signal.Accepted = true
		return Outcome{Signal: signal}
	}
}

func (m *Machine) applyBuy(ctx context.Context, state *domain.TokenState, ledger *Ledger, signal domain.Signal, tick domain.Tick) Outcome {
	if state.Status != domain.StatusMonitoring && state.Status != domain.StatusBought {
		signal.RejectReason = domain.RejectNotMonitoring
		return Outcome{Signal: signal}
	}

	moved, err := ledger.Buy(m.buyCards)
	if err != nil {
		if errors.Is(err, ErrNoCashCards) {
			signal.RejectReason = domain.RejectNoCashCards
		} else {
			signal.RejectReason = err.Error()
		}
		return Outcome{Signal: signal}
	}

	if state.Status == domain.StatusMonitoring {
		state.Status = domain.StatusBought
		state.BuyPrice = tick.Price
		state.BuyTime = tick.TimestampMs
	}
	m.syncCards(state, ledger)

	signal.Accepted = true
	signal.Cards = moved

	trade := m.executeTrade(ctx, state, domain.DirectionBuy, signal.RuleID, moved, tick)
	return Outcome{Signal: signal, Trade: trade}
}

func (m *Machine) applySell(ctx context.Context, state *domain.TokenState, ledger *Ledger, signal domain.Signal, tick domain.Tick) Outcome {
	if state.Status != domain.StatusBought && state.Status != domain.StatusSelling {
		signal.RejectReason = domain.RejectNotBought
		return Outcome{Signal: signal}
	}

	moved, err := ledger.Sell(m.sellCards)
	if err != nil {
		if errors.Is(err, ErrNoTokenCards) {
			signal.RejectReason = domain.RejectNoTokenCards
		} else {
			signal.RejectReason = err.Error()
		}
		return Outcome{Signal: signal}
	}

	if ledger.Tokens() == 0 {
		state.Status = domain.StatusExited
	} else {
		state.Status = domain.StatusSelling
	}
	m.syncCards(state, ledger)

	signal.Accepted = true
	signal.Cards = moved

	trade := m.executeTrade(ctx, state, domain.DirectionSell, signal.RuleID, moved, tick)
	if state.BuyPrice > 0 {
		trade.ProfitPct = (tick.Price - state.BuyPrice) / state.BuyPrice * 100
	}
	return Outcome{Signal: signal, Trade: trade}
}

// executeTrade submits to the sink and builds the trade record. Sink
// failures are captured on the record, never propagated.
func (m *Machine) executeTrade(ctx context.Context, state *domain.TokenState, direction domain.Direction, ruleID string, cards int, tick domain.Tick) *domain.TradeRecord {
	trade := &domain.TradeRecord{
		TradeID:      idhash.TradeID(state.ExperimentID, state.Address, string(direction), tick.TimestampMs),
		ExperimentID: state.ExperimentID,
		TokenAddress: state.Address,
		RuleID:       ruleID,
		Direction:    direction,
		TimestampMs:  tick.TimestampMs,
		UnitPrice:    tick.Price,
		Cards:        cards,
	}

	fill, err := m.exec.Execute(ctx, state.Address, direction, cards, tick.Price)
	switch {
	case err != nil:
		trade.ExecError = err.Error()
	case !fill.Success:
		trade.ExecError = fill.Err
	default:
		trade.Executed = true
		if fill.FilledPrice > 0 {
			trade.UnitPrice = fill.FilledPrice
		}
	}
	return trade
}

func (m *Machine) syncCards(state *domain.TokenState, ledger *Ledger) {
	state.CashCards = ledger.Cash()
	state.TokenCards = ledger.Tokens()
}

// Promote moves a discovered token into the monitoring set after its
// first successful risk pre-check.
func (m *Machine) Promote(state *domain.TokenState) {
	if state.Status == domain.StatusDiscovered {
		state.Status = domain.StatusMonitoring
	}
}

// Divert moves a token to a terminal risk status (bad_holder or
// negative_dev) from any non-terminal state. All rule evaluation for the
// token ceases afterwards.
func (m *Machine) Divert(state *domain.TokenState, to domain.Status) {
	if state.Status.IsTerminal() {
		return
	}
	if to == domain.StatusBadHolder || to == domain.StatusNegativeDev {
		state.Status = to
	}
}
