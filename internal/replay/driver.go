// Package replay drives rule evaluation over tick series: backtests page
// through recorded ticks until each token's series is exhausted, virtual
// and live runs poll the newest tick on an interval. Tokens are processed
// concurrently by a bounded worker pool; within a token, ticks are
// strictly chronological.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/execution"
	"token-replay-lab/internal/factors"
	"token-replay-lab/internal/lifecycle"
	"token-replay-lab/internal/risk"
	"token-replay-lab/internal/scheduler"
	"token-replay-lab/internal/storage"
)

// TokenRef identifies one token admitted to an experiment.
type TokenRef struct {
	Address string
	Creator string
}

// TokenResult is the per-token outcome of a run.
type TokenResult struct {
	Address string
	Status  domain.Status
	Ticks   int
	Signals int
	Trades  int
	// Err is the failure that stopped this token's line, if any. Other
	// tokens are unaffected.
	Err error
}

// ClosedPosition is one fully exited token and its realized outcome.
type ClosedPosition struct {
	TokenAddress string
	ProfitPct    float64
}

// Portfolio is the aggregate card view at the end of a run.
type Portfolio struct {
	CashCards  int
	TokenCards int
	Closed     []ClosedPosition
}

// RunResult summarizes one driver run.
type RunResult struct {
	ExperimentID string
	Tokens       map[string]TokenResult
	Portfolio    Portfolio
}

// Options wires a Driver.
type Options struct {
	Config   domain.ExperimentConfig
	Source   TickSource
	Tokens   storage.TokenStore
	Signals  storage.SignalStore
	Trades   storage.TradeStore
	Risk     risk.Checker
	Executor execution.Executor
	Logger   zerolog.Logger
}

// Driver replays tick series against a compiled rule set.
type Driver struct {
	cfg     domain.ExperimentConfig
	source  TickSource
	tokens  storage.TokenStore
	signals storage.SignalStore
	trades  storage.TradeStore
	risk    risk.Checker
	sched   *scheduler.Scheduler
	machine *lifecycle.Machine
	builder *factors.Builder
	log     zerolog.Logger
}

// NewDriver validates options and compiles the rule set.
func NewDriver(opts Options) (*Driver, error) {
	cfg := opts.Config
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.ExperimentID == "" {
		return nil, fmt.Errorf("empty experiment id")
	}
	if cfg.CardCount <= 0 || cfg.InitialCashCards < 0 || cfg.InitialCashCards > cfg.CardCount {
		return nil, fmt.Errorf("invalid card sizing: total=%d cash=%d", cfg.CardCount, cfg.InitialCashCards)
	}
	if opts.Source == nil || opts.Tokens == nil || opts.Signals == nil || opts.Trades == nil {
		return nil, fmt.Errorf("missing store or source")
	}
	if opts.Risk == nil {
		return nil, fmt.Errorf("missing risk checker")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("missing executor")
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}

	sched, err := scheduler.New(cfg.Rules, cfg.CooldownDefaultMs)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}

	return &Driver{
		cfg:     cfg,
		source:  opts.Source,
		tokens:  opts.Tokens,
		signals: opts.Signals,
		trades:  opts.Trades,
		risk:    opts.Risk,
		sched:   sched,
		machine: lifecycle.NewMachine(opts.Executor, cfg.BuyCards, cfg.SellCards),
		builder: factors.NewBuilder(cfg.Trend),
		log:     opts.Logger.With().Str("component", "replay").Str("experiment", cfg.ExperimentID).Logger(),
	}, nil
}

// Run processes all tokens and returns the aggregated result. Per-token
// failures are captured in the result, not returned; Run itself only
// fails on a cancelled context before completion.
func (d *Driver) Run(ctx context.Context, refs []TokenRef) (*RunResult, error) {
	result := &RunResult{
		ExperimentID: d.cfg.ExperimentID,
		Tokens:       make(map[string]TokenResult, len(refs)),
	}

	jobs := make(chan TokenRef)
	results := make(chan TokenResult)

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				results <- d.runToken(ctx, ref)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, ref := range refs {
			select {
			case jobs <- ref:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for tr := range results {
		result.Tokens[tr.Address] = tr
	}

	if err := d.buildPortfolio(ctx, result); err != nil {
		d.log.Warn().Err(err).Msg("portfolio build failed")
	}

	if ctx.Err() != nil && len(result.Tokens) < len(refs) {
		return result, ctx.Err()
	}
	return result, nil
}

// tokenLine is the per-token processing state owned by one worker.
type tokenLine struct {
	state   *domain.TokenState
	ledger  *lifecycle.Ledger
	history *factors.History
	fired   *scheduler.History

	ticks          int
	signals        int
	trades         int
	lastSellProfit float64

	afterMs int64
}

// runToken drives one token's full line: risk pre-check, promotion, then
// chronological tick processing until the series ends, the token reaches
// a terminal status, or the context is cancelled.
func (d *Driver) runToken(ctx context.Context, ref TokenRef) TokenResult {
	log := d.log.With().Str("token", ref.Address).Logger()

	line, err := d.loadLine(ctx, ref)
	if err != nil {
		return TokenResult{Address: ref.Address, Err: err}
	}

	if line.state.Status == domain.StatusDiscovered {
		d.preCheck(ctx, line, log)
		if err := d.tokens.Upsert(ctx, line.state); err != nil {
			return d.lineResult(ref.Address, line, fmt.Errorf("persist state: %w", err))
		}
	}

	for !line.state.Status.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return d.lineResult(ref.Address, line, nil)
		}

		batch, err := d.source.Next(ctx, d.cfg.ExperimentID, ref.Address, line.afterMs)
		if err != nil {
			return d.lineResult(ref.Address, line, err)
		}

		if len(batch) == 0 {
			if d.cfg.Mode == domain.ModeBacktest {
				break // end of recorded series
			}
			if !d.waitPoll(ctx) {
				return d.lineResult(ref.Address, line, nil)
			}
			continue
		}

		for _, tick := range batch {
			if err := ctx.Err(); err != nil {
				return d.lineResult(ref.Address, line, nil)
			}
			if line.state.Status.IsTerminal() {
				break
			}
			if err := d.processTick(ctx, line, *tick, log); err != nil {
				return d.lineResult(ref.Address, line, err)
			}
			line.afterMs = tick.TimestampMs
		}
	}

	return d.lineResult(ref.Address, line, nil)
}

// loadLine restores or initializes the per-token processing state. A
// restored line resumes paging after the last evaluated tick and replays
// the durable signal log into the firing history, so cooldowns and
// execution caps survive a restart.
func (d *Driver) loadLine(ctx context.Context, ref TokenRef) (*tokenLine, error) {
	state, err := d.tokens.Get(ctx, d.cfg.ExperimentID, ref.Address)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		state = &domain.TokenState{
			ExperimentID: d.cfg.ExperimentID,
			Address:      ref.Address,
			Creator:      ref.Creator,
			Status:       domain.StatusDiscovered,
			CashCards:    d.cfg.InitialCashCards,
			TokenCards:   d.cfg.CardCount - d.cfg.InitialCashCards,
		}
	case err != nil:
		return nil, fmt.Errorf("load state: %w", err)
	}

	ledger, err := lifecycle.NewLedger(d.cfg.CardCount, state.CashCards)
	if err != nil {
		return nil, fmt.Errorf("restore ledger: %w", err)
	}

	fired := scheduler.NewHistory()
	if state.LastTickMs > 0 {
		sigs, err := d.signals.GetByToken(ctx, d.cfg.ExperimentID, ref.Address)
		if err != nil {
			return nil, fmt.Errorf("restore firing history: %w", err)
		}
		// Every persisted signal was a scheduler firing, accepted or not.
		for _, sig := range sigs {
			fired.Restore(sig.RuleID, sig.TimestampMs)
		}
	}

	return &tokenLine{
		state:   state,
		ledger:  ledger,
		history: factors.NewHistory(d.cfg.PriceRetentionMs),
		fired:   fired,
		afterMs: state.LastTickMs,
	}, nil
}

// preCheck runs the one-time risk checks that gate promotion into the
// monitoring set. Check errors carry no new information and leave the
// token discovered until the next opportunity.
func (d *Driver) preCheck(ctx context.Context, line *tokenLine, log zerolog.Logger) {
	if line.state.Creator != "" {
		flagged, err := d.risk.CheckCreatorRisk(ctx, line.state.Creator)
		if err != nil {
			log.Warn().Err(err).Msg("creator risk check failed")
		} else if flagged {
			d.machine.Divert(line.state, domain.StatusNegativeDev)
			log.Info().Str("creator", line.state.Creator).Msg("creator flagged, token diverted")
			return
		}
	}

	holder, err := d.risk.CheckHolderRisk(ctx, line.state.Address)
	if err != nil {
		log.Warn().Err(err).Msg("holder risk check failed")
	} else if holder.Flagged {
		d.machine.Divert(line.state, domain.StatusBadHolder)
		log.Info().Str("reason", holder.Reason).Msg("holder flagged, token diverted")
		return
	}

	d.machine.Promote(line.state)
}

// processTick runs the full per-tick pipeline: snapshot, schedule, apply,
// persist. State is durable after every tick so cancellation between
// ticks never loses an applied transition.
func (d *Driver) processTick(ctx context.Context, line *tokenLine, tick domain.Tick, log zerolog.Logger) error {
	if line.state.CollectedAt == 0 {
		line.state.CollectedAt = tick.TimestampMs
		line.state.CollectionPrice = tick.Price
	}

	snapshot, err := d.builder.Build(tick, line.state, line.history)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	if fired := d.sched.Evaluate(snapshot, line.fired, tick.TimestampMs); fired != nil {
		outcome := d.machine.Apply(ctx, line.state, line.ledger, *fired, tick)

		if err := d.insertSignal(ctx, &outcome.Signal); err != nil {
			return err
		}
		line.signals++

		if outcome.Trade != nil {
			if err := d.insertTrade(ctx, outcome.Trade); err != nil {
				return err
			}
			line.trades++
			if outcome.Trade.Direction == domain.DirectionSell {
				line.lastSellProfit = outcome.Trade.ProfitPct
			}
			log.Debug().
				Str("rule", fired.RuleID).
				Str("direction", string(outcome.Trade.Direction)).
				Int("cards", outcome.Trade.Cards).
				Float64("price", outcome.Trade.UnitPrice).
				Msg("trade recorded")
		}
	}

	line.ticks++

	if d.cfg.RiskRecheckTicks > 0 && line.ticks%d.cfg.RiskRecheckTicks == 0 && !line.state.Status.IsTerminal() {
		d.recheck(ctx, line, log)
	}

	line.state.LastTickMs = tick.TimestampMs
	if err := d.tokens.Upsert(ctx, line.state); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// recheck re-runs the holder risk check on the configured cadence. The
// creator check is not repeated: the creator wallet never changes.
func (d *Driver) recheck(ctx context.Context, line *tokenLine, log zerolog.Logger) {
	holder, err := d.risk.CheckHolderRisk(ctx, line.state.Address)
	if err != nil {
		log.Warn().Err(err).Msg("holder risk recheck failed")
		return
	}
	if holder.Flagged {
		d.machine.Divert(line.state, domain.StatusBadHolder)
		log.Info().Str("reason", holder.Reason).Msg("holder flagged on recheck, token diverted")
	}
}

// insertSignal persists a signal, tolerating replays of an already
// recorded tick: deterministic IDs make duplicates detectable.
func (d *Driver) insertSignal(ctx context.Context, sig *domain.Signal) error {
	err := d.signals.Insert(ctx, sig)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist signal: %w", err)
	}
	return nil
}

func (d *Driver) insertTrade(ctx context.Context, tr *domain.TradeRecord) error {
	err := d.trades.Insert(ctx, tr)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist trade: %w", err)
	}
	return nil
}

// waitPoll sleeps one poll interval. Returns false when cancelled.
func (d *Driver) waitPoll(ctx context.Context) bool {
	interval := time.Duration(d.cfg.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(interval):
		return true
	}
}

func (d *Driver) lineResult(address string, line *tokenLine, err error) TokenResult {
	if err != nil {
		d.log.Error().Err(err).Str("token", address).Msg("token line failed")
	}
	return TokenResult{
		Address: address,
		Status:  line.state.Status,
		Ticks:   line.ticks,
		Signals: line.signals,
		Trades:  line.trades,
		Err:     err,
	}
}

// buildPortfolio aggregates final card balances and realized outcomes of
// exited tokens from the persisted states and trades.
func (d *Driver) buildPortfolio(ctx context.Context, result *RunResult) error {
	states, err := d.tokens.GetByExperiment(ctx, d.cfg.ExperimentID)
	if err != nil {
		return fmt.Errorf("load token states: %w", err)
	}

	for _, state := range states {
		result.Portfolio.CashCards += state.CashCards
		result.Portfolio.TokenCards += state.TokenCards

		if state.Status != domain.StatusExited {
			continue
		}
		trades, err := d.trades.GetByToken(ctx, d.cfg.ExperimentID, state.Address)
		if err != nil {
			return fmt.Errorf("load trades for %s: %w", state.Address, err)
		}
		for i := len(trades) - 1; i >= 0; i-- {
			if trades[i].Direction == domain.DirectionSell {
				result.Portfolio.Closed = append(result.Portfolio.Closed, ClosedPosition{
					TokenAddress: state.Address,
					ProfitPct:    trades[i].ProfitPct,
				})
				break
			}
		}
	}
	return nil
}
