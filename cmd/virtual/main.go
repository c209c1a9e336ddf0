package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"token-replay-lab/internal/config"
	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/execution"
	"token-replay-lab/internal/feed"
	"token-replay-lab/internal/replay"
	"token-replay-lab/internal/risk"
	"token-replay-lab/internal/storage"
	chstore "token-replay-lab/internal/storage/clickhouse"
	"token-replay-lab/internal/storage/memory"
	"token-replay-lab/internal/storage/migrations"
	pgstore "token-replay-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to experiment YAML (required)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("cmd", "virtual").Logger()

	if *configPath == "" {
		logger.Fatal().Msg("--config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("validate config")
	}
	mode := domain.Mode(cfg.Experiment.Mode)
	if mode != domain.ModeVirtual && mode != domain.ModeLive {
		logger.Fatal().Str("mode", cfg.Experiment.Mode).Msg("config mode must be virtual or live")
	}

	// The run ends on SIGINT/SIGTERM; the driver persists state between
	// ticks so an interrupted session resumes cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, cleanup, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer cleanup()

	if err := recordExperiment(ctx, stores.experiments, cfg); err != nil {
		logger.Fatal().Err(err).Msg("record experiment")
	}

	quoteSource, closeFeed, err := openFeed(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open feed")
	}
	defer closeFeed()

	var source replay.TickSource = replay.NewPollSource(quoteSource)
	if cfg.Storage.ClickhouseDSN != "" {
		// Keep a durable tick trail so the session can be backtested later.
		source = &recordingSource{inner: source, store: stores.ticks, log: logger}
	}

	driver, err := replay.NewDriver(replay.Options{
		Config:   cfg.ExperimentConfig(),
		Source:   source,
		Tokens:   stores.tokens,
		Signals:  stores.signals,
		Trades:   stores.trades,
		Risk:     newRiskChecker(cfg),
		Executor: execution.NewSimulator(),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build driver")
	}

	refs := make([]replay.TokenRef, len(cfg.Tokens))
	for i, tok := range cfg.Tokens {
		refs[i] = replay.TokenRef{Address: tok.Address, Creator: tok.Creator}
	}

	logger.Info().
		Str("experiment", cfg.Experiment.ID).
		Str("mode", cfg.Experiment.Mode).
		Int("tokens", len(refs)).
		Msg("starting replay, stop with SIGINT")

	result, err := driver.Run(ctx, refs)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("run replay")
	}

	logger.Info().Str("experiment", result.ExperimentID).Msg("replay stopped")
	for addr, tok := range result.Tokens {
		if tok.Err != nil {
			fmt.Printf("  %s  ERROR: %v\n", addr, tok.Err)
			continue
		}
		fmt.Printf("  %s  status=%s ticks=%d signals=%d trades=%d\n",
			addr, tok.Status, tok.Ticks, tok.Signals, tok.Trades)
	}
	fmt.Printf("Portfolio: cash=%d tokens=%d closed=%d\n",
		result.Portfolio.CashCards, result.Portfolio.TokenCards, len(result.Portfolio.Closed))
}

// openFeed builds the quote source, preferring the stream endpoint.
func openFeed(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (feed.Source, func(), error) {
	if cfg.Feed.StreamEndpoint != "" {
		client, err := feed.NewStreamClient(ctx, cfg.Feed.StreamEndpoint, nil, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect stream: %w", err)
		}
		source := feed.NewStreamSource(client)
		for _, tok := range cfg.Tokens {
			if err := source.Watch(ctx, tok.Address); err != nil {
				_ = source.Close()
				return nil, nil, fmt.Errorf("watch %s: %w", tok.Address, err)
			}
		}
		return source, func() { _ = source.Close() }, nil
	}

	source := feed.NewHTTPSource(feed.HTTPSourceConfig{Endpoint: cfg.Feed.HTTPEndpoint})
	return source, func() {}, nil
}

// recordingSource persists every yielded tick before handing it to the
// driver. Storage failures are logged, not fatal: a gap in the recorded
// trail must not stop the live session.
type recordingSource struct {
	inner replay.TickSource
	store storage.TickStore
	log   zerolog.Logger
}

var _ replay.TickSource = (*recordingSource)(nil)

func (s *recordingSource) Next(ctx context.Context, experimentID, tokenAddress string, afterMs int64) ([]*domain.Tick, error) {
	ticks, err := s.inner.Next(ctx, experimentID, tokenAddress, afterMs)
	if err != nil || len(ticks) == 0 {
		return ticks, err
	}

	if err := s.store.InsertBulk(ctx, ticks); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		s.log.Warn().Err(err).Str("token", tokenAddress).Msg("record ticks")
	}
	return ticks, nil
}

// experimentStores bundles the per-run store set.
type experimentStores struct {
	experiments storage.ExperimentStore
	tokens      storage.TokenStore
	signals     storage.SignalStore
	trades      storage.TradeStore
	ticks       storage.TickStore
}

// openStores connects the configured backends, falling back to memory
// stores when a DSN is absent.
func openStores(ctx context.Context, cfg *config.Config) (*experimentStores, func(), error) {
	stores := &experimentStores{
		experiments: memory.NewExperimentStore(),
		tokens:      memory.NewTokenStore(),
		signals:     memory.NewSignalStore(),
		trades:      memory.NewTradeStore(),
		ticks:       memory.NewTickStore(),
	}
	cleanup := func() {}

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		stores.experiments = pgstore.NewExperimentStore(pool)
		stores.tokens = pgstore.NewTokenStore(pool)
		stores.signals = pgstore.NewSignalStore(pool)
		stores.trades = pgstore.NewTradeStore(pool)
		prev := cleanup
		cleanup = func() { pool.Close(); prev() }
	}

	if dsn := cfg.Storage.ClickhouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		stores.ticks = chstore.NewTickStore(conn)
		prev := cleanup
		cleanup = func() { _ = conn.Close(); prev() }
	}

	return stores, cleanup, nil
}

// recordExperiment persists the experiment row, tolerating reruns.
func recordExperiment(ctx context.Context, store storage.ExperimentStore, cfg *config.Config) error {
	err := store.Insert(ctx, &domain.Experiment{
		ExperimentID: cfg.Experiment.ID,
		Name:         cfg.Experiment.Name,
		Mode:         domain.Mode(cfg.Experiment.Mode),
		CreatedAt:    time.Now().UnixMilli(),
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}

// newRiskChecker selects the HTTP checker when an endpoint is configured,
// otherwise an empty list checker that flags nothing.
func newRiskChecker(cfg *config.Config) risk.Checker {
	if cfg.Feed.RiskEndpoint != "" {
		return risk.NewHTTPChecker(risk.HTTPCheckerConfig{Endpoint: cfg.Feed.RiskEndpoint})
	}
	return risk.NewListChecker(nil, nil)
}
