package main

import (
	"context"
	"encoding/json"
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
	ticksFile := flag.String("ticks-file", "", "JSON tick series to ingest before the run")
	pageSize := flag.Int("page-size", 0, "Tick page size (0 uses the default)")
	outputJSON := flag.Bool("json", false, "Output run result as JSON")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("cmd", "backtest").Logger()

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
	if domain.Mode(cfg.Experiment.Mode) != domain.ModeBacktest {
		logger.Fatal().Str("mode", cfg.Experiment.Mode).Msg("config mode must be backtest")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, cleanup, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer cleanup()

	if *ticksFile != "" {
		n, err := ingestTicks(ctx, stores.ticks, cfg.Experiment.ID, *ticksFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", *ticksFile).Msg("ingest ticks")
		}
		logger.Info().Int("ticks", n).Msg("ingested tick series")
	}

	if err := recordExperiment(ctx, stores.experiments, cfg); err != nil {
		logger.Fatal().Err(err).Msg("record experiment")
	}

	driver, err := replay.NewDriver(replay.Options{
		Config:   cfg.ExperimentConfig(),
		Source:   replay.NewHistoricalSource(stores.ticks, *pageSize),
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

	start := time.Now()
	result, err := driver.Run(ctx, refs)
	if err != nil {
		logger.Fatal().Err(err).Msg("run backtest")
	}
	logger.Info().
		Str("experiment", result.ExperimentID).
		Int("tokens", len(result.Tokens)).
		Dur("elapsed", time.Since(start)).
		Msg("backtest finished")

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			logger.Fatal().Err(err).Msg("encode result")
		}
		return
	}

	printSummary(result)
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
// stores when a DSN is absent. Migrations run on every start; they are
// idempotent.
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

// tickFile is the JSON shape of one ingested tick.
type tickFile struct {
	TokenAddress string  `json:"token"`
	TimestampMs  int64   `json:"timestampMs"`
	Price        float64 `json:"price"`
	Volume       float64 `json:"volume"`
	HolderCount  float64 `json:"holderCount"`
	TVL          float64 `json:"tvl"`
	MarketCap    float64 `json:"marketCap"`
}

// ingestTicks loads a JSON array of ticks into the tick store. A rerun
// over an already-ingested file is a no-op.
func ingestTicks(ctx context.Context, store storage.TickStore, experimentID, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read ticks: %w", err)
	}

	var rows []tickFile
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("parse ticks: %w", err)
	}

	ticks := make([]*domain.Tick, len(rows))
	for i, row := range rows {
		ticks[i] = &domain.Tick{
			ExperimentID: experimentID,
			TokenAddress: row.TokenAddress,
			TimestampMs:  row.TimestampMs,
			Price:        row.Price,
			Measurement: domain.Measurement{
				Volume:      row.Volume,
				HolderCount: row.HolderCount,
				TVL:         row.TVL,
				MarketCap:   row.MarketCap,
			},
		}
	}

	if err := store.InsertBulk(ctx, ticks); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return 0, nil
		}
		return 0, fmt.Errorf("insert ticks: %w", err)
	}
	return len(ticks), nil
}

// printSummary writes a human-readable run summary to stdout.
func printSummary(result *replay.RunResult) {
	fmt.Printf("Experiment %s\n\n", result.ExperimentID)
	fmt.Println("Tokens:")
	for addr, tok := range result.Tokens {
		if tok.Err != nil {
			fmt.Printf("  %s  ERROR: %v\n", addr, tok.Err)
			continue
		}
		fmt.Printf("  %s  status=%s ticks=%d signals=%d trades=%d\n",
			addr, tok.Status, tok.Ticks, tok.Signals, tok.Trades)
	}
	fmt.Printf("\nPortfolio: cash=%d tokens=%d closed=%d\n",
		result.Portfolio.CashCards, result.Portfolio.TokenCards, len(result.Portfolio.Closed))
	for _, pos := range result.Portfolio.Closed {
		fmt.Printf("  %s  profit=%.2f%%\n", pos.TokenAddress, pos.ProfitPct)
	}
}
