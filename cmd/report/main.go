package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"token-replay-lab/internal/config"
	"token-replay-lab/internal/reporting"
	"token-replay-lab/internal/storage/migrations"
	pgstore "token-replay-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to experiment YAML (required)")
	experimentID := flag.String("experiment-id", "", "Experiment to report on (defaults to the config's id)")
	outputDir := flag.String("output-dir", "", "Output directory (defaults to the config's report.output_dir)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("cmd", "report").Logger()

	if *configPath == "" {
		logger.Fatal().Msg("--config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if cfg.Storage.PostgresDSN == "" {
		logger.Fatal().Msg("storage.postgres_dsn is required: reports read the durable log")
	}

	id := *experimentID
	if id == "" {
		id = cfg.Experiment.ID
	}
	dir := *outputDir
	if dir == "" {
		dir = cfg.Report.OutputDir
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrate postgres")
	}

	generator := reporting.NewGenerator(
		pgstore.NewExperimentStore(pool),
		pgstore.NewTokenStore(pool),
		pgstore.NewSignalStore(pool),
		pgstore.NewTradeStore(pool),
	)

	report, err := generator.Generate(ctx, id)
	if err != nil {
		logger.Fatal().Err(err).Str("experiment", id).Msg("generate report")
	}

	target := filepath.Join(dir, id)
	if err := os.MkdirAll(target, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create output dir")
	}

	files := map[string]string{
		"REPORT.md":  reporting.RenderMarkdown(report),
		"trades.csv": reporting.RenderTradesCSV(report.TradeRows),
		"tokens.csv": reporting.RenderTokensCSV(report.TokenRows),
	}
	for name, content := range files {
		path := filepath.Join(target, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			logger.Fatal().Err(err).Str("file", path).Msg("write report file")
		}
	}

	fmt.Println("Report generated:")
	fmt.Printf("  - %s\n", filepath.Join(target, "REPORT.md"))
	fmt.Printf("  - %s\n", filepath.Join(target, "trades.csv"))
	fmt.Printf("  - %s\n", filepath.Join(target, "tokens.csv"))
}
