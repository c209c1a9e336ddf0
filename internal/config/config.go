// Package config loads experiment definition files. One YAML file fully
// describes a run: the rule set, trend thresholds, card sizing, token
// universe and the infrastructure endpoints.
package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/rules"
)

// Config holds one experiment definition plus infrastructure settings.
type Config struct {
	Experiment struct {
		ID   string `yaml:"id"` // generated when empty
		Name string `yaml:"name"`
		Mode string `yaml:"mode"` // backtest | virtual | live
	} `yaml:"experiment"`

	Rules []RuleConfig `yaml:"rules"`

	Trend struct {
		CV          float64 `yaml:"cv"`
		Score       float64 `yaml:"score"`
		TotalReturn float64 `yaml:"total_return"`
		RiseRatio   float64 `yaml:"rise_ratio"`
	} `yaml:"trend"`

	Cards struct {
		Count       int `yaml:"count"`
		InitialCash int `yaml:"initial_cash"`
		Buy         int `yaml:"buy"`
		Sell        int `yaml:"sell"`
	} `yaml:"cards"`

	Replay struct {
		MaxConcurrency    int   `yaml:"max_concurrency"`
		PriceRetentionMs  int64 `yaml:"price_retention_ms"`
		RiskRecheckTicks  int   `yaml:"risk_recheck_ticks"`
		PollIntervalMs    int64 `yaml:"poll_interval_ms"`
		CooldownDefaultMs int64 `yaml:"cooldown_default_ms"`
	} `yaml:"replay"`

	Tokens []TokenConfig `yaml:"tokens"`

	Storage struct {
		PostgresDSN   string `yaml:"postgres_dsn"`   // empty selects memory stores
		ClickhouseDSN string `yaml:"clickhouse_dsn"` // empty selects memory tick store
	} `yaml:"storage"`

	Feed struct {
		HTTPEndpoint   string `yaml:"http_endpoint"`
		StreamEndpoint string `yaml:"stream_endpoint"` // preferred over http when set
		RiskEndpoint   string `yaml:"risk_endpoint"`
	} `yaml:"feed"`

	Report struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"report"`
}

// RuleConfig is the YAML shape of one rule.
type RuleConfig struct {
	ID            string `yaml:"id"`
	Action        string `yaml:"action"`
	Condition     string `yaml:"condition"`
	Priority      int    `yaml:"priority"`
	CooldownMs    int64  `yaml:"cooldown_ms"`
	MaxExecutions *int   `yaml:"max_executions"` // absent means unlimited
}

// TokenConfig names one token of the experiment's universe.
type TokenConfig struct {
	Address string `yaml:"address"`
	Creator string `yaml:"creator"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Environment variable overrides
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("FEED_HTTP_ENDPOINT"); v != "" {
		cfg.Feed.HTTPEndpoint = v
	}
	if v := os.Getenv("FEED_STREAM_ENDPOINT"); v != "" {
		cfg.Feed.StreamEndpoint = v
	}
	if v := os.Getenv("RISK_ENDPOINT"); v != "" {
		cfg.Feed.RiskEndpoint = v
	}

	// Defaults
	if cfg.Experiment.ID == "" {
		cfg.Experiment.ID = uuid.NewString()
	}
	if cfg.Cards.Count == 0 {
		cfg.Cards.Count = 10
	}
	if cfg.Cards.InitialCash == 0 {
		cfg.Cards.InitialCash = cfg.Cards.Count
	}
	if cfg.Cards.Buy == 0 {
		cfg.Cards.Buy = 1
	}
	if cfg.Cards.Sell == 0 {
		cfg.Cards.Sell = 1
	}
	if cfg.Replay.MaxConcurrency == 0 {
		cfg.Replay.MaxConcurrency = 4
	}
	if cfg.Replay.PriceRetentionMs == 0 {
		cfg.Replay.PriceRetentionMs = 300_000
	}
	if cfg.Replay.RiskRecheckTicks == 0 {
		cfg.Replay.RiskRecheckTicks = 10
	}
	if cfg.Replay.PollIntervalMs == 0 {
		cfg.Replay.PollIntervalMs = 1000
	}
	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = "reports"
	}

	return cfg, nil
}

// Validate checks that the loaded experiment definition is usable.
func (c *Config) Validate() error {
	if c.Experiment.Name == "" {
		return fmt.Errorf("experiment.name is required")
	}
	if !domain.Mode(c.Experiment.Mode).Valid() {
		return fmt.Errorf("experiment.mode %q is not one of backtest, virtual, live", c.Experiment.Mode)
	}

	if len(c.Rules) == 0 {
		return fmt.Errorf("at least one rule is required")
	}
	seen := make(map[string]struct{}, len(c.Rules))
	for i, r := range c.Rules {
		if r.ID == "" {
			return fmt.Errorf("rules[%d]: id is required", i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("rules[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = struct{}{}
		if !domain.Action(r.Action).Valid() {
			return fmt.Errorf("rule %q: action %q is not one of buy, sell, hold", r.ID, r.Action)
		}
		if _, err := rules.Parse(r.Condition); err != nil {
			return fmt.Errorf("rule %q: condition: %w", r.ID, err)
		}
		if r.CooldownMs < 0 {
			return fmt.Errorf("rule %q: cooldown_ms must not be negative", r.ID)
		}
		if r.MaxExecutions != nil && *r.MaxExecutions < 1 {
			return fmt.Errorf("rule %q: max_executions must be at least 1", r.ID)
		}
	}

	if c.Cards.InitialCash > c.Cards.Count {
		return fmt.Errorf("cards.initial_cash %d exceeds cards.count %d", c.Cards.InitialCash, c.Cards.Count)
	}
	if c.Cards.Buy < 1 || c.Cards.Buy > c.Cards.Count {
		return fmt.Errorf("cards.buy must be between 1 and cards.count")
	}
	if c.Cards.Sell < 1 || c.Cards.Sell > c.Cards.Count {
		return fmt.Errorf("cards.sell must be between 1 and cards.count")
	}

	for i, tok := range c.Tokens {
		if err := domain.ValidateAddress(tok.Address); err != nil {
			return fmt.Errorf("tokens[%d]: address: %w", i, err)
		}
		if tok.Creator != "" {
			if err := domain.ValidateAddress(tok.Creator); err != nil {
				return fmt.Errorf("tokens[%d]: creator: %w", i, err)
			}
		}
	}

	if domain.Mode(c.Experiment.Mode) != domain.ModeBacktest {
		if c.Feed.HTTPEndpoint == "" && c.Feed.StreamEndpoint == "" {
			return fmt.Errorf("feed.http_endpoint or feed.stream_endpoint is required in %s mode", c.Experiment.Mode)
		}
	}

	return nil
}

// ExperimentConfig maps the file onto the replay driver's options.
func (c *Config) ExperimentConfig() domain.ExperimentConfig {
	ruleSet := make([]domain.Rule, len(c.Rules))
	for i, r := range c.Rules {
		ruleSet[i] = domain.Rule{
			RuleID:        r.ID,
			Action:        domain.Action(r.Action),
			Condition:     r.Condition,
			Priority:      r.Priority,
			CooldownMs:    r.CooldownMs,
			MaxExecutions: r.MaxExecutions,
		}
	}

	return domain.ExperimentConfig{
		ExperimentID: c.Experiment.ID,
		Name:         c.Experiment.Name,
		Mode:         domain.Mode(c.Experiment.Mode),
		Rules:        ruleSet,
		Trend: domain.TrendThresholds{
			CV:          c.Trend.CV,
			Score:       c.Trend.Score,
			TotalReturn: c.Trend.TotalReturn,
			RiseRatio:   c.Trend.RiseRatio,
		},
		CooldownDefaultMs: c.Replay.CooldownDefaultMs,
		CardCount:         c.Cards.Count,
		InitialCashCards:  c.Cards.InitialCash,
		BuyCards:          c.Cards.Buy,
		SellCards:         c.Cards.Sell,
		MaxConcurrency:    c.Replay.MaxConcurrency,
		PriceRetentionMs:  c.Replay.PriceRetentionMs,
		RiskRecheckTicks:  c.Replay.RiskRecheckTicks,
		PollIntervalMs:    c.Replay.PollIntervalMs,
	}
}
