// Package storage defines the persistence interfaces the replay driver
// and reporting depend on. Implementations live in the postgres,
// clickhouse and memory subpackages.
package storage

import (
	"context"

	"token-replay-lab/internal/domain"
)

// ExperimentStore provides access to experiments storage.
type ExperimentStore interface {
	// Insert adds an experiment. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, e *domain.Experiment) error

	// GetByID retrieves an experiment. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, experimentID string) (*domain.Experiment, error)
}

// TokenStore provides access to per-experiment token state storage.
// Token state is the one mutable record set: the replay driver persists
// the final state of each token at the end of a run.
type TokenStore interface {
	// Upsert inserts or replaces the state for (experiment, address).
	Upsert(ctx context.Context, s *domain.TokenState) error

	// Get retrieves one token's state. Returns ErrNotFound if not exists.
	Get(ctx context.Context, experimentID, address string) (*domain.TokenState, error)

	// GetByExperiment retrieves all token states for an experiment,
	// ordered by address ASC.
	GetByExperiment(ctx context.Context, experimentID string) ([]*domain.TokenState, error)
}

// TickStore provides access to recorded tick storage.
type TickStore interface {
	// InsertBulk adds ticks. Fails the entire batch on a duplicate
	// (experiment_id, token_address, timestamp_ms).
	InsertBulk(ctx context.Context, ticks []*domain.Tick) error

	// GetPage retrieves up to limit ticks for a token with timestamps
	// strictly after afterMs, ordered by timestamp ASC. An empty page
	// signals end-of-series.
	GetPage(ctx context.Context, experimentID, tokenAddress string, afterMs int64, limit int) ([]*domain.Tick, error)

	// GetByToken retrieves all ticks for a token, ordered by timestamp ASC.
	GetByToken(ctx context.Context, experimentID, tokenAddress string) ([]*domain.Tick, error)
}

// SignalStore is the append-only durable log for signals.
type SignalStore interface {
	// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, s *domain.Signal) error

	// GetByExperiment retrieves all signals for an experiment, ordered
	// by timestamp ASC, signal_id ASC.
	GetByExperiment(ctx context.Context, experimentID string) ([]*domain.Signal, error)

	// GetByToken retrieves all signals for a token, ordered by
	// timestamp ASC, signal_id ASC.
	GetByToken(ctx context.Context, experimentID, tokenAddress string) ([]*domain.Signal, error)
}

// TradeStore is the append-only durable log for trades.
type TradeStore interface {
	// Insert adds a trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByExperiment retrieves all trades for an experiment, ordered
	// by timestamp ASC, trade_id ASC.
	GetByExperiment(ctx context.Context, experimentID string) ([]*domain.TradeRecord, error)

	// GetByToken retrieves all trades for a token, ordered by
	// timestamp ASC, trade_id ASC.
	GetByToken(ctx context.Context, experimentID, tokenAddress string) ([]*domain.TradeRecord, error)
}
