package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" || sig.ExperimentID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO signals (
			signal_id, experiment_id, token_address, rule_id, action,
			timestamp_ms, price, cards, accepted, reject_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		sig.SignalID,
		sig.ExperimentID,
		sig.TokenAddress,
		sig.RuleID,
		string(sig.Action),
		sig.TimestampMs,
		sig.Price,
		sig.Cards,
		sig.Accepted,
		sig.RejectReason,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// GetByExperiment retrieves all signals for an experiment, ordered by timestamp.
func (s *SignalStore) GetByExperiment(ctx context.Context, experimentID string) ([]*domain.Signal, error) {
	query := selectSignal + `
		WHERE experiment_id = $1
		ORDER BY timestamp_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, experimentID)
	if err != nil {
		return nil, fmt.Errorf("get signals by experiment: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// GetByToken retrieves all signals for a token within an experiment.
func (s *SignalStore) GetByToken(ctx context.Context, experimentID, tokenAddress string) ([]*domain.Signal, error) {
	query := selectSignal + `
		WHERE experiment_id = $1 AND token_address = $2
		ORDER BY timestamp_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, experimentID, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get signals by token: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

const selectSignal = `
	SELECT signal_id, experiment_id, token_address, rule_id, action,
	       timestamp_ms, price, cards, accepted, reject_reason
	FROM signals
`

func scanSignals(rows pgx.Rows) ([]*domain.Signal, error) {
	var signals []*domain.Signal

	for rows.Next() {
		var sig domain.Signal
		var actionStr string

		err := rows.Scan(
			&sig.SignalID,
			&sig.ExperimentID,
			&sig.TokenAddress,
			&sig.RuleID,
			&actionStr,
			&sig.TimestampMs,
			&sig.Price,
			&sig.Cards,
			&sig.Accepted,
			&sig.RejectReason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}

		sig.Action = domain.Action(actionStr)
		signals = append(signals, &sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
