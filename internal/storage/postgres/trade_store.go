package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade record. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, tr *domain.TradeRecord) error {
	if tr == nil || tr.TradeID == "" || tr.ExperimentID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (
			trade_id, experiment_id, token_address, rule_id, direction,
			timestamp_ms, unit_price, cards, profit_pct, executed, exec_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		tr.TradeID,
		tr.ExperimentID,
		tr.TokenAddress,
		tr.RuleID,
		string(tr.Direction),
		tr.TimestampMs,
		tr.UnitPrice,
		tr.Cards,
		tr.ProfitPct,
		tr.Executed,
		tr.ExecError,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByExperiment retrieves all trades for an experiment, ordered by timestamp.
func (s *TradeStore) GetByExperiment(ctx context.Context, experimentID string) ([]*domain.TradeRecord, error) {
	query := selectTrade + `
		WHERE experiment_id = $1
		ORDER BY timestamp_ms ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, experimentID)
	if err != nil {
		return nil, fmt.Errorf("get trades by experiment: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByToken retrieves all trades for a token within an experiment.
func (s *TradeStore) GetByToken(ctx context.Context, experimentID, tokenAddress string) ([]*domain.TradeRecord, error) {
	query := selectTrade + `
		WHERE experiment_id = $1 AND token_address = $2
		ORDER BY timestamp_ms ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, experimentID, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get trades by token: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

const selectTrade = `
	SELECT trade_id, experiment_id, token_address, rule_id, direction,
	       timestamp_ms, unit_price, cards, profit_pct, executed, exec_error
	FROM trades
`

func scanTrades(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		var tr domain.TradeRecord
		var directionStr string

		err := rows.Scan(
			&tr.TradeID,
			&tr.ExperimentID,
			&tr.TokenAddress,
			&tr.RuleID,
			&directionStr,
			&tr.TimestampMs,
			&tr.UnitPrice,
			&tr.Cards,
			&tr.ProfitPct,
			&tr.Executed,
			&tr.ExecError,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}

		tr.Direction = domain.Direction(directionStr)
		trades = append(trades, &tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
