package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts or replaces the state for (experiment_id, address).
func (s *TokenStore) Upsert(ctx context.Context, state *domain.TokenState) error {
	if state == nil || state.ExperimentID == "" || state.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_states (
			experiment_id, address, creator, status, collected_at,
			collection_price, highest_price, buy_price, buy_time,
			cash_cards, token_cards, last_tick_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (experiment_id, address) DO UPDATE SET
			creator = EXCLUDED.creator,
			status = EXCLUDED.status,
			collected_at = EXCLUDED.collected_at,
			collection_price = EXCLUDED.collection_price,
			highest_price = EXCLUDED.highest_price,
			buy_price = EXCLUDED.buy_price,
			buy_time = EXCLUDED.buy_time,
			cash_cards = EXCLUDED.cash_cards,
			token_cards = EXCLUDED.token_cards,
			last_tick_ms = EXCLUDED.last_tick_ms
	`

	_, err := s.pool.Exec(ctx, query,
		state.ExperimentID,
		state.Address,
		state.Creator,
		string(state.Status),
		state.CollectedAt,
		state.CollectionPrice,
		state.HighestPrice,
		state.BuyPrice,
		state.BuyTime,
		state.CashCards,
		state.TokenCards,
		state.LastTickMs,
	)
	if err != nil {
		return fmt.Errorf("upsert token state: %w", err)
	}
	return nil
}

// Get retrieves the state for a token. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(ctx context.Context, experimentID, address string) (*domain.TokenState, error) {
	query := selectTokenState + ` WHERE experiment_id = $1 AND address = $2`

	row := s.pool.QueryRow(ctx, query, experimentID, address)
	state, err := scanTokenState(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token state: %w", err)
	}
	return state, nil
}

// GetByExperiment retrieves all token states for an experiment, ordered by address.
func (s *TokenStore) GetByExperiment(ctx context.Context, experimentID string) ([]*domain.TokenState, error) {
	query := selectTokenState + ` WHERE experiment_id = $1 ORDER BY address ASC`

	rows, err := s.pool.Query(ctx, query, experimentID)
	if err != nil {
		return nil, fmt.Errorf("get token states by experiment: %w", err)
	}
	defer rows.Close()

	var states []*domain.TokenState
	for rows.Next() {
		state, err := scanTokenState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token state row: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token state rows: %w", err)
	}
	return states, nil
}

const selectTokenState = `
	SELECT experiment_id, address, creator, status, collected_at,
	       collection_price, highest_price, buy_price, buy_time,
	       cash_cards, token_cards, last_tick_ms
	FROM token_states
`

func scanTokenState(row pgx.Row) (*domain.TokenState, error) {
	var state domain.TokenState
	var statusStr string

	err := row.Scan(
		&state.ExperimentID,
		&state.Address,
		&state.Creator,
		&statusStr,
		&state.CollectedAt,
		&state.CollectionPrice,
		&state.HighestPrice,
		&state.BuyPrice,
		&state.BuyTime,
		&state.CashCards,
		&state.TokenCards,
		&state.LastTickMs,
	)
	if err != nil {
		return nil, err
	}

	state.Status = domain.Status(statusStr)
	return &state, nil
}
