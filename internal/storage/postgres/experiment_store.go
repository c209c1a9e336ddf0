package postgres

import (
	"context"
	"fmt"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/storage"
)

// ExperimentStore implements storage.ExperimentStore using PostgreSQL.
type ExperimentStore struct {
	pool *Pool
}

// NewExperimentStore creates a new ExperimentStore.
func NewExperimentStore(pool *Pool) *ExperimentStore {
	return &ExperimentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExperimentStore = (*ExperimentStore)(nil)

// Insert adds a new experiment. Returns ErrDuplicateKey if experiment_id exists.
func (s *ExperimentStore) Insert(ctx context.Context, exp *domain.Experiment) error {
	query := `
		INSERT INTO experiments (experiment_id, name, mode, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		exp.ExperimentID,
		exp.Name,
		string(exp.Mode),
		exp.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert experiment: %w", err)
	}
	return nil
}

// GetByID retrieves an experiment by its ID. Returns ErrNotFound if not exists.
func (s *ExperimentStore) GetByID(ctx context.Context, experimentID string) (*domain.Experiment, error) {
	query := `
		SELECT experiment_id, name, mode, created_at
		FROM experiments
		WHERE experiment_id = $1
	`

	var exp domain.Experiment
	var modeStr string
	err := s.pool.QueryRow(ctx, query, experimentID).Scan(
		&exp.ExperimentID,
		&exp.Name,
		&modeStr,
		&exp.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get experiment by id: %w", err)
	}

	exp.Mode = domain.Mode(modeStr)
	return &exp, nil
}
