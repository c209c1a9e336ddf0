package memory

import (
	"context"
	"sort"
	"sync"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/storage"
)

type tokenKey struct {
	experimentID string
	address      string
}

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[tokenKey]*domain.TokenState
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{data: make(map[tokenKey]*domain.TokenState)}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts or replaces the state for (experiment, address).
func (s *TokenStore) Upsert(_ context.Context, state *domain.TokenState) error {
	if state == nil || state.ExperimentID == "" || state.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *state
	s.data[tokenKey{state.ExperimentID, state.Address}] = &cp
	return nil
}

// Get retrieves one token's state. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(_ context.Context, experimentID, address string) (*domain.TokenState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.data[tokenKey{experimentID, address}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *state
	return &cp, nil
}

// GetByExperiment retrieves all token states for an experiment, ordered
// by address ASC.
func (s *TokenStore) GetByExperiment(_ context.Context, experimentID string) ([]*domain.TokenState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var states []*domain.TokenState
	for key, state := range s.data {
		if key.experimentID == experimentID {
			cp := *state
			states = append(states, &cp)
		}
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Address < states[j].Address
	})
	return states, nil
}
