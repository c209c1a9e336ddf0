package memory

import (
	"context"
	"sort"
	"sync"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Signal
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{data: make(map[string]*domain.Signal)}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a signal. Returns storage.ErrDuplicateKey on id collision.
func (s *SignalStore) Insert(_ context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" || sig.ExperimentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.SignalID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *sig
	s.data[sig.SignalID] = &cp
	return nil
}

// GetByExperiment retrieves all signals for an experiment, ordered by
// timestamp ASC then id ASC.
func (s *SignalStore) GetByExperiment(_ context.Context, experimentID string) ([]*domain.Signal, error) {
	return s.collect(func(sig *domain.Signal) bool {
		return sig.ExperimentID == experimentID
	}), nil
}

// GetByToken retrieves all signals for a token within an experiment,
// ordered by timestamp ASC then id ASC.
func (s *SignalStore) GetByToken(_ context.Context, experimentID, tokenAddress string) ([]*domain.Signal, error) {
	return s.collect(func(sig *domain.Signal) bool {
		return sig.ExperimentID == experimentID && sig.TokenAddress == tokenAddress
	}), nil
}

func (s *SignalStore) collect(match func(*domain.Signal) bool) []*domain.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var signals []*domain.Signal
	for _, sig := range s.data {
		if match(sig) {
			cp := *sig
			signals = append(signals, &cp)
		}
	}
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].TimestampMs != signals[j].TimestampMs {
			return signals[i].TimestampMs < signals[j].TimestampMs
		}
		return signals[i].SignalID < signals[j].SignalID
	})
	return signals
}
