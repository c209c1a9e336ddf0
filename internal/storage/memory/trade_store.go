package memory

import (
	"context"
	"sort"
	"sync"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{data: make(map[string]*domain.TradeRecord)}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a trade record. Returns storage.ErrDuplicateKey on id collision.
func (s *TradeStore) Insert(_ context.Context, tr *domain.TradeRecord) error {
	if tr == nil || tr.TradeID == "" || tr.ExperimentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tr.TradeID]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *tr
	s.data[tr.TradeID] = &cp
	return nil
}

// GetByExperiment retrieves all trades for an experiment, ordered by
// timestamp ASC then id ASC.
func (s *TradeStore) GetByExperiment(_ context.Context, experimentID string) ([]*domain.TradeRecord, error) {
	return s.collect(func(tr *domain.TradeRecord) bool {
		return tr.ExperimentID == experimentID
	}), nil
}

// GetByToken retrieves all trades for a token within an experiment,
// ordered by timestamp ASC then id ASC.
func (s *TradeStore) GetByToken(_ context.Context, experimentID, tokenAddress string) ([]*domain.TradeRecord, error) {
	return s.collect(func(tr *domain.TradeRecord) bool {
		return tr.ExperimentID == experimentID && tr.TokenAddress == tokenAddress
	}), nil
}

func (s *TradeStore) collect(match func(*domain.TradeRecord) bool) []*domain.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var trades []*domain.TradeRecord
	for _, tr := range s.data {
		if match(tr) {
			cp := *tr
			trades = append(trades, &cp)
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].TimestampMs != trades[j].TimestampMs {
			return trades[i].TimestampMs < trades[j].TimestampMs
		}
		return trades[i].TradeID < trades[j].TradeID
	})
	return trades
}
