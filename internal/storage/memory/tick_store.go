package memory

import (
	"context"
	"sort"
	"sync"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/storage"
)

type tickKey struct {
	experimentID string
	tokenAddress string
	timestampMs  int64
}

// TickStore is an in-memory implementation of storage.TickStore.
type TickStore struct {
	mu   sync.RWMutex
	data map[tickKey]*domain.Tick
}

// NewTickStore creates a new in-memory tick store.
func NewTickStore() *TickStore {
	return &TickStore{data: make(map[tickKey]*domain.Tick)}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

// InsertBulk adds ticks. Fails the entire batch on any duplicate.
func (s *TickStore) InsertBulk(_ context.Context, ticks []*domain.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[tickKey]struct{}, len(ticks))
	for _, t := range ticks {
		if t == nil || t.ExperimentID == "" || t.TokenAddress == "" {
			return storage.ErrInvalidInput
		}
		key := tickKey{t.ExperimentID, t.TokenAddress, t.TimestampMs}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, t := range ticks {
		cp := *t
		s.data[tickKey{t.ExperimentID, t.TokenAddress, t.TimestampMs}] = &cp
	}
	return nil
}

// GetPage retrieves up to limit ticks strictly after afterMs, ordered by
// timestamp ASC. An empty page signals end-of-series.
func (s *TickStore) GetPage(_ context.Context, experimentID, tokenAddress string, afterMs int64, limit int) ([]*domain.Tick, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	all := s.collect(experimentID, tokenAddress, afterMs)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetByToken retrieves all ticks for a token, ordered by timestamp ASC.
func (s *TickStore) GetByToken(_ context.Context, experimentID, tokenAddress string) ([]*domain.Tick, error) {
	return s.collect(experimentID, tokenAddress, -1), nil
}

func (s *TickStore) collect(experimentID, tokenAddress string, afterMs int64) []*domain.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ticks []*domain.Tick
	for key, t := range s.data {
		if key.experimentID == experimentID && key.tokenAddress == tokenAddress && key.timestampMs > afterMs {
			cp := *t
			ticks = append(ticks, &cp)
		}
	}
	sort.Slice(ticks, func(i, j int) bool {
		return ticks[i].TimestampMs < ticks[j].TimestampMs
	})
	return ticks
}
