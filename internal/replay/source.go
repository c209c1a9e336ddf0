package replay

import (
	"context"
	"errors"
	"fmt"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/feed"
	"token-replay-lab/internal/storage"
)

// TickSource yields the next batch of ticks for one token, strictly after
// afterMs, in timestamp order. An empty batch means no new ticks: for a
// historical source that is end-of-series, for a live source it means
// nothing new since the last poll.
type TickSource interface {
	Next(ctx context.Context, experimentID, tokenAddress string, afterMs int64) ([]*domain.Tick, error)
}

// HistoricalSource pages through the recorded tick store.
type HistoricalSource struct {
	store    storage.TickStore
	pageSize int
}

// DefaultPageSize is the tick page size used when none is configured.
const DefaultPageSize = 500

// NewHistoricalSource creates a paged source over a tick store.
func NewHistoricalSource(store storage.TickStore, pageSize int) *HistoricalSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &HistoricalSource{store: store, pageSize: pageSize}
}

// Compile-time interface check.
var _ TickSource = (*HistoricalSource)(nil)

// Next returns the next page of recorded ticks.
func (s *HistoricalSource) Next(ctx context.Context, experimentID, tokenAddress string, afterMs int64) ([]*domain.Tick, error) {
	page, err := s.store.GetPage(ctx, experimentID, tokenAddress, afterMs, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("page ticks: %w", err)
	}
	return page, nil
}

// PollSource wraps a live feed, yielding at most one unseen tick per call.
type PollSource struct {
	source feed.Source
}

// NewPollSource creates a live poll source.
func NewPollSource(source feed.Source) *PollSource {
	return &PollSource{source: source}
}

// Compile-time interface check.
var _ TickSource = (*PollSource)(nil)

// Next fetches the newest quote and converts it to a tick. Quotes at or
// before afterMs are dropped so a slow feed never replays an observation.
func (s *PollSource) Next(ctx context.Context, experimentID, tokenAddress string, afterMs int64) ([]*domain.Tick, error) {
	quote, err := s.source.Fetch(ctx, tokenAddress)
	if err != nil {
		if errors.Is(err, feed.ErrNoQuote) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch quote: %w", err)
	}
	if quote.TimestampMs <= afterMs {
		return nil, nil
	}

	return []*domain.Tick{{
		ExperimentID: experimentID,
		TokenAddress: tokenAddress,
		TimestampMs:  quote.TimestampMs,
		Price:        quote.Price,
		Measurement:  quote.Measurement,
	}}, nil
}
