package feed

import (
	"context"
	"sync"
)

// StreamSource adapts a StreamClient to the pull-based Source interface.
// It caches the newest quote per token so the replay driver can poll at
// its own interval regardless of stream cadence.
type StreamSource struct {
	client *StreamClient

	mu     sync.RWMutex
	latest map[string]Quote

	wg sync.WaitGroup
}

// NewStreamSource creates a stream-backed source.
func NewStreamSource(client *StreamClient) *StreamSource {
	return &StreamSource{
		client: client,
		latest: make(map[string]Quote),
	}
}

// Compile-time interface check.
var _ Source = (*StreamSource)(nil)

// Watch subscribes to a token's stream and keeps the newest quote cached.
func (s *StreamSource) Watch(ctx context.Context, tokenAddress string) error {
	ch, err := s.client.Subscribe(ctx, tokenAddress)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for quote := range ch {
			s.mu.Lock()
			// Keep the newest quote only; stale stream replays are ignored.
			if prev, ok := s.latest[quote.TokenAddress]; !ok || quote.TimestampMs >= prev.TimestampMs {
				s.latest[quote.TokenAddress] = quote
			}
			s.mu.Unlock()
		}
	}()

	return nil
}

// Fetch returns the newest cached quote for a token.
func (s *StreamSource) Fetch(_ context.Context, tokenAddress string) (*Quote, error) {
	s.mu.RLock()
	quote, ok := s.latest[tokenAddress]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNoQuote
	}
	cp := quote
	return &cp, nil
}

// Close stops the underlying stream client and waits for cache writers.
func (s *StreamSource) Close() error {
	err := s.client.Close()
	s.wg.Wait()
	return err
}
