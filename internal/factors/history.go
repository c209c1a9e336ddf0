package factors

import "errors"

// ErrOutOfOrder is returned when a tick arrives with a timestamp earlier
// than the newest buffered point. The buffer must stay monotonically
// non-decreasing in timestamp because trend factors depend on its order.
var ErrOutOfOrder = errors.New("tick timestamp precedes buffered history")

type pricePoint struct {
	timestampMs int64
	price       float64
}

// History is the append-only, time-bounded price buffer for one token.
// It is owned exclusively by that token's processing line; no locking.
type History struct {
	retentionMs int64
	points      []pricePoint
}

// NewHistory creates a history that evicts points older than retentionMs
// relative to the newest point. retentionMs <= 0 disables eviction.
func NewHistory(retentionMs int64) *History {
	return &History{retentionMs: retentionMs}
}

// Append adds a point and evicts entries outside the retention window.
// Equal timestamps are accepted (non-decreasing, not strictly increasing).
func (h *History) Append(timestampMs int64, price float64) error {
	if n := len(h.points); n > 0 && timestampMs < h.points[n-1].timestampMs {
		return ErrOutOfOrder
	}

	h.points = append(h.points, pricePoint{timestampMs: timestampMs, price: price})

	if h.retentionMs > 0 {
		cutoff := timestampMs - h.retentionMs
		evict := 0
		for evict < len(h.points) && h.points[evict].timestampMs < cutoff {
			evict++
		}
		if evict > 0 {
			h.points = h.points[evict:]
		}
	}
	return nil
}

// Prices returns the buffered prices in timestamp order. The slice is a
// copy; callers may retain it across the next Append.
func (h *History) Prices() []float64 {
	prices := make([]float64, len(h.points))
	for i, p := range h.points {
		prices[i] = p.price
	}
	return prices
}

// Len returns the number of buffered points.
func (h *History) Len() int {
	return len(h.points)
}
