package feed

import (
	"context"
	"errors"

	"token-replay-lab/internal/domain"
)

// Quote is a single live observation for a token.
type Quote struct {
	TokenAddress string
	TimestampMs  int64
	Price        float64
	Measurement  domain.Measurement
}

// ErrNoQuote indicates the source has no observation for the token yet.
var ErrNoQuote = errors.New("feed: no quote available")

// Source supplies the newest observation for a token on demand.
// The virtual replay driver polls a Source once per interval.
type Source interface {
	Fetch(ctx context.Context, tokenAddress string) (*Quote, error)
}
