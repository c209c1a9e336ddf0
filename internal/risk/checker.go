// Package risk defines the holder/creator risk checks consulted when a
// token is promoted into the monitoring set and periodically afterwards.
package risk

import "context"

// HolderResult is the outcome of a holder risk check.
type HolderResult struct {
	Flagged bool
	Reason  string
}

// Checker is the external risk check service. A flagged holder diverts
// the token to bad_holder; a flagged creator to negative_dev. Check
// errors (service unreachable) are reported to the caller and treated as
// "no new information", never as a flag.
type Checker interface {
	// CheckHolderRisk inspects the token's holder distribution.
	CheckHolderRisk(ctx context.Context, tokenAddress string) (HolderResult, error)

	// CheckCreatorRisk reports whether the creator wallet is flagged.
	CheckCreatorRisk(ctx context.Context, creatorAddress string) (bool, error)
}
