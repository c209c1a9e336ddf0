package risk

import (
	"context"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ListChecker is a Checker backed by in-memory blacklists plus a
// structural check on the creator address. Backtests and tests use it
// directly; live runs wrap it around feed-provided lists.
type ListChecker struct {
	holderBlacklist  map[string]string // token address -> reason
	creatorBlacklist map[string]struct{}
}

// NewListChecker creates a checker from explicit blacklists. Both maps
// may be nil. holderBlacklist values are the rejection reasons.
func NewListChecker(holderBlacklist map[string]string, creatorBlacklist []string) *ListChecker {
	creators := make(map[string]struct{}, len(creatorBlacklist))
	for _, c := range creatorBlacklist {
		creators[c] = struct{}{}
	}
	if holderBlacklist == nil {
		holderBlacklist = map[string]string{}
	}
	return &ListChecker{holderBlacklist: holderBlacklist, creatorBlacklist: creators}
}

// Compile-time interface check.
var _ Checker = (*ListChecker)(nil)

// CheckHolderRisk flags tokens on the holder blacklist.
func (c *ListChecker) CheckHolderRisk(_ context.Context, tokenAddress string) (HolderResult, error) {
	if reason, ok := c.holderBlacklist[tokenAddress]; ok {
		return HolderResult{Flagged: true, Reason: reason}, nil
	}
	return HolderResult{}, nil
}

// CheckCreatorRisk flags blacklisted creators and creators whose address
// is not an ed25519 curve point. An off-curve address is a program
// derived address, meaning the "creator" is a program rather than a
// wallet, a known rug pattern for freshly launched tokens.
func (c *ListChecker) CheckCreatorRisk(_ context.Context, creatorAddress string) (bool, error) {
	if _, ok := c.creatorBlacklist[creatorAddress]; ok {
		return true, nil
	}

	decoded, err := base58.Decode(creatorAddress)
	if err != nil || len(decoded) != 32 {
		return true, nil // unparseable creator is flagged, not an error
	}
	return !isOnCurve(decoded), nil
}

// isOnCurve reports whether the 32-byte value decodes to a valid
// ed25519 point.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
