package domain

// Status represents a token's position in the trading lifecycle.
type Status string

// Lifecycle statuses. Terminal statuses are final: no further rule
// evaluation happens for the token once one is reached.
const (
	StatusDiscovered  Status = "discovered"
	StatusMonitoring  Status = "monitoring"
	StatusBought      Status = "bought"
	StatusSelling     Status = "selling"
	StatusExited      Status = "exited"
	StatusBadHolder   Status = "bad_holder"
	StatusNegativeDev Status = "negative_dev"
)

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusExited, StatusBadHolder, StatusNegativeDev:
		return true
	}
	return false
}

// TokenState holds the mutable per-token trading state.
// Corresponds to tokens table in PostgreSQL. One record per tracked token,
// created when the token first enters the monitoring set.
type TokenState struct {
	ExperimentID string // owning experiment
	Address      string // token mint address (base58)
	Creator      string // creator wallet address (base58)
	Status       Status

	CollectedAt     int64   // first-seen timestamp (ms)
	CollectionPrice float64 // price at first observation
	HighestPrice    float64 // running max of observed prices

	BuyPrice float64 // price of the first accepted buy, 0 until bought
	BuyTime  int64   // timestamp of the first accepted buy (ms)

	CashCards  int // unspent position cards
	TokenCards int // cards currently held as tokens

	// LastTickMs is the timestamp of the last tick evaluated for this
	// token. A resumed run continues paging strictly after it, so ticks
	// already reflected in the state are never evaluated twice.
	LastTickMs int64
}
