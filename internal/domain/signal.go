package domain

// Signal records one rule firing, accepted or rejected, for the durable log.
// Corresponds to signals table in PostgreSQL.
type Signal struct {
	SignalID     string // deterministic hash
	ExperimentID string
	TokenAddress string
	RuleID       string
	Action       Action
	TimestampMs  int64   // tick timestamp (ms)
	Price        float64 // price at the tick that fired the rule
	Cards        int     // cards the lifecycle machine moved (0 if rejected)

	Accepted     bool
	RejectReason string // empty when accepted
}

// Rejection reason codes.
const (
	RejectTerminalStatus = "terminal_status"
	RejectNoCashCards    = "no_cash_cards"
	RejectNoTokenCards   = "no_token_cards"
	RejectNotMonitoring  = "not_monitoring"
	RejectNotBought      = "not_bought"
)
