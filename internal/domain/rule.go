package domain

// Action is what a fired rule asks the lifecycle machine to do.
type Action string

// Action constants.
const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Valid reports whether a is a recognized action.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

// Rule is one entry of a strategy's rule set. Rules are immutable once
// loaded for an evaluation session.
type Rule struct {
	RuleID     string // unique within the rule set
	Action     Action
	Condition  string // boolean expression over factor names
	Priority   int    // higher fires first; ties broken by declaration order
	CooldownMs int64  // minimum ms between firings for the same token

	// MaxExecutions caps firings per (token, rule). Nil means unlimited.
	MaxExecutions *int
}
