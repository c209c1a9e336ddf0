package scheduler

// History tracks rule firings for ONE token. It is owned by that token's
// processing line along with the rest of the per-token context, so access
// is structurally single-threaded and needs no locking.
type History struct {
	byRule map[string]*firing
}

type firing struct {
	lastFiredMs int64
	fireCount   int
}

// NewHistory creates an empty execution history.
func NewHistory() *History {
	return &History{byRule: make(map[string]*firing)}
}

// LastFired returns the timestamp of the rule's most recent firing.
// ok is false if the rule has never fired for this token.
func (h *History) LastFired(ruleID string) (lastMs int64, ok bool) {
	f, exists := h.byRule[ruleID]
	if !exists {
		return 0, false
	}
	return f.lastFiredMs, true
}

// FireCount returns how many times the rule has fired for this token.
func (h *History) FireCount(ruleID string) int {
	f, exists := h.byRule[ruleID]
	if !exists {
		return 0
	}
	return f.fireCount
}

// Restore registers a firing that happened on an earlier run. Callers
// rebuilding a history from a durable signal log feed firings in
// chronological order so the last restored timestamp wins.
func (h *History) Restore(ruleID string, firedMs int64) {
	h.record(ruleID, firedMs)
}

// record registers a firing. Called by the scheduler immediately when a
// rule fires, before the firing is returned to the caller.
func (h *History) record(ruleID string, nowMs int64) {
	f, exists := h.byRule[ruleID]
	if !exists {
		f = &firing{}
		h.byRule[ruleID] = f
	}
	f.lastFiredMs = nowMs
	f.fireCount++
}
