// Package scheduler selects at most one firing rule per evaluation from
// an ordered rule set, honoring priorities, cooldowns and execution caps.
package scheduler

import (
	"fmt"
	"sort"

	"token-replay-lab/internal/domain"
	"token-replay-lab/internal/rules"
)

type compiledRule struct {
	rule  domain.Rule
	expr  rules.Expr
	order int // declaration position, breaks priority ties
}

// Scheduler holds an immutable, compiled rule set for one experiment.
// It is shared read-only across token workers.
type Scheduler struct {
	rules             []compiledRule
	defaultCooldownMs int64
}

// New compiles a rule set. Conditions are parsed here; a malformed
// condition aborts rule loading with the underlying *rules.SyntaxError,
// before any token is processed.
func New(ruleSet []domain.Rule, defaultCooldownMs int64) (*Scheduler, error) {
	compiled := make([]compiledRule, 0, len(ruleSet))
	seen := make(map[string]struct{}, len(ruleSet))

	for i, r := range ruleSet {
		if r.RuleID == "" {
			return nil, fmt.Errorf("rule %d: empty rule id", i)
		}
		if _, dup := seen[r.RuleID]; dup {
			return nil, fmt.Errorf("rule %q: duplicate rule id", r.RuleID)
		}
		seen[r.RuleID] = struct{}{}

		if !r.Action.Valid() {
			return nil, fmt.Errorf("rule %q: unknown action %q", r.RuleID, r.Action)
		}
		expr, err := rules.Parse(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.RuleID, err)
		}
		compiled = append(compiled, compiledRule{rule: r, expr: expr, order: i})
	}

	// Priority descending, declaration order on ties.
	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].rule.Priority != compiled[j].rule.Priority {
			return compiled[i].rule.Priority > compiled[j].rule.Priority
		}
		return compiled[i].order < compiled[j].order
	})

	return &Scheduler{rules: compiled, defaultCooldownMs: defaultCooldownMs}, nil
}

// Len returns the number of compiled rules.
func (s *Scheduler) Len() int {
	return len(s.rules)
}

// Evaluate walks the rule set in priority order and returns the first
// rule whose condition holds against the snapshot, or nil for "hold".
//
// A rule is skipped without evaluation when its cooldown has not elapsed
// (nowMs - lastFired < cooldown; firing exactly at the boundary is
// allowed) or its execution cap is reached. The winning rule is recorded
// in hist before Evaluate returns, so the at-most-one-firing-per-tick
// policy holds even if the caller aborts mid-transition.
func (s *Scheduler) Evaluate(snapshot map[string]float64, hist *History, nowMs int64) *domain.Rule {
	for i := range s.rules {
		cr := &s.rules[i]

		if last, ok := hist.LastFired(cr.rule.RuleID); ok {
			cooldown := cr.rule.CooldownMs
			if cooldown == 0 {
				cooldown = s.defaultCooldownMs
			}
			if nowMs-last < cooldown {
				continue
			}
		}
		if max := cr.rule.MaxExecutions; max != nil && hist.FireCount(cr.rule.RuleID) >= *max {
			continue
		}

		if rules.Evaluate(cr.expr, snapshot) {
			hist.record(cr.rule.RuleID, nowMs)
			fired := cr.rule
			return &fired
		}
	}
	return nil
}
