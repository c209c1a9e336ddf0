package scheduler

import (
	"testing"

	"token-replay-lab/internal/domain"
)

func intPtr(v int) *int { return &v }

func buyRule(id, condition string, priority int) domain.Rule {
	return domain.Rule{
		RuleID:    id,
		Action:    domain.ActionBuy,
		Condition: condition,
		Priority:  priority,
	}
}

func TestNew_RejectsMalformedCondition(t *testing.T) {
	_, err := New([]domain.Rule{buyRule("r1", "earlyReturn >", 1)}, 0)
	if err == nil {
		t.Fatalf("expected syntax error to surface at load time")
	}
}

func TestNew_RejectsDuplicateAndInvalid(t *testing.T) {
	if _, err := New([]domain.Rule{
		buyRule("r1", "a > 1", 1),
		buyRule("r1", "b > 1", 2),
	}, 0); err == nil {
		t.Errorf("expected duplicate rule id error")
	}

	bad := buyRule("r2", "a > 1", 1)
	bad.Action = domain.Action("short")
	if _, err := New([]domain.Rule{bad}, 0); err == nil {
		t.Errorf("expected unknown action error")
	}
}

func TestEvaluate_PriorityOrderAndDeclarationTies(t *testing.T) {
	s, err := New([]domain.Rule{
		buyRule("low", "a > 0", 1),
		buyRule("tie-first", "a > 0", 5),
		buyRule("tie-second", "a > 0", 5),
	}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	fired := s.Evaluate(map[string]float64{"a": 1}, NewHistory(), 1000)
	if fired == nil {
		t.Fatalf("expected a firing")
	}
	if fired.RuleID != "tie-first" {
		t.Errorf("expected tie-first (highest priority, declared first), got %s", fired.RuleID)
	}
}

func TestEvaluate_AtMostOneFiringPerTick(t *testing.T) {
	s, err := New([]domain.Rule{
		buyRule("r1", "a > 0", 2),
		buyRule("r2", "a > 0", 1),
	}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hist := NewHistory()
	fired := s.Evaluate(map[string]float64{"a": 1}, hist, 1000)
	if fired == nil || fired.RuleID != "r1" {
		t.Fatalf("expected r1 to fire, got %v", fired)
	}
	// r2 matched too but evaluation stopped at r1.
	if hist.FireCount("r2") != 0 {
		t.Errorf("r2 must not have been recorded")
	}
}

func TestEvaluate_CooldownProperty(t *testing.T) {
	rule := buyRule("r1", "a > 0", 1)
	rule.CooldownMs = 60_000
	s, err := New([]domain.Rule{rule}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hist := NewHistory()
	snapshot := map[string]float64{"a": 1}

	// Two ticks 10s apart: at most one firing.
	first := s.Evaluate(snapshot, hist, 1_000_000)
	second := s.Evaluate(snapshot, hist, 1_010_000)
	if first == nil {
		t.Fatalf("expected first tick to fire")
	}
	if second != nil {
		t.Errorf("expected second tick suppressed by cooldown")
	}

	// Exactly at the boundary the rule may fire again.
	third := s.Evaluate(snapshot, hist, 1_060_000)
	if third == nil {
		t.Errorf("expected firing exactly at cooldown boundary")
	}
}

func TestEvaluate_DefaultCooldownApplies(t *testing.T) {
	s, err := New([]domain.Rule{buyRule("r1", "a > 0", 1)}, 30_000)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hist := NewHistory()
	snapshot := map[string]float64{"a": 1}

	if s.Evaluate(snapshot, hist, 0) == nil {
		t.Fatalf("expected first firing")
	}
	if s.Evaluate(snapshot, hist, 10_000) != nil {
		t.Errorf("expected default cooldown to suppress")
	}
	if s.Evaluate(snapshot, hist, 30_000) == nil {
		t.Errorf("expected firing after default cooldown")
	}
}

func TestEvaluate_MaxExecutionsCap(t *testing.T) {
	rule := buyRule("r1", "a > 0", 1)
	rule.MaxExecutions = intPtr(2)
	s, err := New([]domain.Rule{rule}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hist := NewHistory()
	snapshot := map[string]float64{"a": 1}

	fires := 0
	for tick := int64(0); tick < 5; tick++ {
		if s.Evaluate(snapshot, hist, tick*1000) != nil {
			fires++
		}
	}
	if fires != 2 {
		t.Errorf("expected exactly 2 firings, got %d", fires)
	}
}

func TestHistory_RestoreCountsTowardCapAndCooldown(t *testing.T) {
	rule := buyRule("r1", "a > 0", 1)
	rule.MaxExecutions = intPtr(2)
	rule.CooldownMs = 5000
	s, err := New([]domain.Rule{rule}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hist := NewHistory()
	hist.Restore("r1", 1000)

	if got := hist.FireCount("r1"); got != 1 {
		t.Errorf("expected restored count 1, got %d", got)
	}
	if last, ok := hist.LastFired("r1"); !ok || last != 1000 {
		t.Errorf("expected restored lastFired=1000, got %d ok=%v", last, ok)
	}

	snapshot := map[string]float64{"a": 1}

	// Inside the cooldown window of the restored firing.
	if fired := s.Evaluate(snapshot, hist, 3000); fired != nil {
		t.Errorf("expected cooldown skip after restore, got %s", fired.RuleID)
	}
	// Past the cooldown, one execution remains.
	if fired := s.Evaluate(snapshot, hist, 7000); fired == nil {
		t.Fatalf("expected second execution after cooldown")
	}
	if fired := s.Evaluate(snapshot, hist, 20000); fired != nil {
		t.Errorf("expected cap reached, got %s", fired.RuleID)
	}
}

func TestEvaluate_SkippedRuleLetsLowerPriorityFire(t *testing.T) {
	capped := buyRule("capped", "a > 0", 10)
	capped.MaxExecutions = intPtr(1)
	fallback := buyRule("fallback", "a > 0", 1)

	s, err := New([]domain.Rule{capped, fallback}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	hist := NewHistory()
	snapshot := map[string]float64{"a": 1}

	first := s.Evaluate(snapshot, hist, 1000)
	second := s.Evaluate(snapshot, hist, 2000)

	if first == nil || first.RuleID != "capped" {
		t.Fatalf("expected capped rule first, got %v", first)
	}
	if second == nil || second.RuleID != "fallback" {
		t.Errorf("expected fallback after cap reached, got %v", second)
	}
}

func TestEvaluate_NoMatchMeansHold(t *testing.T) {
	s, err := New([]domain.Rule{buyRule("r1", "a > 100", 1)}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if fired := s.Evaluate(map[string]float64{"a": 1}, NewHistory(), 1000); fired != nil {
		t.Errorf("expected nil (hold), got %v", fired)
	}
}

func TestEvaluate_HistoriesAreIndependentPerToken(t *testing.T) {
	rule := buyRule("r1", "a > 0", 1)
	rule.CooldownMs = 60_000
	s, err := New([]domain.Rule{rule}, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	snapshot := map[string]float64{"a": 1}
	histA := NewHistory()
	histB := NewHistory()

	if s.Evaluate(snapshot, histA, 1000) == nil {
		t.Fatalf("token A should fire")
	}
	// Token B has its own history; A's cooldown does not apply.
	if s.Evaluate(snapshot, histB, 2000) == nil {
		t.Errorf("token B should fire independently")
	}
}
