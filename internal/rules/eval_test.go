package rules

import "testing"

func mustParse(t *testing.T, cond string) Expr {
	t.Helper()
	expr, err := Parse(cond)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", cond, err)
	}
	return expr
}

func TestEvaluate_RangeCondition(t *testing.T) {
	expr := mustParse(t, "earlyReturn > 50 AND earlyReturn < 150")

	cases := []struct {
		name    string
		factors map[string]float64
		want    bool
	}{
		{"inside range", map[string]float64{"earlyReturn": 80}, true},
		{"above range", map[string]float64{"earlyReturn": 200}, false},
		{"below range", map[string]float64{"earlyReturn": 10}, false},
		{"missing factor treated as zero", map[string]float64{}, false},
	}

	for _, tc := range cases {
		if got := Evaluate(expr, tc.factors); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEvaluate_MissingFactorNeverErrors(t *testing.T) {
	// Every referenced factor absent: all comparisons read zero.
	expr := mustParse(t, "trendScore >= 30 OR drawdown < -20 OR tokenAge != 0")

	// drawdown=0 is not < -20, trendScore=0 not >= 30, tokenAge=0 not != 0.
	if got := Evaluate(expr, map[string]float64{}); got {
		t.Errorf("expected false with empty snapshot, got true")
	}

	// Missing factor compares against 0, so `missing <= 0` holds.
	expr = mustParse(t, "missing <= 0")
	if got := Evaluate(expr, map[string]float64{"other": 1}); !got {
		t.Errorf("expected missing factor to read as zero")
	}
}

func TestEvaluate_ExactEquality(t *testing.T) {
	expr := mustParse(t, "trendPassed == 1")

	if !Evaluate(expr, map[string]float64{"trendPassed": 1}) {
		t.Errorf("expected equality to hold for exact value")
	}
	if Evaluate(expr, map[string]float64{"trendPassed": 0}) {
		t.Errorf("expected equality to fail for different value")
	}
}

func TestEvaluate_OrShortCircuitEquivalence(t *testing.T) {
	expr := mustParse(t, "a > 10 OR b > 10")

	cases := []struct {
		factors map[string]float64
		want    bool
	}{
		{map[string]float64{"a": 11}, true},
		{map[string]float64{"b": 11}, true},
		{map[string]float64{"a": 11, "b": 11}, true},
		{map[string]float64{"a": 1, "b": 1}, false},
	}
	for i, tc := range cases {
		if got := Evaluate(expr, tc.factors); got != tc.want {
			t.Errorf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

func TestEvaluate_DoesNotMutateSnapshot(t *testing.T) {
	expr := mustParse(t, "a > 1 AND missing < 5")
	factors := map[string]float64{"a": 2}

	Evaluate(expr, factors)

	if len(factors) != 1 {
		t.Errorf("snapshot mutated: %v", factors)
	}
}
