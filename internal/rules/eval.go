package rules

// Evaluate runs a parsed condition against a factor snapshot.
//
// Factors absent from the snapshot evaluate as 0, never as an error.
// This is deliberate: a strategy referencing a factor that is not yet
// computed degrades to "condition false" instead of crashing the run.
//
// Pure function of (expr, factors); never mutates the snapshot.
func Evaluate(expr Expr, factors map[string]float64) bool {
	return expr.eval(factors)
}

func (c *Comparison) eval(factors map[string]float64) bool {
	// Missing factors read as the zero value by design.
	v := factors[c.Factor]

	// Float comparison throughout. == and != compare raw float64s;
	// strategy authors referencing derived factors should prefer
	// range checks over exact equality.
	switch c.Op {
	case OpGT:
		return v > c.Value
	case OpLT:
		return v < c.Value
	case OpGE:
		return v >= c.Value
	case OpLE:
		return v <= c.Value
	case OpEQ:
		return v == c.Value
	case OpNE:
		return v != c.Value
	}
	return false
}

func (b *Binary) eval(factors map[string]float64) bool {
	left := b.Left.eval(factors)
	if b.Op == LogicAnd {
		return left && b.Right.eval(factors)
	}
	return left || b.Right.eval(factors)
}

// ReferencedFactors returns the distinct factor names a condition reads,
// in first-appearance order. Used for diagnostics and report output.
func ReferencedFactors(expr Expr) []string {
	var names []string
	seen := make(map[string]struct{})
	collectFactors(expr, &names, seen)
	return names
}

func collectFactors(expr Expr, names *[]string, seen map[string]struct{}) {
	switch e := expr.(type) {
	case *Comparison:
		if _, ok := seen[e.Factor]; !ok {
			seen[e.Factor] = struct{}{}
			*names = append(*names, e.Factor)
		}
	case *Binary:
		collectFactors(e.Left, names, seen)
		collectFactors(e.Right, names, seen)
	}
}
