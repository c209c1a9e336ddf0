package rules

// CompareOp is a numeric comparison operator.
type CompareOp string

// Comparison operators.
const (
	OpGT CompareOp = ">"
	OpLT CompareOp = "<"
	OpGE CompareOp = ">="
	OpLE CompareOp = "<="
	OpEQ CompareOp = "=="
	OpNE CompareOp = "!="
)

// LogicOp joins two comparisons.
type LogicOp string

// Logical connectives.
const (
	LogicAnd LogicOp = "AND"
	LogicOr  LogicOp = "OR"
)

// Expr is a parsed condition. Implementations are Comparison and Binary.
type Expr interface {
	eval(factors map[string]float64) bool
}

// Comparison is a single `<factor> <op> <literal>` leaf.
type Comparison struct {
	Factor string
	Op     CompareOp
	Value  float64
}

// Binary joins two sub-expressions with AND or OR.
type Binary struct {
	Op    LogicOp
	Left  Expr
	Right Expr
}

// Parse turns condition text into an Expr.
//
// Grammar: comparisons of the form `factor op number` with
// op ∈ {>, <, >=, <=, ==, !=}, chained by AND/OR (case-insensitive).
// Chains fold strictly left to right with NO operator precedence:
// `a OR b AND c` parses as `(a OR b) AND c`. The grammar has no
// parentheses, so left-to-right is the only reading a strategy author
// can verify by inspection.
//
// Malformed input returns a *SyntaxError. Callers must surface it;
// a condition that does not parse aborts rule loading.
func Parse(text string) (Expr, error) {
	p := &parser{lex: newLexer(text)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	expr, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.cur.kind == tokenAnd || p.cur.kind == tokenOr {
		op := LogicAnd
		if p.cur.kind == tokenOr {
			op = LogicOr
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		expr = &Binary{Op: op, Left: expr, Right: right}
	}

	if p.cur.kind != tokenEOF {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expected AND, OR or end of condition, got " + p.cur.text}
	}
	return expr, nil
}

type parser struct {
	lex *lexer
	cur token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) parseComparison() (Expr, error) {
	if p.cur.kind != tokenIdent {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expected factor name, got " + describe(p.cur)}
	}
	factor := p.cur.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.kind != tokenOp {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expected comparison operator, got " + describe(p.cur)}
	}
	op, ok := compareOp(p.cur.text)
	if !ok {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "unknown operator " + p.cur.text}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.kind != tokenNumber {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expected numeric literal, got " + describe(p.cur)}
	}
	value := p.cur.num
	if err := p.advance(); err != nil {
		return nil, err
	}

	return &Comparison{Factor: factor, Op: op, Value: value}, nil
}

func compareOp(text string) (CompareOp, bool) {
	switch CompareOp(text) {
	case OpGT, OpLT, OpGE, OpLE, OpEQ, OpNE:
		return CompareOp(text), true
	}
	return "", false
}

func describe(t token) string {
	if t.kind == tokenEOF {
		return "end of condition"
	}
	return t.text
}
