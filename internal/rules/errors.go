package rules

import "fmt"

// SyntaxError reports a malformed rule condition. It is fatal at load
// time: a condition that does not parse aborts the run before any token
// is processed, it is never downgraded to "rule never fires".
type SyntaxError struct {
	Pos int // byte offset into the condition text
	Msg string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}
