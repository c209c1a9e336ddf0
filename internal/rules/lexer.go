package rules

import (
	"strconv"
	"strings"
)

// tokenKind classifies lexer output.
type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenNumber
	tokenOp // comparison operator
	tokenAnd
	tokenOr
	tokenEOF
)

// token is one lexical unit of a condition.
type token struct {
	kind tokenKind
	pos  int     // byte offset of the token start
	text string  // original text
	num  float64 // populated for tokenNumber
}

// lexer splits condition text into tokens.
type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

// next returns the next token or a SyntaxError on unrecognized input.
func (l *lexer) next() (token, error) {
	l.skipSpaces()
	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]

	switch {
	case isOpChar(c):
		return l.lexOp(start)
	case isDigit(c) || c == '-' || c == '.':
		return l.lexNumber(start)
	case isIdentStart(c):
		return l.lexWord(start)
	}

	return token{}, &SyntaxError{Pos: start, Msg: "unexpected character " + strconv.QuoteRune(rune(c))}
}

func (l *lexer) skipSpaces() {
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t') {
		l.pos++
	}
}

func (l *lexer) lexOp(start int) (token, error) {
	// Two-character operators first: >=, <=, ==, !=
	if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
		op := l.input[l.pos : l.pos+2]
		l.pos += 2
		return token{kind: tokenOp, pos: start, text: op}, nil
	}

	op := l.input[l.pos : l.pos+1]
	l.pos++
	if op == ">" || op == "<" {
		return token{kind: tokenOp, pos: start, text: op}, nil
	}
	return token{}, &SyntaxError{Pos: start, Msg: "incomplete operator " + strconv.Quote(op)}
}

func (l *lexer) lexNumber(start int) (token, error) {
	for l.pos < len(l.input) && isNumberChar(l.input[l.pos]) {
		l.pos++
	}
	text := l.input[start:l.pos]
	num, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, &SyntaxError{Pos: start, Msg: "malformed number " + strconv.Quote(text)}
	}
	return token{kind: tokenNumber, pos: start, text: text, num: num}, nil
}

func (l *lexer) lexWord(start int) (token, error) {
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
	text := l.input[start:l.pos]

	// Keywords are case-insensitive; anything else is a factor name.
	if strings.EqualFold(text, "AND") {
		return token{kind: tokenAnd, pos: start, text: text}, nil
	}
	if strings.EqualFold(text, "OR") {
		return token{kind: tokenOr, pos: start, text: text}, nil
	}
	return token{kind: tokenIdent, pos: start, text: text}, nil
}

func isOpChar(c byte) bool {
	return c == '>' || c == '<' || c == '=' || c == '!'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNumberChar(c byte) bool {
	return isDigit(c) || c == '.' || c == '-' || c == 'e' || c == 'E' || c == '+'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
