package calc

import (
	sterrors "errors"
	"iter"
	"strconv"
	"strings"
)

// NextToken matches a single token at the start of src, which must not start
// with whitespace. Matchers run in a fixed order: assignment, identifier,
// number, arrow, then single character operators and brackets. ok is false
// when src is empty.
func NextToken(src string) (rest string, tok Token, ok bool, err error) {
	if src == "" {
		return "", Token{Type: EOF}, false, nil
	}
	if tail, name, matched := matchAssignment(src); matched {
		return tail, Token{Type: ASSIGN, Literal: name}, true, nil
	}
	if tail, name, matched := matchIdentifier(src); matched {
		return tail, Token{Type: IDENT, Literal: name}, true, nil
	}
	tail, literal, value, matched, err := matchNumber(src)
	if err != nil {
		return src, Token{}, false, err
	}
	if matched {
		return tail, Token{Type: NUMBER, Literal: literal, Number: value}, true, nil
	}
	if strings.HasPrefix(src, "=>") {
		return src[2:], Token{Type: ARROW, Literal: "=>"}, true, nil
	}
	ch := src[0]
	switch {
	case ch == '(':
		tok = Token{Type: LPAREN, Literal: "("}
	case ch == ')':
		tok = Token{Type: RPAREN, Literal: ")"}
	case operators[ch] != 0:
		tok = Token{Type: OPERATOR, Literal: string(ch), Op: operators[ch]}
	default:
		return src, Token{}, false, lexError(nil, "invalid token: %s", src)
	}
	return src[1:], tok, true, nil
}

func matchIdentifier(src string) (string, string, bool) {
	if src == "" || !isLetter(src[0]) {
		return src, "", false
	}
	end := 1
	for end < len(src) && isIdentifierChar(src[end]) {
		end++
	}
	return src[end:], src[:end], true
}

// matchAssignment consumes `name =` but leaves `name =>` alone.
func matchAssignment(src string) (string, string, bool) {
	tail, name, ok := matchIdentifier(src)
	if !ok {
		return src, "", false
	}
	tail = trimLeft(tail)
	if strings.HasPrefix(tail, "=") && !strings.HasPrefix(tail, "=>") {
		return tail[1:], name, true
	}
	return src, "", false
}

func matchNumber(src string) (string, string, float32, bool, error) {
	end := 0
	for end < len(src) && isNumberChar(src[end]) {
		end++
	}
	if end == 0 {
		return src, "", 0, false, nil
	}
	literal := src[:end]
	if strings.Count(literal, ".") > 1 {
		return src, literal, 0, false, lexError(errMultipleDecimalPoints, "invalid number: %s", literal)
	}
	// Out of range literals saturate to ±Inf like any other float32 overflow.
	value, err := strconv.ParseFloat(literal, 32)
	if err != nil && !sterrors.Is(err, strconv.ErrRange) {
		return src, literal, 0, false, lexError(err, "invalid number: %s", literal)
	}
	return src[end:], literal, float32(value), true, nil
}

func trimLeft(s string) string {
	i := 0
	for i < len(s) && isWhitespace(s[i]) {
		i++
	}
	return s[i:]
}

// Lexer walks a single line. It stops for good after the first error.
type Lexer struct {
	input string
	rest  string
	done  bool
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input, rest: input}
}

func (l *Lexer) column() int {
	return len(l.input) - len(l.rest) + 1
}

// Next returns the next token. ok is false at end of input or once an error
// was reported.
func (l *Lexer) Next() (Token, bool, error) {
	if l.done {
		return Token{Type: EOF, Column: l.column()}, false, nil
	}
	l.rest = trimLeft(l.rest)
	column := l.column()
	rest, tok, ok, err := NextToken(l.rest)
	if err != nil {
		l.done = true
		if ce, isCalc := err.(*CalcError); isCalc {
			ce.Details = append(ce.Details, "column "+strconv.Itoa(column))
		}
		l.rest = ""
		return Token{}, false, err
	}
	if !ok {
		l.done = true
		return Token{Type: EOF, Column: column}, false, nil
	}
	tok.Column = column
	l.rest = rest
	return tok, true, nil
}

// Tokenize lazily lexes line. The sequence ends after the last token, or right
// after the first error. Ranging over it a second time yields nothing.
func Tokenize(line string) iter.Seq2[Token, error] {
	l := NewLexer(line)
	return func(yield func(Token, error) bool) {
		for {
			tok, ok, err := l.Next()
			if err != nil {
				yield(Token{}, err)
				return
			}
			if !ok {
				return
			}
			if !yield(tok, nil) {
				return
			}
		}
	}
}

// Collect drains Tokenize, returning the first error if any.
func Collect(line string) ([]Token, error) {
	var tokens []Token
	for tok, err := range Tokenize(line) {
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
