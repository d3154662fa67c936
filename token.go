package calc

import (
	"fmt"
	"math"
	"strconv"
)

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	IDENT    = "IDENT"
	NUMBER   = "NUMBER"
	OPERATOR = "OPERATOR"
	LPAREN   = "("
	RPAREN   = ")"

	// ASSIGN carries the assigned name in Literal: `x =` is a single token.
	ASSIGN = "ASSIGN"
	ARROW  = "=>"
)

type Operator int

const (
	Add Operator = iota + 1
	Sub
	Mul
	Div
	Mod
)

var operators = map[byte]Operator{
	'+': Add,
	'-': Sub,
	'*': Mul,
	'/': Div,
	'%': Mod,
}

// Priority drives precedence climbing. Atomic and bracketed expressions have
// priority 0.
func (op Operator) Priority() int {
	switch op {
	case Add, Sub:
		return 1
	case Mul, Div, Mod:
		return 2
	default:
		return 0
	}
}

// Eval applies the operator. Mod works on the operands truncated to int64, not
// on the floating values.
func (op Operator) Eval(left, right float32) float32 {
	switch op {
	case Add:
		return left + right
	case Sub:
		return left - right
	case Mul:
		return left * right
	case Div:
		return left / right
	case Mod:
		l, r := truncate(left), truncate(right)
		if r == 0 {
			return float32(math.NaN())
		}
		return float32(l % r)
	default:
		return float32(math.NaN())
	}
}

func (op Operator) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	default:
		return "?"
	}
}

// truncate converts toward zero, saturating at the int64 bounds. NaN becomes 0.
func truncate(v float32) int64 {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

type Token struct {
	Type    TokenType
	Literal string
	Number  float32
	Op      Operator
	Column  int
}

func (t Token) Is(kind TokenType) bool {
	return t.Type == kind
}

// Same compares two tokens ignoring their position.
func (t Token) Same(other Token) bool {
	return t.Type == other.Type && t.Literal == other.Literal && t.Number == other.Number && t.Op == other.Op
}

func (t Token) String() string {
	switch t.Type {
	case IDENT:
		return fmt.Sprintf("Id(%s)", t.Literal)
	case NUMBER:
		return fmt.Sprintf("Number(%s)", strconv.FormatFloat(float64(t.Number), 'f', -1, 32))
	case OPERATOR:
		return fmt.Sprintf("Operator(%s)", t.Op)
	case ASSIGN:
		return fmt.Sprintf("Assign(%s)", t.Literal)
	case LPAREN, RPAREN, ARROW:
		return fmt.Sprintf("`%s`", string(t.Type))
	case EOF:
		return "end of input"
	default:
		return fmt.Sprintf("Token(%s, %q)", t.Type, t.Literal)
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isIdentifierChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch)
}

func isNumberChar(ch byte) bool {
	return isDigit(ch) || ch == '.'
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\v' || ch == '\f'
}
