package calc

import (
	"errors"
	"testing"
)

func mustParse(t *testing.T, line string, ctx *Context) Node {
	t.Helper()
	node, err := ParseLine(line, ctx)
	if err != nil {
		t.Fatalf("%q: parse failed: %v", line, err)
	}
	return node
}

func expectCode(t *testing.T, line string, ctx *Context, code ErrorCode) {
	t.Helper()
	_, err := ParseLine(line, ctx)
	if err == nil {
		t.Fatalf("%q: expected %s, parse succeeded", line, code)
	}
	var calcErr *CalcError
	if !errors.As(err, &calcErr) {
		t.Fatalf("%q: expected CalcError, got %T", line, err)
	}
	if calcErr.Code != code {
		t.Fatalf("%q: expected %s, got %s (%v)", line, code, calcErr.Code, err)
	}
}

func TestParseNumber(t *testing.T) {
	node := mustParse(t, "10", NewContext())
	if !Equal(node, &Value{Number: 10}) {
		t.Fatalf("expected 10, got %s", node)
	}
}

func TestParseAssignment(t *testing.T) {
	node := mustParse(t, "a = 10 + 2", NewContext())
	expected := &Assign{Name: "a", Expr: &Value{Number: 12}}
	if !Equal(node, expected) {
		t.Fatalf("expected %s, got %s", expected, node)
	}

	node = mustParse(t, "2 + a = 10", NewContext())
	nested := &BinaryOp{
		Op:    Add,
		Left:  &Value{Number: 2},
		Right: &Assign{Name: "a", Expr: &Value{Number: 10}},
	}
	if !Equal(node, nested) {
		t.Fatalf("expected %s, got %s", nested, node)
	}
}

func TestParseConstantFolding(t *testing.T) {
	tests := []struct {
		line     string
		expected float32
	}{
		{"10 * 2", 20},
		{"10 / 2", 5},
		{"10 % 2", 0},
		{"11 % 2 * 5 / 3", float32(5) / float32(3)},
		{"10 + 2", 12},
		{"10 - 2", 8},
		{"11 + 2 - 5", 8},
		{"10 * 3 - 6 / 2", 27},
		{"(1 + 2) * 3", 9},
		{"2 * (3 + 4) - 1", 13},
		{"((7))", 7},
	}
	for _, tt := range tests {
		node := mustParse(t, tt.line, NewContext())
		v, ok := node.(*Value)
		if !ok {
			t.Fatalf("%q: expected folded value, got %s", tt.line, node)
		}
		if !sameNumber(v.Number, tt.expected) {
			t.Fatalf("%q: expected %v, got %v", tt.line, tt.expected, v.Number)
		}
	}
}

func TestParseFoldedTreesAreEqual(t *testing.T) {
	left := mustParse(t, "10 + 2", NewContext())
	right := mustParse(t, "12", NewContext())
	if !Equal(left, right) {
		t.Fatalf("expected %s and %s to be equal", left, right)
	}
	if v, _ := left.StaticValue(); v != 12 {
		t.Fatalf("expected static value 12, got %v", v)
	}
}

func TestParseSubstitutesVariablesEagerly(t *testing.T) {
	ctx := NewContext()
	ctx.UpdateVar("a", 1)
	node := mustParse(t, "a + 1", ctx)
	if !Equal(node, &Value{Number: 2}) {
		t.Fatalf("expected folded 2, got %s", node)
	}
	ctx.UpdateVar("a", 5)
	if v, ok := node.Evaluate(ctx, nil); !ok || v != 2 {
		t.Fatalf("expected the parsed tree to keep 2, got %v", v)
	}
}

func TestParseFunctionDefinition(t *testing.T) {
	node := mustParse(t, "add x y => x + y", NewContext())
	expected := &FunctionDef{
		Name:   "add",
		Params: []string{"x", "y"},
		Arity:  2,
		Body: &BinaryOp{
			Op:    Add,
			Left:  &Argument{Index: 0},
			Right: &Argument{Index: 1},
		},
	}
	if !Equal(node, expected) {
		t.Fatalf("expected %s, got %s", expected, node)
	}
}

func TestParseCall(t *testing.T) {
	ctx := NewContext()
	ctx.UpdateFunc(mustParse(t, "add x y => x + y", ctx).(*FunctionDef))

	node := mustParse(t, "add 3 4", ctx)
	call, ok := node.(*Call)
	if !ok || call.Name != "add" || len(call.Args) != 2 {
		t.Fatalf("expected call to add with 2 arguments, got %s", node)
	}
	if v, ok := node.Evaluate(ctx, nil); !ok || v != 7 {
		t.Fatalf("expected 7, got %v", v)
	}

	node = mustParse(t, "add add 1 2 3", ctx)
	if v, _ := node.Evaluate(ctx, nil); v != 6 {
		t.Fatalf("expected nested call to yield 6, got %v", v)
	}

	node = mustParse(t, "add 1 2 * 3", ctx)
	if v, _ := node.Evaluate(ctx, nil); v != 7 {
		t.Fatalf("expected second argument 2 * 3, got %v", v)
	}
}

func TestParseCallArityMismatch(t *testing.T) {
	ctx := NewContext()
	ctx.UpdateFunc(mustParse(t, "add x y => x + y", ctx).(*FunctionDef))
	expectCode(t, "add 1", ctx, ErrCodeUnexpectedToken)
	expectCode(t, "add 1 2 3", ctx, ErrCodeTrailingInput)
}

func TestParseTrailingInput(t *testing.T) {
	expectCode(t, "10 10", NewContext(), ErrCodeTrailingInput)
	expectCode(t, "(1))", NewContext(), ErrCodeTrailingInput)
}

func TestParseUnexpectedTokens(t *testing.T) {
	ctx := NewContext()
	expectCode(t, "(1 + 2", ctx, ErrCodeUnexpectedToken)
	expectCode(t, "1 +", ctx, ErrCodeUnexpectedToken)
	expectCode(t, "", ctx, ErrCodeUnexpectedToken)
	expectCode(t, "* 2", ctx, ErrCodeUnexpectedToken)
	expectCode(t, "=> 1", ctx, ErrCodeUnexpectedToken)
	expectCode(t, "f x 3 => x", ctx, ErrCodeUnexpectedToken)
	expectCode(t, "1 + f => 2", ctx, ErrCodeUnexpectedToken)
}

func TestParseUnresolvedSymbols(t *testing.T) {
	ctx := NewContext()
	expectCode(t, "y", ctx, ErrCodeUnresolvedSymbol)
	expectCode(t, "1 + y", ctx, ErrCodeUnresolvedSymbol)

	ctx.UpdateVar("z", 3)
	expectCode(t, "f x => x + z", ctx, ErrCodeUnresolvedSymbol)

	ctx.UpdateFunc(&FunctionDef{Name: "g", Body: &Value{Number: 1}})
	expectCode(t, "1 + g", ctx, ErrCodeUnresolvedSymbol)
}

func TestParseIllegalAssignment(t *testing.T) {
	ctx := NewContext()
	ctx.UpdateFunc(&FunctionDef{Name: "f", Arity: 0, Body: &Value{Number: 1}})
	expectCode(t, "f = 3", ctx, ErrCodeIllegalAssignment)

	ctx.UpdateVar("a", 1)
	expectCode(t, "a x => x", ctx, ErrCodeIllegalAssignment)
}

func TestParseFunctionBodyCallsOtherFunctions(t *testing.T) {
	ctx := NewContext()
	ctx.UpdateFunc(mustParse(t, "double x => x * 2", ctx).(*FunctionDef))
	def := mustParse(t, "quad x => double double x", ctx).(*FunctionDef)
	ctx.UpdateFunc(def)
	node := mustParse(t, "quad 3", ctx)
	if v, _ := node.Evaluate(ctx, nil); v != 12 {
		t.Fatalf("expected 12, got %v", v)
	}
}

func TestParseFunctionCannotRecurse(t *testing.T) {
	expectCode(t, "loop x => loop x", NewContext(), ErrCodeUnresolvedSymbol)
}

func TestParseDepthLimit(t *testing.T) {
	tokens, err := Collect("((((1))))")
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	p := NewParser(tokens, NewContext())
	p.SetMaxDepth(3)
	_, err = p.Parse()
	var calcErr *CalcError
	if !errors.As(err, &calcErr) || calcErr.Code != ErrCodeDepthExceeded {
		t.Fatalf("expected ErrCodeDepthExceeded, got %v", err)
	}

	p = NewParser(tokens, NewContext())
	p.SetMaxDepth(0)
	if _, err := p.Parse(); err != nil {
		t.Fatalf("expected no limit with depth 0, got %v", err)
	}
}
