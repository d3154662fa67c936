package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Node is implemented only by the node kinds of this package: *Value,
// *Argument, *Assign, *BinaryOp, *Call and *FunctionDef.
type Node interface {
	// StaticValue reports the value of the node when it is known without a
	// context.
	StaticValue() (float32, bool)
	// Evaluate runs the node against ctx with args as the arguments of the
	// enclosing call. ok is false when there is no numeric result.
	Evaluate(ctx *Context, args []float32) (float32, bool)
	String() string
	node()
}

// Value is a literal or a variable substituted at parse time.
type Value struct {
	Number float32
}

// Argument is the Index-th parameter of the function body being evaluated.
type Argument struct {
	Index int
}

type Assign struct {
	Name string
	Expr Node
}

type BinaryOp struct {
	Op    Operator
	Left  Node
	Right Node
}

// Call keeps the body and arity the callee had when the call was parsed.
type Call struct {
	Name  string
	Arity int
	Body  Node
	Args  []Node
}

type FunctionDef struct {
	Name   string
	Params []string
	Arity  int
	Body   Node
}

func (*Value) node()       {}
func (*Argument) node()    {}
func (*Assign) node()      {}
func (*BinaryOp) node()    {}
func (*Call) node()        {}
func (*FunctionDef) node() {}

func (v *Value) StaticValue() (float32, bool) {
	return v.Number, true
}

func (v *Value) Evaluate(*Context, []float32) (float32, bool) {
	return v.Number, true
}

func (v *Value) String() string {
	return formatNumber(v.Number)
}

func (a *Argument) StaticValue() (float32, bool) {
	return 0, false
}

func (a *Argument) Evaluate(_ *Context, args []float32) (float32, bool) {
	if a.Index < 0 || a.Index >= len(args) {
		return 0, false
	}
	return args[a.Index], true
}

func (a *Argument) String() string {
	return fmt.Sprintf("$%d", a.Index)
}

func (a *Assign) StaticValue() (float32, bool) {
	return 0, false
}

// Evaluate stores the value only once the right hand side produced one.
func (a *Assign) Evaluate(ctx *Context, args []float32) (float32, bool) {
	v, ok := a.Expr.Evaluate(ctx, args)
	if !ok {
		return 0, false
	}
	ctx.UpdateVar(a.Name, v)
	return v, true
}

func (a *Assign) String() string {
	return fmt.Sprintf("%s = %s", a.Name, a.Expr)
}

func (b *BinaryOp) StaticValue() (float32, bool) {
	left, ok := b.Left.StaticValue()
	if !ok {
		return 0, false
	}
	right, ok := b.Right.StaticValue()
	if !ok {
		return 0, false
	}
	return b.Op.Eval(left, right), true
}

func (b *BinaryOp) Evaluate(ctx *Context, args []float32) (float32, bool) {
	left, ok := b.Left.Evaluate(ctx, args)
	if !ok {
		return 0, false
	}
	right, ok := b.Right.Evaluate(ctx, args)
	if !ok {
		return 0, false
	}
	return b.Op.Eval(left, right), true
}

func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func (c *Call) StaticValue() (float32, bool) {
	return 0, false
}

func (c *Call) Evaluate(ctx *Context, args []float32) (float32, bool) {
	values := make([]float32, 0, len(c.Args))
	for _, arg := range c.Args {
		v, ok := arg.Evaluate(ctx, args)
		if !ok {
			return 0, false
		}
		values = append(values, v)
	}
	if c.Body == nil {
		return 0, false
	}
	return c.Body.Evaluate(ctx, values)
}

func (c *Call) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		parts = append(parts, arg.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (f *FunctionDef) StaticValue() (float32, bool) {
	return 0, false
}

// Evaluate registers the function and never yields a value.
func (f *FunctionDef) Evaluate(ctx *Context, _ []float32) (float32, bool) {
	ctx.UpdateFunc(f)
	return 0, false
}

func (f *FunctionDef) String() string {
	head := append([]string{f.Name}, f.Params...)
	return fmt.Sprintf("%s => %s", strings.Join(head, " "), f.Body)
}

const valueTolerance = 0.001

// Equal compares two trees structurally. Values match within a small
// tolerance.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Value:
		y, ok := b.(*Value)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return sameNumber(x.Number, y.Number)
	case *Argument:
		y, ok := b.(*Argument)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return x.Index == y.Index
	case *Assign:
		y, ok := b.(*Assign)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return x.Name == y.Name && Equal(x.Expr, y.Expr)
	case *BinaryOp:
		y, ok := b.(*BinaryOp)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Call:
		y, ok := b.(*Call)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		if x.Name != y.Name || x.Arity != y.Arity || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *FunctionDef:
		y, ok := b.(*FunctionDef)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return x.Name == y.Name && x.Arity == y.Arity && Equal(x.Body, y.Body)
	default:
		return false
	}
}

func sameNumber(x, y float32) bool {
	if math.IsNaN(float64(x)) || math.IsNaN(float64(y)) {
		return math.IsNaN(float64(x)) && math.IsNaN(float64(y))
	}
	if x == y {
		return true
	}
	return math.Abs(float64(x)-float64(y)) < valueTolerance
}

func formatNumber(v float32) string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 32)
}

// FormatNumber renders v the way results are printed.
func FormatNumber(v float32) string {
	return formatNumber(v)
}
