package calc

import (
	"sort"
)

type SymbolKind string

const (
	VariableSymbol SymbolKind = "variable"
	FunctionSymbol SymbolKind = "function"
	ArgumentSymbol SymbolKind = "argument"
)

// Symbol is a tagged union: Value is meaningful for variables, Arity and Body
// for functions, Index for arguments.
type Symbol struct {
	Kind  SymbolKind
	Value float32
	Arity int
	Body  Node
	Index int
}

// NamedSymbol is a Symbol together with the name it is bound to.
type NamedSymbol struct {
	Name string
	Symbol
}

// Context is the symbol table a session parses and evaluates against. It has a
// single owner and is not safe for concurrent use.
type Context struct {
	symbols map[string]Symbol
}

func NewContext() *Context {
	return &Context{
		symbols: make(map[string]Symbol),
	}
}

// FunctionContext builds the scope a function body is parsed in: every function
// of parent plus one argument per parameter. Variables of parent are not
// visible.
func FunctionContext(params []string, parent *Context) *Context {
	ctx := NewContext()
	if parent != nil {
		for name, sym := range parent.symbols {
			if sym.Kind == FunctionSymbol {
				ctx.symbols[name] = sym
			}
		}
	}
	for i, name := range params {
		ctx.symbols[name] = Symbol{Kind: ArgumentSymbol, Index: i}
	}
	return ctx
}

// UpdateVar stores value under name. A name bound to a function or argument
// keeps its binding and the value is dropped.
func (ctx *Context) UpdateVar(name string, value float32) {
	sym, ok := ctx.symbols[name]
	if ok && sym.Kind != VariableSymbol {
		return
	}
	ctx.symbols[name] = Symbol{Kind: VariableSymbol, Value: value}
}

// UpdateFunc registers fn, replacing whatever name was bound to.
func (ctx *Context) UpdateFunc(fn *FunctionDef) {
	ctx.symbols[fn.Name] = Symbol{Kind: FunctionSymbol, Arity: fn.Arity, Body: fn.Body}
}

// IsVar reports whether name may be assigned to. Unknown names are assignable.
func (ctx *Context) IsVar(name string) bool {
	sym, ok := ctx.symbols[name]
	return !ok || sym.Kind != FunctionSymbol
}

// IsFunc reports whether name may be treated as a function. Unknown names
// qualify as well.
func (ctx *Context) IsFunc(name string) bool {
	sym, ok := ctx.symbols[name]
	return !ok || sym.Kind == FunctionSymbol
}

func (ctx *Context) lookup(name string, kind SymbolKind) (Symbol, bool) {
	sym, ok := ctx.symbols[name]
	if !ok || sym.Kind != kind {
		return Symbol{}, false
	}
	return sym, true
}

func (ctx *Context) GetVar(name string) (float32, bool) {
	sym, ok := ctx.lookup(name, VariableSymbol)
	return sym.Value, ok
}

func (ctx *Context) GetArg(name string) (int, bool) {
	sym, ok := ctx.lookup(name, ArgumentSymbol)
	return sym.Index, ok
}

func (ctx *Context) GetArity(name string) (int, bool) {
	sym, ok := ctx.lookup(name, FunctionSymbol)
	return sym.Arity, ok
}

func (ctx *Context) GetFunc(name string) (Node, bool) {
	sym, ok := ctx.lookup(name, FunctionSymbol)
	return sym.Body, ok
}

func (ctx *Context) Len() int {
	return len(ctx.symbols)
}

// Symbols returns a snapshot sorted by name.
func (ctx *Context) Symbols() []NamedSymbol {
	list := make([]NamedSymbol, 0, len(ctx.symbols))
	for name, sym := range ctx.symbols {
		list = append(list, NamedSymbol{Name: name, Symbol: sym})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}
