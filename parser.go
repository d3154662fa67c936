package calc

const (
	lowestPriority  = 1
	highestPriority = 2
)

// Parser turns the tokens of one line into a tree. Identifiers are resolved
// against the context while parsing, so the same tokens may parse differently
// once the context changed.
type Parser struct {
	tokens   []Token
	position int
	ctx      *Context
	depth    int
	maxDepth int
}

func NewParser(tokens []Token, ctx *Context) *Parser {
	return &Parser{
		tokens:   tokens,
		ctx:      ctx,
		maxDepth: GetRuntimeConfig().MaxExpressionDepth,
	}
}

// Parse parses tokens as either a function definition, when an arrow occurs
// anywhere in them, or a single call expression.
func Parse(tokens []Token, ctx *Context) (Node, error) {
	return NewParser(tokens, ctx).Parse()
}

// ParseLine lexes and parses line.
func ParseLine(line string, ctx *Context) (Node, error) {
	tokens, err := Collect(line)
	if err != nil {
		return nil, err
	}
	return Parse(tokens, ctx)
}

func (p *Parser) SetMaxDepth(depth int) {
	p.maxDepth = depth
}

func (p *Parser) curToken() Token {
	if p.position < len(p.tokens) {
		return p.tokens[p.position]
	}
	column := 1
	if n := len(p.tokens); n > 0 {
		column = p.tokens[n-1].Column + 1
	}
	return Token{Type: EOF, Column: column}
}

func (p *Parser) nextToken() {
	if p.position < len(p.tokens) {
		p.position++
	}
}

func (p *Parser) expect(t TokenType, what string) error {
	tok := p.curToken()
	if !tok.Is(t) {
		return unexpected(tok, what)
	}
	p.nextToken()
	return nil
}

func (p *Parser) enter() error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		return newError(ErrCodeDepthExceeded, "expression nested deeper than %d levels", p.maxDepth)
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) hasArrow() bool {
	for _, tok := range p.tokens {
		if tok.Is(ARROW) {
			return true
		}
	}
	return false
}

func (p *Parser) Parse() (Node, error) {
	var (
		node Node
		err  error
	)
	if p.hasArrow() {
		node, err = p.parseFunctionDefinition()
	} else {
		node, err = p.parseCallExpression()
	}
	if err != nil {
		return nil, err
	}
	if tok := p.curToken(); !tok.Is(EOF) {
		e := newError(ErrCodeTrailingInput, "input not fully consumed: %s at column %d", tok, tok.Column)
		for _, rest := range p.tokens[p.position:] {
			e.Details = append(e.Details, rest.String())
		}
		return nil, e
	}
	return node, nil
}

func (p *Parser) parseFunctionDefinition() (Node, error) {
	tok := p.curToken()
	if !tok.Is(IDENT) {
		return nil, unexpected(tok, "function name")
	}
	name := tok.Literal
	if !p.ctx.IsFunc(name) {
		return nil, newError(ErrCodeIllegalAssignment, "cannot define function %s: name is bound to a non function symbol", name)
	}
	p.nextToken()

	var params []string
	for p.curToken().Is(IDENT) {
		params = append(params, p.curToken().Literal)
		p.nextToken()
	}
	if err := p.expect(ARROW, "`=>`"); err != nil {
		return nil, err
	}

	outer := p.ctx
	p.ctx = FunctionContext(params, outer)
	body, err := p.parseCallExpression()
	p.ctx = outer
	if err != nil {
		return nil, err
	}
	return &FunctionDef{
		Name:   name,
		Params: params,
		Arity:  len(params),
		Body:   body,
	}, nil
}

// parseCallExpression parses a call when the leading identifier may name a
// function, otherwise an operator expression. Each argument is itself a call
// expression.
func (p *Parser) parseCallExpression() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	tok := p.curToken()
	if !tok.Is(IDENT) || !p.ctx.IsFunc(tok.Literal) {
		return p.parseBinary(lowestPriority)
	}
	p.nextToken()
	body, ok := p.ctx.GetFunc(tok.Literal)
	if !ok {
		return nil, newError(ErrCodeUnresolvedSymbol, "unknown symbol %s at column %d", tok.Literal, tok.Column)
	}
	arity, _ := p.ctx.GetArity(tok.Literal)
	call := &Call{
		Name:  tok.Literal,
		Arity: arity,
		Body:  body,
	}
	for i := 0; i < arity; i++ {
		arg, err := p.parseCallExpression()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}
	return call, nil
}

// parseBinary climbs operator priorities: additive operators have priority 1,
// multiplicative ones 2. Operands of a level are parsed one level higher, the
// level past the highest being terminals.
func (p *Parser) parseBinary(priority int) (Node, error) {
	if priority > highestPriority {
		return p.parseTerminal()
	}
	left, err := p.parseBinary(priority + 1)
	if err != nil {
		return nil, err
	}
	for {
		tok := p.curToken()
		if !tok.Is(OPERATOR) || tok.Op.Priority() != priority {
			return left, nil
		}
		p.nextToken()
		right, err := p.parseBinary(priority + 1)
		if err != nil {
			return nil, err
		}
		left = fold(&BinaryOp{Op: tok.Op, Left: left, Right: right})
	}
}

// fold collapses an operation on two known operands into a single value.
func fold(op *BinaryOp) Node {
	if v, ok := op.StaticValue(); ok {
		return &Value{Number: v}
	}
	return op
}

func (p *Parser) parseTerminal() (Node, error) {
	tok := p.curToken()
	switch tok.Type {
	case NUMBER:
		p.nextToken()
		return &Value{Number: tok.Number}, nil
	case LPAREN:
		return p.parseGroup()
	case ASSIGN:
		return p.parseAssignment()
	case IDENT:
		p.nextToken()
		if v, ok := p.ctx.GetVar(tok.Literal); ok {
			return &Value{Number: v}, nil
		}
		if index, ok := p.ctx.GetArg(tok.Literal); ok {
			return &Argument{Index: index}, nil
		}
		return nil, newError(ErrCodeUnresolvedSymbol, "non variable symbol %s at column %d", tok.Literal, tok.Column)
	default:
		return nil, unexpected(tok, "number, variable, assignment or `(`")
	}
}

func (p *Parser) parseGroup() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.nextToken()
	expr, err := p.parseBinary(lowestPriority)
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN, "`)`"); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseAssignment accepts any target that is not bound to a function. The
// right hand side is a call expression.
func (p *Parser) parseAssignment() (Node, error) {
	tok := p.curToken()
	if !p.ctx.IsVar(tok.Literal) {
		return nil, newError(ErrCodeIllegalAssignment, "assigning to symbol which is not variable: %s", tok.Literal)
	}
	p.nextToken()
	expr, err := p.parseCallExpression()
	if err != nil {
		return nil, err
	}
	return &Assign{Name: tok.Literal, Expr: expr}, nil
}
