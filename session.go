package calc

import (
	"errors"
	"time"

	"github.com/oarkflow/log"
)

// Result is the outcome of a successful line: a number, or nothing for lines
// such as function definitions.
type Result struct {
	Value    float32
	HasValue bool
}

func (r Result) String() string {
	if !r.HasValue {
		return "()"
	}
	return formatNumber(r.Value)
}

// Session owns the context of one user and runs lines against it one at a
// time. It is not safe for concurrent use.
type Session struct {
	ctx    *Context
	cache  *TokenCache
	logger *log.Logger
	config RuntimeConfig
}

func NewSession(opts ...Options) *Session {
	s := &Session{
		ctx:    NewContext(),
		logger: &log.DefaultLogger,
		config: GetRuntimeConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Context() *Context {
	return s.ctx
}

// Run lexes, parses and evaluates line. The context is only touched by the
// evaluation step, which runs only once the whole line parsed.
func (s *Session) Run(line string) (Result, error) {
	start := time.Now()
	result, err := s.run(line)
	if err != nil {
		if s.config.LogEvaluation {
			code := ErrorCode("")
			var calcErr *CalcError
			if errors.As(err, &calcErr) {
				code = calcErr.Code
			}
			s.logger.Warn().Err(err).Str("line", line).Str("code", string(code)).Msg("line rejected")
		}
		return Result{}, err
	}
	if s.config.LogEvaluation {
		s.logger.Info().Str("line", line).Str("result", result.String()).Dur("duration", time.Since(start)).Msg("line evaluated")
	}
	return result, nil
}

func (s *Session) run(line string) (Result, error) {
	if err := checkLine(line, s.config); err != nil {
		return Result{}, err
	}
	tokens, err := s.cache.Tokens(line)
	if err != nil {
		return Result{}, err
	}
	parser := NewParser(tokens, s.ctx)
	parser.SetMaxDepth(s.config.MaxExpressionDepth)
	tree, err := parser.Parse()
	if err != nil {
		return Result{}, err
	}
	v, ok := tree.Evaluate(s.ctx, nil)
	return Result{Value: v, HasValue: ok}, nil
}

// SetVar binds name to value directly, bypassing the parser.
func (s *Session) SetVar(name string, value float32) error {
	if rest, _, ok := matchIdentifier(name); !ok || rest != "" {
		return newError(ErrCodeIllegalAssignment, "invalid variable name %q", name)
	}
	if !s.ctx.IsVar(name) {
		return newError(ErrCodeIllegalAssignment, "assigning to symbol which is not variable: %s", name)
	}
	s.ctx.UpdateVar(name, value)
	return nil
}
