package calc

import (
	"fmt"

	"github.com/oarkflow/errors"
)

type ErrorCode string

const (
	ErrCodeLex               ErrorCode = "LEX_ERROR"
	ErrCodeUnexpectedToken   ErrorCode = "UNEXPECTED_TOKEN"
	ErrCodeUnresolvedSymbol  ErrorCode = "UNRESOLVED_SYMBOL"
	ErrCodeIllegalAssignment ErrorCode = "ILLEGAL_ASSIGNMENT"
	ErrCodeTrailingInput     ErrorCode = "TRAILING_INPUT"
	ErrCodeDepthExceeded     ErrorCode = "DEPTH_EXCEEDED"
	ErrCodeInputTooLong      ErrorCode = "INPUT_TOO_LONG"
)

type CalcError struct {
	Code    ErrorCode
	Message string
	Details []string
	Cause   error
}

func (e *CalcError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CalcError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsLex reports whether the failure happened before parsing started.
func (e *CalcError) IsLex() bool {
	return e != nil && e.Code == ErrCodeLex
}

func newError(code ErrorCode, format string, args ...any) *CalcError {
	return &CalcError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func lexError(cause error, format string, args ...any) *CalcError {
	err := newError(ErrCodeLex, format, args...)
	err.Cause = cause
	return err
}

func unexpected(tok Token, expected string) *CalcError {
	if tok.Is(EOF) {
		return newError(ErrCodeUnexpectedToken, "unexpected end of input, expected %s", expected)
	}
	err := newError(ErrCodeUnexpectedToken, "unexpected token %s at column %d, expected %s", tok, tok.Column, expected)
	err.Details = append(err.Details, tok.Literal)
	return err
}

var errMultipleDecimalPoints = errors.New("only one decimal point allowed")
