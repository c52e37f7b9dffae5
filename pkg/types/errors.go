package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine error into one of the three caller-visible
// categories. Security errors always propagate; evaluation errors may be
// downgraded to non-matches inside filter predicates; parse errors are only
// ever returned from the parser, never raised during evaluation.
type ErrorKind uint8

const (
	KindParse ErrorKind = iota
	KindEvaluation
	KindSecurity
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindEvaluation:
		return "evaluation"
	case KindSecurity:
		return "security"
	default:
		return "unknown"
	}
}

// ErrorCode identifies a specific failure condition.
type ErrorCode string

// Error codes grouped by kind: S0xxx parse, D1xxx evaluation, X1xxx security.
const (
	// S0xxx: Parser/Syntax errors
	ErrStringNotClosed  ErrorCode = "S0101"
	ErrInvalidNumber    ErrorCode = "S0102"
	ErrInvalidCharacter ErrorCode = "S0103"
	ErrUnexpectedEnd    ErrorCode = "S0104"
	ErrSyntaxError      ErrorCode = "S0201"
	ErrExpectedToken    ErrorCode = "S0202"
	ErrEmptyProperty    ErrorCode = "S0203"
	ErrBracketNotClosed ErrorCode = "S0204"
	ErrExpectedIndex    ErrorCode = "S0205"
	ErrSliceStepZero    ErrorCode = "S0206"
	ErrRootPosition     ErrorCode = "S0207"

	// D1xxx: Evaluation errors
	ErrUnknownOperator  ErrorCode = "D1001"
	ErrUnknownFunction  ErrorCode = "D1002"
	ErrArgumentCount    ErrorCode = "D1003"
	ErrOperandType      ErrorCode = "D1004"
	ErrFilterOnNonArray ErrorCode = "D1005"
	ErrInvalidSlice     ErrorCode = "D1006"
	ErrInvalidDate      ErrorCode = "D1007"

	// X1xxx: Security errors
	ErrDangerousProperty ErrorCode = "X1001"
	ErrMaxDepthExceeded  ErrorCode = "X1002"
	ErrIterationBudget   ErrorCode = "X1003"
	ErrRegexTimeout      ErrorCode = "X1004"
	ErrUnsafePattern     ErrorCode = "X1005"
	ErrDateRange         ErrorCode = "X1006"
	ErrUnsafeRange       ErrorCode = "X1007"
)

// Error is the structured error type shared by the parser and evaluator.
// Position is a byte offset into the original expression text, or -1 when
// no source location applies.
type Error struct {
	Kind     ErrorKind
	Code     ErrorCode
	Message  string
	Position int
	Token    string
	Err      error
}

// NewParseError creates a parse error at the given source offset.
func NewParseError(code ErrorCode, message string, position int) *Error {
	return &Error{Kind: KindParse, Code: code, Message: message, Position: position}
}

// NewEvalError creates an evaluation error.
func NewEvalError(code ErrorCode, message string) *Error {
	return &Error{Kind: KindEvaluation, Code: code, Message: message, Position: -1}
}

// NewSecurityError creates a security error. Security errors always abort
// the enclosing call, even through per-element filter suppression.
func NewSecurityError(code ErrorCode, message string) *Error {
	return &Error{Kind: KindSecurity, Code: code, Message: message, Position: -1}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithToken attaches the offending token text to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// IsSecurityError reports whether err (or anything it wraps) is a security
// error. Filter evaluation uses this to decide which per-element errors may
// be swallowed as non-matches.
func IsSecurityError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindSecurity
}

// IsParseError reports whether err is a parse error.
func IsParseError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindParse
}

// IsEvaluationError reports whether err is an evaluation error.
func IsEvaluationError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindEvaluation
}
