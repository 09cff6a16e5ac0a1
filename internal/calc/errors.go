package calc

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes evaluation failures.
type ErrorCode string

const (
	// ErrCodeEmpty indicates nothing usable remained after cleaning.
	ErrCodeEmpty ErrorCode = "EMPTY_EXPRESSION"

	// ErrCodeParse indicates the expression library rejected the input.
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	// ErrCodeDivisionByZero indicates a division or modulo by zero.
	ErrCodeDivisionByZero ErrorCode = "DIVISION_BY_ZERO"

	// ErrCodeForbidden indicates the input referenced a blocked identifier.
	ErrCodeForbidden ErrorCode = "FORBIDDEN_EXPRESSION"

	// ErrCodeUnexpected covers every other evaluation failure.
	ErrCodeUnexpected ErrorCode = "UNEXPECTED"
)

// User-facing messages.
const (
	MsgEmpty          = "Empty or invalid expression."
	MsgParse          = "Could not understand the math expression."
	MsgDivisionByZero = "Division by zero is not allowed."
	MsgForbidden      = "Invalid expression"
)

// Error is an evaluation failure with a stable Code.
type Error struct {
	Code       ErrorCode
	Message    string
	Expression string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, expression string, err error) *Error {
	e := &Error{Code: code, Expression: expression, Err: err}
	switch code {
	case ErrCodeEmpty:
		e.Message = MsgEmpty
	case ErrCodeParse:
		e.Message = MsgParse
	case ErrCodeDivisionByZero:
		e.Message = MsgDivisionByZero
	case ErrCodeForbidden:
		e.Message = MsgForbidden
	default:
		msg := "unknown failure"
		if err != nil {
			msg = err.Error()
		}
		e.Message = "Unexpected error: " + msg
	}
	return e
}

// CodeOf returns the ErrorCode carried by err, or ErrCodeUnexpected when
// err is not an *Error.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeUnexpected
}

// IsDivisionByZero reports whether err is a division by zero failure.
func IsDivisionByZero(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeDivisionByZero
}

// IsParseError reports whether err is a parse failure.
func IsParseError(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeParse
}

// IsForbidden reports whether err was caused by a blocked identifier.
func IsForbidden(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeForbidden
}
