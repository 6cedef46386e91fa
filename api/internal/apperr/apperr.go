// Package apperr holds the error taxonomy of the extraction pipeline.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a failure class. Callers match on it to phrase user-facing messages.
type Code string

const (
	CodeRetryableTransport  Code = "RETRYABLE_TRANSPORT"
	CodeTerminalParse       Code = "TERMINAL_PARSE"
	CodeNotAvailable        Code = "NOT_AVAILABLE"
	CodeSanitizationFailure Code = "SANITIZATION_FAILURE"
	CodeInvalidIdentifier   Code = "INVALID_IDENTIFIER"
	CodeNoQuestions         Code = "NO_QUESTIONS"
)

// Error is a coded failure. Op names the failing step ("fetch questions", "normalize").
type Error struct {
	Code      Code
	Op        string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Op, e.Code, msg)
	}
	return fmt.Sprintf("[%s]: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so errors.Is(err, apperr.ErrNoQuestions) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrRetryableTransport = &Error{Code: CodeRetryableTransport, Retryable: true}
	ErrTerminalParse      = &Error{Code: CodeTerminalParse}
	ErrNotAvailable       = &Error{Code: CodeNotAvailable}
	ErrSanitization       = &Error{Code: CodeSanitizationFailure}
	ErrInvalidIdentifier  = &Error{Code: CodeInvalidIdentifier}
	ErrNoQuestions        = &Error{Code: CodeNoQuestions}
)

func Transport(op string, err error) *Error {
	return &Error{Code: CodeRetryableTransport, Op: op, Retryable: true, Err: err}
}

func TerminalParse(op string, err error) *Error {
	return &Error{Code: CodeTerminalParse, Op: op, Message: "response is not valid JSON", Err: err}
}

// NotAvailable reports that every attempt failed; last is the final cause.
func NotAvailable(op string, attempts int, last error) *Error {
	return &Error{
		Code:    CodeNotAvailable,
		Op:      op,
		Message: fmt.Sprintf("data not available after %d attempts", attempts),
		Err:     last,
	}
}

func Sanitization(err error) *Error {
	return &Error{Code: CodeSanitizationFailure, Op: "sanitize", Err: err}
}

func InvalidIdentifier(nid string) *Error {
	return &Error{Code: CodeInvalidIdentifier, Op: "validate", Message: fmt.Sprintf("test id %q must be numeric", nid)}
}

func NoQuestions(nid string) *Error {
	return &Error{Code: CodeNoQuestions, Op: "normalize", Message: fmt.Sprintf("no questions found for test %s", nid)}
}

// CodeOf returns the code of the first *Error in the chain, or "" when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether the chain holds a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
