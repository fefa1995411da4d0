// Package domainerrors defines the coded error type shared by models, services
// and transport. Services return *Error values; handlers translate the code into
// an HTTP status without inspecting messages.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies an error for callers. Codes are stable and safe to expose.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
)

// Error carries a code, a human readable message and, for business rule
// violations, the rule tag that was broken (e.g. "BR-01").
type Error struct {
	Code    Code
	Message string
	Rule    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewRule creates an invariant violation tagged with a business rule identifier.
// The tag is prefixed to the message so it survives plain-text logging.
func NewRule(rule, message string) *Error {
	return &Error{
		Code:    CodeInvariantViolation,
		Message: rule + ": " + message,
		Rule:    rule,
	}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is / errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// As extracts the outermost *Error from err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// RuleOf returns the business rule tag of the first tagged error in the chain.
func RuleOf(err error) string {
	for err != nil {
		if de, ok := err.(*Error); ok && de.Rule != "" {
			return de.Rule
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// CodeOf returns the code of err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code onto the status the transport layer should answer with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeValidation, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
