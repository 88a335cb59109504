// Package domainerrors provides coded errors shared by services, stores and
// the HTTP layer. Services attach a Code so transport can translate without
// string matching, and callers can branch with HasCode.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport translation and caller branching.
type Code string

const (
	// CodeValidation marks missing or malformed input. Never retried.
	CodeValidation Code = "validation"
	// CodeInvalidInput marks a value that failed parsing at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks a request that is syntactically unusable.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized marks a caller without valid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks a caller whose role is insufficient for the operation.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks an unknown product, participant or record.
	CodeNotFound Code = "not_found"
	// CodeInvalidTransition marks a stage-order violation. This is the
	// domain's primary business-rule error and is kept distinct from
	// CodeValidation so clients can render a meaningful "wrong stage" message.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeConflict marks a lost race to advance the same product. Callers may
	// re-read the current stage and decide whether to re-attempt.
	CodeConflict Code = "conflict"
	// CodeTimeout marks a transaction aborted by context cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks unexpected failures that should not leak details.
	CodeInternal Code = "internal"
)

// DomainError carries a Code alongside the message and an optional cause.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// New builds a DomainError with the given code and message.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Newf builds a DomainError with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode used at call sites that branch on codes.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status. The mapping is the single
// source of truth for transport translation.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidInput, CodeBadRequest, CodeInvalidTransition:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
