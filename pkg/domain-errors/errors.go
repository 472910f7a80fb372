// Package domainerrors defines the typed error vocabulary shared by services
// and the HTTP layer. Services wrap infrastructure failures into one of these
// codes; the transport layer translates codes into status lines and decides
// whether the message is safe to show.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping and caller policy.
type Code string

const (
	// CodeBadRequest marks malformed requests (bad JSON, missing fields).
	CodeBadRequest Code = "bad_request"
	// CodeValidation marks per-item input that failed domain validation,
	// e.g. a string that cannot be canonicalized into a domain name.
	CodeValidation Code = "validation_error"
	// CodeNotFound marks a missing record or association.
	CodeNotFound Code = "not_found"
	// CodeConflict marks unique-constraint style collisions.
	CodeConflict Code = "conflict"
	// CodeRateLimited marks an on-cooldown refresh. Not a failure: carries
	// remaining-time metadata and the caller should wait out the window.
	CodeRateLimited Code = "rate_limited"
	// CodeUpstreamConfig marks a missing or malformed registry credential.
	// Fatal until an operator fixes configuration; retrying cannot help.
	CodeUpstreamConfig Code = "upstream_not_configured"
	// CodeUpstreamUnavailable marks transient registry failures
	// (network, non-2xx, outage). Retryable within the poller's budget.
	CodeUpstreamUnavailable Code = "upstream_unavailable"
	// CodeTimeout marks a registry call that exceeded its deadline.
	CodeTimeout Code = "timeout"
	// CodeInternal marks store failures and other unexpected conditions.
	CodeInternal Code = "internal_error"
	// CodeInvariantViolation marks states that should be impossible.
	CodeInvariantViolation Code = "invariant_violation"
)

// Error carries a code, a caller-safe message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a domain error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from err, or CodeInternal when err is not a
// domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsRetryable reports whether the caller may usefully retry. Only transient
// upstream conditions qualify; config errors and validation never do.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeTimeout, CodeUpstreamUnavailable:
		return true
	}
	return false
}
