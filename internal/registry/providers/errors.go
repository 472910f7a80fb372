package providers

import (
	"errors"
	"fmt"

	dErrors "domainwatch/pkg/domain-errors"
)

// ErrorCategory normalizes provider failures into a fixed taxonomy so the
// orchestrator and poller can decide retry policy without knowing which
// provider failed or how.
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorConfig indicates a missing or rejected API credential. Fatal
	// until an operator fixes configuration; never retryable.
	ErrorConfig ErrorCategory = "config"

	// ErrorOutage indicates the provider is unavailable (network error,
	// 5xx response).
	ErrorOutage ErrorCategory = "outage"

	// ErrorRateLimited indicates the provider throttled us.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorBadData indicates the provider returned an unparseable body.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorInternal indicates an unexpected failure on our side.
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps provider failures with normalized categorization.
type ProviderError struct {
	Category   ErrorCategory
	Provider   string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Provider, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Provider, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewError creates a categorized provider error. Retryability follows the
// category: only transient conditions are worth another attempt.
func NewError(category ErrorCategory, provider, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		Provider:   provider,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// CategoryOf extracts the error category from an error.
func CategoryOf(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// ToDomainError converts a provider failure into the typed error the
// transport layer knows how to render. Config errors tell the user not to
// retry; transient errors suggest trying again later.
func ToDomainError(err error) error {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
	}
	switch pe.Category {
	case ErrorConfig:
		return dErrors.Wrap(err, dErrors.CodeUpstreamConfig, "registry API is not configured")
	case ErrorTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout,
			"the registry took too long to respond; this can happen with some registrars, try again later")
	case ErrorOutage, ErrorRateLimited, ErrorBadData:
		return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "registry lookup failed, please try again later")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
	}
}
