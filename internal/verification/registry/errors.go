package registry

import (
	"errors"
)

// ErrorCategory classifies a registry failure.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorNotFound       ErrorCategory = "not_found"
	// ErrorInternal covers anything a registry did not classify.
	ErrorInternal ErrorCategory = "internal"
)

// Transient reports whether a failure in this category can clear on retry.
func (c ErrorCategory) Transient() bool {
	return c == ErrorTimeout || c == ErrorProviderOutage
}

// ProviderError is a registry failure tagged with the registry that raised it.
type ProviderError struct {
	Category ErrorCategory
	Registry string
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := e.Registry + " registry " + string(e.Category) + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(category ErrorCategory, registryID, reason string, err error) *ProviderError {
	return &ProviderError{Category: category, Registry: registryID, Reason: reason, Err: err}
}

// IsRetryable is true for provider errors in a transient category.
func IsRetryable(err error) bool {
	return CategoryOf(err).Transient()
}

// CategoryOf returns ErrorInternal for errors that are not provider errors.
func CategoryOf(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}
