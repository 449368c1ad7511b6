package ports

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for matching collaborators.
type ErrorCategory string

const (
	// ErrorTimeout indicates the collaborator did not answer in time
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorCanceled indicates the search was canceled by its caller
	ErrorCanceled ErrorCategory = "canceled"

	// ErrorBadData indicates the collaborator returned data the engine cannot use
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorProviderOutage indicates the collaborator is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorInternal indicates an unexpected failure
	ErrorInternal ErrorCategory = "internal"
)

// SourceError wraps a collaborator failure with a normalized category.
// The engine never retries; Retryable is advice for outer layers.
type SourceError struct {
	Category   ErrorCategory
	Source     string
	Operation  string
	Underlying error
	Retryable  bool
}

// Error implements the error interface
func (e *SourceError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s %s [%s]: %v", e.Source, e.Operation, e.Category, e.Underlying)
	}
	return fmt.Sprintf("%s %s [%s]", e.Source, e.Operation, e.Category)
}

// Unwrap supports error unwrapping
func (e *SourceError) Unwrap() error {
	return e.Underlying
}

// NewSourceError creates a categorized collaborator error.
func NewSourceError(category ErrorCategory, source, operation string, underlying error) *SourceError {
	retryable := category == ErrorTimeout || category == ErrorProviderOutage
	return &SourceError{
		Category:   category,
		Source:     source,
		Operation:  operation,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// WrapSourceError categorizes err unless it already is a SourceError.
// Context errors keep their own categories so callers can tell a cancelled
// search from a failing store.
func WrapSourceError(source, operation string, err error) error {
	if err == nil {
		return nil
	}
	var se *SourceError
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return NewSourceError(ErrorCanceled, source, operation, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewSourceError(ErrorTimeout, source, operation, err)
	default:
		return NewSourceError(ErrorProviderOutage, source, operation, err)
	}
}

// IsRetryable checks if an error is worth retrying by an outer layer.
func IsRetryable(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorInternal
}
