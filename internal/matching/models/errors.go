package models

import (
	"errors"
	"fmt"
)

var (
	// ErrPreconditionViolation marks a programmer error in how a search was
	// driven. It fails the search and must not be retried.
	ErrPreconditionViolation = errors.New("matching precondition violated")

	// ErrInvalidCriteria marks a search request with out-of-range values.
	ErrInvalidCriteria = fmt.Errorf("%w: invalid match criteria", ErrPreconditionViolation)

	// ErrAlreadyEnriched is returned when a result is enriched a second time.
	ErrAlreadyEnriched = errors.New("match result already enriched")
)
