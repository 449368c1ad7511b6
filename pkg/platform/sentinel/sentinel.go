// Package sentinel holds infrastructure facts that stores return, optionally
// wrapped, so callers can react without knowing the backing technology.
package sentinel

import "errors"

var (
	// ErrNotFound means the referenced entity does not exist in the store.
	ErrNotFound = errors.New("not found")
)
