package analysis

import "errors"

var (
	// ErrNotFound is returned when a user has no stored plan.
	ErrNotFound = errors.New("analysis not found")
)
