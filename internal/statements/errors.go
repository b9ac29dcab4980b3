package statements

import "errors"

var (
	// ErrNotFound is returned when a statement analysis is missing or owned by another user.
	ErrNotFound = errors.New("statement analysis not found")
)
