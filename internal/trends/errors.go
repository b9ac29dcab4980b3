package trends

import "errors"

// ErrNotFound is returned when a user has no overall analysis yet.
var ErrNotFound = errors.New("overall analysis not found")
