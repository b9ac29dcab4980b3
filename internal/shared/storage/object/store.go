package object

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidKey is returned for storage keys that escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// Stored describes an object after it was written.
type Stored struct {
	Key       string
	SizeBytes int64
	MimeType  string
}

// ObjectStore saves, reads and removes uploaded statement files.
type ObjectStore interface {
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (Stored, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
