package analysis

import "context"

// Repo stores one CacheRecord per user. Upsert replaces the previous record.
type Repo interface {
	Get(ctx context.Context, userID string) (CacheRecord, error)
	Upsert(ctx context.Context, rec CacheRecord) error
}
