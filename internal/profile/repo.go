package profile

import "context"

// Repo persists completed profiles, one per user.
type Repo interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Upsert(ctx context.Context, p Profile) error
}
