package trends

import "context"

// Repo persists one OverallAnalysis per user.
type Repo interface {
	Get(ctx context.Context, userID string) (OverallAnalysis, error)
	Upsert(ctx context.Context, oa OverallAnalysis) error
}
