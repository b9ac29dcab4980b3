package statements

import "context"

// Repo defines persistence for statement analyses.
type Repo interface {
	Create(ctx context.Context, sa StatementAnalysis) error
	Update(ctx context.Context, sa StatementAnalysis) error
	Delete(ctx context.Context, userID, id string) error
	GetByID(ctx context.Context, userID, id string) (StatementAnalysis, error)
	ListByUser(ctx context.Context, userID string) ([]StatementAnalysis, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}
