package trends

import (
	"context"
	"sync"
)

// MemoryRepo keeps overall analyses in memory.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[string]OverallAnalysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUser: make(map[string]OverallAnalysis)}
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (OverallAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return OverallAnalysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	oa, ok := r.byUser[userID]
	if !ok {
		return OverallAnalysis{}, ErrNotFound
	}
	return cloneOverall(oa), nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, oa OverallAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[oa.UserID] = cloneOverall(oa)
	return nil
}

func cloneOverall(oa OverallAnalysis) OverallAnalysis {
	oa.SpendingTrends = append([]Trend{}, oa.SpendingTrends...)
	oa.StatementIDs = append([]string{}, oa.StatementIDs...)
	return oa
}

var _ Repo = (*MemoryRepo)(nil)
