package statements

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores statement analyses in memory.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]StatementAnalysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]StatementAnalysis)}
}

func (r *MemoryRepo) Create(ctx context.Context, sa StatementAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[sa.ID] = clone(sa)
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, sa StatementAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[sa.ID]
	if !ok || existing.UserID != sa.UserID {
		return ErrNotFound
	}
	r.byID[sa.ID] = clone(sa)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[id]
	if !ok || existing.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, id string) (StatementAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return StatementAnalysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sa, ok := r.byID[id]
	if !ok || sa.UserID != userID {
		return StatementAnalysis{}, ErrNotFound
	}
	return clone(sa), nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]StatementAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StatementAnalysis, 0)
	for _, sa := range r.byID {
		if sa.UserID == userID {
			out = append(out, clone(sa))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, sa := range r.byID {
		if _, ok := seen[sa.UserID]; ok {
			continue
		}
		seen[sa.UserID] = struct{}{}
		out = append(out, sa.UserID)
	}
	sort.Strings(out)
	return out, nil
}

func clone(sa StatementAnalysis) StatementAnalysis {
	sa.CategoryBreakdown = append([]CategoryAmount(nil), sa.CategoryBreakdown...)
	return sa
}

var _ Repo = (*MemoryRepo)(nil)
