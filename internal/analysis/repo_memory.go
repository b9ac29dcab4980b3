package analysis

import (
	"context"
	"sync"
)

// MemoryRepo keeps cache records in memory.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[string]CacheRecord
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUser: make(map[string]CacheRecord)}
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (CacheRecord, error) {
	if err := ctx.Err(); err != nil {
		return CacheRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byUser[userID]
	if !ok {
		return CacheRecord{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, rec CacheRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.Result != nil {
		copied := *rec.Result
		rec.Result = &copied
	}
	r.byUser[rec.UserID] = rec
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
