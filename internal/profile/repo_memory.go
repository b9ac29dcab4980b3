package profile

import (
	"context"
	"sync"
)

// MemoryRepo stores profiles in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[string]Profile
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUser: make(map[string]Profile)}
}

// Get returns the profile for userID.
func (r *MemoryRepo) Get(ctx context.Context, userID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byUser[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

// Upsert replaces the stored profile for p.UserID.
func (r *MemoryRepo) Upsert(ctx context.Context, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Preferences = p.Preferences.Clone()
	p.Snapshot = p.Snapshot.Normalize()
	r.byUser[p.UserID] = p
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
