package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Get returns the profile for userID.
func (r *PGRepo) Get(ctx context.Context, userID string) (Profile, error) {
	const query = `
SELECT user_id, preferences, snapshot, completed_at
FROM financial_profiles
WHERE user_id = $1
LIMIT 1`
	var p Profile
	var prefs, snapshot []byte
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &prefs, &snapshot, &p.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	if err := json.Unmarshal(prefs, &p.Preferences); err != nil {
		return Profile{}, fmt.Errorf("decode preferences user=%s: %w", userID, err)
	}
	if err := json.Unmarshal(snapshot, &p.Snapshot); err != nil {
		return Profile{}, fmt.Errorf("decode snapshot user=%s: %w", userID, err)
	}
	return p, nil
}

// Upsert inserts or replaces the profile for p.UserID.
func (r *PGRepo) Upsert(ctx context.Context, p Profile) error {
	const query = `
INSERT INTO financial_profiles (user_id, preferences, snapshot, completed_at, updated_at)
VALUES ($1, $2::jsonb, $3::jsonb, $4, now())
ON CONFLICT (user_id) DO UPDATE
SET preferences = EXCLUDED.preferences,
    snapshot = EXCLUDED.snapshot,
    completed_at = EXCLUDED.completed_at,
    updated_at = now()`
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return err
	}
	snapshot, err := json.Marshal(p.Snapshot.Normalize())
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, p.UserID, prefs, snapshot, p.CompletedAt)
	return err
}

var _ Repo = (*PGRepo)(nil)
