package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"budget-backend/internal/shared/apperr"
	"budget-backend/internal/shared/telemetry"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Get loads the user's record. A result that no longer decodes is returned
// with Corrupted completeness instead of an error so the caller regenerates.
func (r *PGRepo) Get(ctx context.Context, userID string) (CacheRecord, error) {
	const query = `
SELECT user_id, profile_version, income, result, completeness, stored_at
FROM analysis_cache
WHERE user_id = $1`
	var rec CacheRecord
	var income string
	var result []byte
	var completeness string
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.ProfileVersion,
		&income,
		&result,
		&completeness,
		&rec.StoredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CacheRecord{}, ErrNotFound
		}
		return CacheRecord{}, err
	}
	if err := rec.Income.Scan(income); err != nil {
		return CacheRecord{}, fmt.Errorf("decode income user=%s: %w", userID, err)
	}
	rec.Completeness = Completeness(completeness)

	if len(result) == 0 || string(result) == "null" {
		if rec.Completeness == Complete {
			rec.Completeness = Corrupted
		}
		return rec, nil
	}
	var decoded AnalysisResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		telemetry.Warn("analysis.cache_record_corrupted", map[string]any{
			"userId": userID,
			"error":  apperr.Sanitize(err),
		})
		rec.Completeness = Corrupted
		return rec, nil
	}
	rec.Result = &decoded
	return rec, nil
}

// Upsert replaces the user's record.
func (r *PGRepo) Upsert(ctx context.Context, rec CacheRecord) error {
	const query = `
INSERT INTO analysis_cache (user_id, profile_version, income, result, completeness, stored_at)
VALUES ($1, $2, $3, $4::jsonb, $5, $6)
ON CONFLICT (user_id) DO UPDATE
SET profile_version = EXCLUDED.profile_version,
    income = EXCLUDED.income,
    result = EXCLUDED.result,
    completeness = EXCLUDED.completeness,
    stored_at = EXCLUDED.stored_at`
	var result []byte
	if rec.Result != nil {
		var err error
		result, err = json.Marshal(rec.Result)
		if err != nil {
			return err
		}
	}
	_, err := r.DB.ExecContext(ctx, query,
		rec.UserID,
		rec.ProfileVersion,
		rec.Income.String(),
		result,
		string(rec.Completeness),
		rec.StoredAt,
	)
	return err
}

var _ Repo = (*PGRepo)(nil)
