package trends

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

// Get returns the stored overall analysis for userID.
func (r *PGRepo) Get(ctx context.Context, userID string) (OverallAnalysis, error) {
	const query = `
SELECT user_id, total_income, spending_trends, statement_ids, updated_at
FROM overall_analyses
WHERE user_id = $1`
	var oa OverallAnalysis
	var income string
	var trendsJSON, idsJSON []byte
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(&oa.UserID, &income, &trendsJSON, &idsJSON, &oa.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OverallAnalysis{}, ErrNotFound
		}
		return OverallAnalysis{}, err
	}
	if err := oa.TotalIncome.Scan(income); err != nil {
		return OverallAnalysis{}, fmt.Errorf("decode total_income user=%s: %w", userID, err)
	}
	if err := json.Unmarshal(trendsJSON, &oa.SpendingTrends); err != nil {
		return OverallAnalysis{}, fmt.Errorf("decode spending_trends user=%s: %w", userID, err)
	}
	if err := json.Unmarshal(idsJSON, &oa.StatementIDs); err != nil {
		return OverallAnalysis{}, fmt.Errorf("decode statement_ids user=%s: %w", userID, err)
	}
	return oa, nil
}

// Upsert writes the overall analysis, replacing any previous one for the user.
func (r *PGRepo) Upsert(ctx context.Context, oa OverallAnalysis) error {
	const query = `
INSERT INTO overall_analyses (user_id, total_income, spending_trends, statement_ids, updated_at)
VALUES ($1, $2, $3::jsonb, $4::jsonb, $5)
ON CONFLICT (user_id) DO UPDATE
SET total_income = EXCLUDED.total_income,
    spending_trends = EXCLUDED.spending_trends,
    statement_ids = EXCLUDED.statement_ids,
    updated_at = EXCLUDED.updated_at`
	trendsJSON, err := json.Marshal(oa.SpendingTrends)
	if err != nil {
		return err
	}
	idsJSON, err := json.Marshal(oa.StatementIDs)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, oa.UserID, oa.TotalIncome.String(), trendsJSON, idsJSON, oa.UpdatedAt)
	return err
}

var _ Repo = (*PGRepo)(nil)
