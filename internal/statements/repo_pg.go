package statements

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

// Create inserts a new statement analysis.
func (r *PGRepo) Create(ctx context.Context, sa StatementAnalysis) error {
	const query = `
INSERT INTO statement_analyses (
    id,
    user_id,
    statement_id,
    analysis_date,
    category_breakdown,
    document_key,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)`
	breakdown, err := json.Marshal(sa.CategoryBreakdown)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		sa.ID,
		sa.UserID,
		sa.StatementID,
		sa.AnalysisDate,
		breakdown,
		nullString(sa.DocumentKey),
		sa.CreatedAt,
		sa.UpdatedAt,
	)
	return err
}

// Update applies a corrective update to the period label and breakdown.
func (r *PGRepo) Update(ctx context.Context, sa StatementAnalysis) error {
	const query = `
UPDATE statement_analyses
SET analysis_date = $3,
    category_breakdown = $4::jsonb,
    updated_at = $5
WHERE id = $1 AND user_id = $2`
	breakdown, err := json.Marshal(sa.CategoryBreakdown)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, sa.ID, sa.UserID, sa.AnalysisDate, breakdown, sa.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a statement analysis owned by userID.
func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM statement_analyses WHERE id = $1 AND user_id = $2`
	res, err := r.DB.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

const selectColumns = `id, user_id, statement_id, analysis_date, category_breakdown, document_key, created_at, updated_at`

// GetByID fetches a statement analysis owned by userID.
func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (StatementAnalysis, error) {
	query := `SELECT ` + selectColumns + `
FROM statement_analyses
WHERE id = $1 AND user_id = $2`
	sa, err := scanStatement(r.DB.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StatementAnalysis{}, ErrNotFound
		}
		return StatementAnalysis{}, err
	}
	return sa, nil
}

// ListByUser returns every statement analysis for userID, oldest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]StatementAnalysis, error) {
	query := `SELECT ` + selectColumns + `
FROM statement_analyses
WHERE user_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]StatementAnalysis, 0)
	for rows.Next() {
		sa, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}

// ListUserIDs returns every user with at least one statement analysis.
func (r *PGRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT DISTINCT user_id FROM statement_analyses ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatement(row rowScanner) (StatementAnalysis, error) {
	var sa StatementAnalysis
	var breakdown []byte
	var documentKey sql.NullString
	if err := row.Scan(
		&sa.ID,
		&sa.UserID,
		&sa.StatementID,
		&sa.AnalysisDate,
		&breakdown,
		&documentKey,
		&sa.CreatedAt,
		&sa.UpdatedAt,
	); err != nil {
		return StatementAnalysis{}, err
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &sa.CategoryBreakdown); err != nil {
			return StatementAnalysis{}, fmt.Errorf("decode breakdown id=%s: %w", sa.ID, err)
		}
	}
	if documentKey.Valid {
		sa.DocumentKey = documentKey.String
	}
	return sa, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
