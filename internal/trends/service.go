package trends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"budget-backend/internal/shared/telemetry"
	"budget-backend/internal/statements"
)

// Service is the only writer of overall analyses.
type Service struct {
	Repo Repo
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, now: time.Now}
}

// Refresh re-aggregates items for userID and stores the result.
func (s *Service) Refresh(ctx context.Context, userID string, items []statements.StatementAnalysis, income decimal.Decimal) error {
	oa := Aggregate(items, income)
	oa.UserID = userID
	oa.UpdatedAt = s.now().UTC()
	if err := s.Repo.Upsert(ctx, oa); err != nil {
		return fmt.Errorf("upsert overall analysis user=%s: %w", userID, err)
	}
	telemetry.Debug("trends.refreshed", map[string]any{
		"userId":     userID,
		"statements": len(oa.StatementIDs),
		"trends":     len(oa.SpendingTrends),
	})
	return nil
}

// Get returns the stored overall analysis, or an empty one when none exists.
func (s *Service) Get(ctx context.Context, userID string) (OverallAnalysis, error) {
	oa, err := s.Repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return OverallAnalysis{
				UserID:         userID,
				TotalIncome:    decimal.Zero,
				SpendingTrends: []Trend{},
				StatementIDs:   []string{},
			}, nil
		}
		return OverallAnalysis{}, err
	}
	return oa, nil
}

var _ statements.TrendRefresher = (*Service)(nil)
