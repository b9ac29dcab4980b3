package profile

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// IncomeSource reads the monthly income recorded in a user's profile.
type IncomeSource struct {
	Repo Repo
}

// Income returns the stored income, or zero when the user has no profile yet.
func (s IncomeSource) Income(ctx context.Context, userID string) (decimal.Decimal, error) {
	if s.Repo == nil {
		return decimal.Zero, nil
	}
	p, err := s.Repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return p.Snapshot.Income, nil
}
