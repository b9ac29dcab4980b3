package statements

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budget-backend/internal/shared/apperr"
)

// CategoryAmount is the spending total for one category in a statement.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// StatementAnalysis is the categorised spending of one uploaded statement.
type StatementAnalysis struct {
	ID                string           `json:"id"`
	UserID            string           `json:"userId"`
	StatementID       string           `json:"statementId"`
	AnalysisDate      string           `json:"analysisDate"`
	CategoryBreakdown []CategoryAmount `json:"categoryBreakdown"`
	DocumentKey       string           `json:"documentKey,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// Total sums the breakdown.
func (s StatementAnalysis) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.CategoryBreakdown {
		total = total.Add(c.Amount)
	}
	return total
}

// ValidateBreakdown checks user supplied entries and returns trimmed copies.
func ValidateBreakdown(in []CategoryAmount) ([]CategoryAmount, error) {
	out := make([]CategoryAmount, 0, len(in))
	for _, c := range in {
		name := strings.TrimSpace(c.Category)
		if name == "" {
			return nil, apperr.Invalid("categoryBreakdown", "category is required")
		}
		if c.Amount.IsNegative() {
			return nil, apperr.Invalid("categoryBreakdown", "amount must not be negative for "+name)
		}
		out = append(out, CategoryAmount{Category: name, Amount: c.Amount})
	}
	return out, nil
}
