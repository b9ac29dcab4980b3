package statements

import (
	"errors"
	"strings"

	"budget-backend/internal/llm"
	"budget-backend/internal/shared/apperr"
)

// Breakdown is the categorisation returned for one statement document.
type Breakdown struct {
	StatementPeriod   string           `json:"statementPeriod"`
	CategoryBreakdown []CategoryAmount `json:"categoryBreakdown"`
}

// ParseBreakdown decodes generation output for a statement. Blank categories
// are dropped, debits reported as negatives are flipped and repeated
// categories are merged case-insensitively in first-seen order.
func ParseBreakdown(raw string) (Breakdown, error) {
	var b Breakdown
	if _, err := llm.Decode(raw, &b); err != nil {
		return Breakdown{}, err
	}

	index := make(map[string]int)
	merged := make([]CategoryAmount, 0, len(b.CategoryBreakdown))
	for _, c := range b.CategoryBreakdown {
		name := strings.TrimSpace(c.Category)
		if name == "" {
			continue
		}
		amount := c.Amount.Abs()
		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			merged[i].Amount = merged[i].Amount.Add(amount)
			continue
		}
		index[key] = len(merged)
		merged = append(merged, CategoryAmount{Category: name, Amount: amount})
	}
	if len(merged) == 0 {
		return Breakdown{}, apperr.Corrupted(raw, errors.New("no spending categories"))
	}
	b.StatementPeriod = strings.TrimSpace(b.StatementPeriod)
	b.CategoryBreakdown = merged
	return b, nil
}
