// Package trends aggregates statement breakdowns into monthly spending
// trends normalized against income.
package trends

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trend is the spending for one category in one month.
type Trend struct {
	Month              string          `json:"month"`
	Category           string          `json:"category"`
	Spending           decimal.Decimal `json:"spending"`
	PercentageOfIncome decimal.Decimal `json:"percentageOfIncome"`
	SavingsRate        decimal.Decimal `json:"savingsRate"`
}

// OverallAnalysis is the per-user aggregate across every statement.
type OverallAnalysis struct {
	UserID         string          `json:"userId"`
	TotalIncome    decimal.Decimal `json:"totalIncome"`
	SpendingTrends []Trend         `json:"spendingTrends"`
	StatementIDs   []string        `json:"statementIds"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
