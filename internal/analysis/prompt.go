package analysis

import (
	"github.com/shopspring/decimal"

	"budget-backend/internal/llm"
	"budget-backend/internal/profile"
	"budget-backend/internal/trends"
)

type promptData struct {
	Income         decimal.Decimal
	DebtRepayments decimal.Decimal
	Debts          []profile.Debt
	Answers        []profile.Answer
	Trends         []trends.Trend
}

func buildPrompt(prefs profile.Preferences, snapshot profile.FinancialSnapshot, overall trends.OverallAnalysis) (string, error) {
	return llm.RenderPrompt(llm.PromptAnalysis, promptData{
		Income:         snapshot.Income,
		DebtRepayments: snapshot.TotalMonthlyRepayments(),
		Debts:          snapshot.Debts,
		Answers:        prefs.Answers,
		Trends:         overall.SpendingTrends,
	})
}
