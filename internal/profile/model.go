package profile

import (
	"time"

	"github.com/shopspring/decimal"

	"budget-backend/internal/shared/apperr"
)

// Answer is one recorded questionnaire answer.
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

// Preferences is the ordered mapping of question id to answer.
type Preferences struct {
	Answers []Answer `json:"answers"`
}

// Get returns the answer recorded for questionID.
func (p Preferences) Get(questionID string) (string, bool) {
	for _, a := range p.Answers {
		if a.QuestionID == questionID {
			return a.Value, true
		}
	}
	return "", false
}

// With returns a copy of p with questionID set to value. Existing answers keep their position.
func (p Preferences) With(questionID, value string) Preferences {
	out := p.Clone()
	for i := range out.Answers {
		if out.Answers[i].QuestionID == questionID {
			out.Answers[i].Value = value
			return out
		}
	}
	out.Answers = append(out.Answers, Answer{QuestionID: questionID, Value: value})
	return out
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	return Preferences{Answers: append([]Answer(nil), p.Answers...)}
}

// Debt is a repayable obligation in the snapshot.
type Debt struct {
	Name             string          `json:"name"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Months           int             `json:"months"`
	MonthlyRepayment decimal.Decimal `json:"monthlyRepayment"`
}

// NewDebt builds a Debt with its monthly repayment derived.
func NewDebt(name string, total decimal.Decimal, months int) Debt {
	return Debt{
		Name:             name,
		TotalAmount:      total,
		Months:           months,
		MonthlyRepayment: MonthlyRepayment(total, months),
	}
}

// MonthlyRepayment is total/months rounded to cents, or zero when months <= 0.
func MonthlyRepayment(total decimal.Decimal, months int) decimal.Decimal {
	if months <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(months))).Round(2)
}

// FinancialSnapshot is the user's income and debts at questionnaire time.
type FinancialSnapshot struct {
	Income decimal.Decimal `json:"income"`
	Debts  []Debt          `json:"debts"`
}

// Normalize returns a copy with every debt's monthly repayment recomputed.
func (s FinancialSnapshot) Normalize() FinancialSnapshot {
	out := FinancialSnapshot{Income: s.Income, Debts: make([]Debt, 0, len(s.Debts))}
	for _, d := range s.Debts {
		out.Debts = append(out.Debts, NewDebt(d.Name, d.TotalAmount, d.Months))
	}
	return out
}

// Validate rejects snapshots that cannot be analyzed.
func (s FinancialSnapshot) Validate() error {
	if s.Income.IsNegative() {
		return apperr.Invalid("income", "must not be negative")
	}
	for _, d := range s.Debts {
		if d.Name == "" {
			return apperr.Invalid("debts", "debt name is required")
		}
		if d.TotalAmount.IsNegative() {
			return apperr.Invalid("debts", "total amount must not be negative for "+d.Name)
		}
		if d.Months < 0 {
			return apperr.Invalid("debts", "months must not be negative for "+d.Name)
		}
	}
	return nil
}

// TotalMonthlyRepayments sums the monthly repayment of every debt.
func (s FinancialSnapshot) TotalMonthlyRepayments() decimal.Decimal {
	total := decimal.Zero
	for _, d := range s.Debts {
		total = total.Add(MonthlyRepayment(d.TotalAmount, d.Months))
	}
	return total
}

// Profile is a completed questionnaire persisted for a user.
type Profile struct {
	UserID      string            `json:"userId"`
	Preferences Preferences       `json:"preferences"`
	Snapshot    FinancialSnapshot `json:"snapshot"`
	CompletedAt time.Time         `json:"completedAt"`
}
