package profile

import (
	"sort"
	"strconv"

	"budget-backend/internal/shared/util"
)

// Version is the content hash of the preferences, the normalized snapshot and the
// set of statement ids contributing to the user's trends. Statement order does not matter.
func Version(prefs Preferences, snapshot FinancialSnapshot, statementIDs []string) string {
	parts := make([]string, 0, 4+2*len(prefs.Answers)+4*len(snapshot.Debts)+len(statementIDs))

	parts = append(parts, "answers", strconv.Itoa(len(prefs.Answers)))
	for _, a := range prefs.Answers {
		parts = append(parts, a.QuestionID, a.Value)
	}

	normalized := snapshot.Normalize()
	parts = append(parts, "income", normalized.Income.String(), "debts", strconv.Itoa(len(normalized.Debts)))
	for _, d := range normalized.Debts {
		parts = append(parts, d.Name, d.TotalAmount.String(), strconv.Itoa(d.Months), d.MonthlyRepayment.String())
	}

	ids := append([]string(nil), statementIDs...)
	sort.Strings(ids)
	parts = append(parts, "statements")
	parts = append(parts, ids...)

	return util.HashParts(parts...)
}
