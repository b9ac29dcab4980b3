package trends

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budget-backend/internal/statements"
)

var hundred = decimal.NewFromInt(100)

type bucket struct {
	month    time.Time
	dated    bool
	label    string
	category string
	spending decimal.Decimal
}

// Aggregate groups every breakdown entry by month and category. Percentages
// are relative to income and are zero when income is zero. Months sort
// chronologically and categories case-insensitively within a month. Labels
// are validated on write; rows stored before validation that still cannot be
// read follow every dated month in label order.
func Aggregate(items []statements.StatementAnalysis, income decimal.Decimal) OverallAnalysis {
	buckets := make(map[string]*bucket)
	ids := make([]string, 0, len(items))

	for _, sa := range items {
		ids = append(ids, sa.ID)
		month, dated := statements.ParsePeriod(sa.AnalysisDate)
		label := strings.TrimSpace(sa.AnalysisDate)
		if dated {
			label = month.Format(statements.MonthLabel)
		}
		for _, entry := range sa.CategoryBreakdown {
			category := strings.TrimSpace(entry.Category)
			if category == "" {
				category = "Uncategorized"
			}
			key := label + "\x00" + strings.ToLower(category)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{month: month, dated: dated, label: label, category: category}
				buckets[key] = b
			}
			b.spending = b.spending.Add(entry.Amount)
		}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.dated != b.dated {
			return a.dated
		}
		if a.dated && !a.month.Equal(b.month) {
			return a.month.Before(b.month)
		}
		if !a.dated && a.label != b.label {
			return a.label < b.label
		}
		return strings.ToLower(a.category) < strings.ToLower(b.category)
	})

	out := make([]Trend, 0, len(ordered))
	for _, b := range ordered {
		t := Trend{
			Month:              b.label,
			Category:           b.category,
			Spending:           b.spending.Round(2),
			PercentageOfIncome: decimal.Zero,
			SavingsRate:        decimal.Zero,
		}
		if income.IsPositive() {
			t.PercentageOfIncome = b.spending.Div(income).Mul(hundred).Round(2)
			t.SavingsRate = income.Sub(b.spending).Div(income).Mul(hundred).Round(2)
		}
		out = append(out, t)
	}

	sort.Strings(ids)
	return OverallAnalysis{
		TotalIncome:    income,
		SpendingTrends: out,
		StatementIDs:   ids,
	}
}
