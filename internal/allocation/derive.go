package allocation

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the fraction of income an allocation may exceed it by.
var DefaultTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// Derive builds a plan using DefaultTolerance.
func Derive(entries []Entry, income decimal.Decimal) Plan {
	return DeriveWithTolerance(entries, income, DefaultTolerance)
}

// DeriveWithTolerance normalizes ranks, recomputes percentages from income
// and flags over-allocation beyond income*(1+tolerance). entries is not modified.
func DeriveWithTolerance(entries []Entry, income, tolerance decimal.Decimal) Plan {
	out := make([]Entry, len(entries))
	copy(out, entries)

	reranked := !isPermutation(out)
	if reranked {
		rerank(out)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })

	total := decimal.Zero
	for _, e := range out {
		total = total.Add(e.Amount)
	}

	plan := Plan{
		Allocations:    out,
		Income:         income,
		TotalAllocated: total,
		Unallocated:    income.Sub(total),
		Reranked:       reranked,
	}

	if !income.IsPositive() {
		plan.Unvalidated = true
		plan.OverAllocated = total.IsPositive()
		return plan
	}

	for i := range out {
		out[i].Percentage = out[i].Amount.Div(income).Mul(hundred).Round(2)
	}
	if tolerance.IsNegative() {
		tolerance = decimal.Zero
	}
	limit := income.Mul(decimal.NewFromInt(1).Add(tolerance))
	plan.OverAllocated = total.GreaterThan(limit)
	return plan
}

func isPermutation(entries []Entry) bool {
	n := len(entries)
	seen := make([]bool, n+1)
	for _, e := range entries {
		p := int(e.Priority)
		if p < 1 || p > n || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

// rerank assigns 1..N by descending amount, then category, then input order.
func rerank(entries []Entry) {
	idx := make([]int, len(entries))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ea, eb := entries[idx[a]], entries[idx[b]]
		if c := ea.Amount.Cmp(eb.Amount); c != 0 {
			return c > 0
		}
		return strings.ToLower(ea.Category) < strings.ToLower(eb.Category)
	})
	for rank, i := range idx {
		entries[i].Priority = Rank(rank + 1)
	}
}
