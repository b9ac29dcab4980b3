package allocation

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDeriveKeepsValidPermutation(t *testing.T) {
	entries := []Entry{
		{Category: "Savings", Amount: dec("500"), Priority: 2},
		{Category: "Rent", Amount: dec("1000"), Priority: 1},
		{Category: "Fun", Amount: dec("100"), Priority: 3},
	}
	plan := Derive(entries, dec("2000"))
	if plan.Reranked {
		t.Fatalf("expected ranks to be kept")
	}
	want := []string{"Rent", "Savings", "Fun"}
	for i, e := range plan.Allocations {
		if e.Category != want[i] || int(e.Priority) != i+1 {
			t.Fatalf("position %d = %s/%d, want %s/%d", i, e.Category, e.Priority, want[i], i+1)
		}
	}
	if !plan.Allocations[0].Percentage.Equal(dec("50")) {
		t.Fatalf("expected rent at 50%%, got %s", plan.Allocations[0].Percentage)
	}
	if !plan.Unallocated.Equal(dec("400")) {
		t.Fatalf("expected 400 unallocated, got %s", plan.Unallocated)
	}
}

func TestDeriveRerankInvalidPriorities(t *testing.T) {
	tests := []struct {
		name  string
		ranks []Rank
	}{
		{name: "duplicates", ranks: []Rank{1, 1, 2}},
		{name: "gap", ranks: []Rank{1, 2, 4}},
		{name: "zeros", ranks: []Rank{0, 0, 0}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			entries := []Entry{
				{Category: "food", Amount: dec("300"), Priority: tt.ranks[0]},
				{Category: "Bills", Amount: dec("300"), Priority: tt.ranks[1]},
				{Category: "Rent", Amount: dec("900"), Priority: tt.ranks[2]},
			}
			plan := Derive(entries, dec("2000"))
			if !plan.Reranked {
				t.Fatalf("expected rerank")
			}
			want := []string{"Rent", "Bills", "food"}
			for i, e := range plan.Allocations {
				if e.Category != want[i] || int(e.Priority) != i+1 {
					t.Fatalf("position %d = %s/%d, want %s/%d", i, e.Category, e.Priority, want[i], i+1)
				}
			}
		})
	}
}

func TestDeriveOverAllocationTolerance(t *testing.T) {
	over := Derive([]Entry{{Category: "All", Amount: dec("2100"), Priority: 1}}, dec("2000"))
	if !over.OverAllocated {
		t.Fatalf("105%% of income should be over-allocated")
	}
	within := Derive([]Entry{{Category: "All", Amount: dec("2010"), Priority: 1}}, dec("2000"))
	if within.OverAllocated {
		t.Fatalf("100.5%% of income should be within tolerance")
	}
	strict := DeriveWithTolerance([]Entry{{Category: "All", Amount: dec("2010"), Priority: 1}}, dec("2000"), decimal.Zero)
	if !strict.OverAllocated {
		t.Fatalf("zero tolerance should flag 100.5%%")
	}
}

func TestDeriveZeroIncomeIsUnvalidated(t *testing.T) {
	entries := []Entry{{Category: "Rent", Amount: dec("800"), Percentage: dec("40"), Priority: 1}}
	plan := Derive(entries, decimal.Zero)
	if !plan.Unvalidated {
		t.Fatalf("expected unvalidated plan")
	}
	if !plan.Allocations[0].Percentage.Equal(dec("40")) {
		t.Fatalf("expected provided percentage kept, got %s", plan.Allocations[0].Percentage)
	}
	if !plan.OverAllocated {
		t.Fatalf("any spend against zero income is over-allocated")
	}
}

func TestDeriveDoesNotMutateInput(t *testing.T) {
	entries := []Entry{
		{Category: "B", Amount: dec("10"), Priority: 5},
		{Category: "A", Amount: dec("20"), Priority: 5},
	}
	_ = Derive(entries, dec("100"))
	if entries[0].Category != "B" || entries[0].Priority != 5 || !entries[0].Percentage.IsZero() {
		t.Fatalf("input was mutated: %+v", entries[0])
	}
}

func TestDeriveEmpty(t *testing.T) {
	plan := Derive(nil, dec("1000"))
	if len(plan.Allocations) != 0 || plan.OverAllocated || plan.Reranked {
		t.Fatalf("unexpected plan for empty input: %+v", plan)
	}
}

func TestRankUnmarshalTolerant(t *testing.T) {
	tests := []struct {
		raw  string
		want Rank
	}{
		{raw: `3`, want: 3},
		{raw: `"2"`, want: 2},
		{raw: `" 4 "`, want: 4},
		{raw: `2.0`, want: 2},
		{raw: `2.5`, want: 0},
		{raw: `"high"`, want: 0},
		{raw: `null`, want: 0},
		{raw: `-1`, want: 0},
		{raw: `{"a":1}`, want: 0},
	}
	for _, tt := range tests {
		var e Entry
		if err := json.Unmarshal([]byte(`{"category":"x","amount":1,"priority":`+tt.raw+`}`), &e); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if e.Priority != tt.want {
			t.Fatalf("priority %s = %d, want %d", tt.raw, e.Priority, tt.want)
		}
	}
}
