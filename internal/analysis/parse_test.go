package analysis

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"budget-backend/internal/shared/apperr"
)

func TestParseResultFencedSummaryIsPartial(t *testing.T) {
	parsed, err := ParseResult("```json\n{\"summary\":\"ok\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Completeness != Partial {
		t.Fatalf("expected partial, got %s", parsed.Completeness)
	}
	if parsed.Result.Summary != "ok" || !parsed.Fenced {
		t.Fatalf("unexpected parse %+v", parsed)
	}
}

func TestParseResultNotJSON(t *testing.T) {
	_, err := ParseResult("not json at all")
	var dc *apperr.DataCorruptionError
	if !errors.As(err, &dc) {
		t.Fatalf("expected DataCorruptionError, got %v", err)
	}
	if dc.Length != len("not json at all") || dc.Prefix != "not json at all" {
		t.Fatalf("unexpected diagnostics %+v", dc)
	}
}

func TestParseResultWrongTypesAreTolerated(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Completeness
	}{
		{name: "numeric summary", raw: `{"summary": 42}`, want: Partial},
		{name: "allocations not a list of objects", raw: `{"summary":"s","budgetAllocations":"Rent 900"}`, want: Partial},
		{name: "valid JSON that is not an object", raw: `["a","b"]`, want: Partial},
		{name: "string priorities", raw: `{"summary":"s","budgetAllocations":[{"category":"Rent","amount":900,"percentage":45,"priority":1}],"priorities":["Pay off card"]}`, want: Complete},
		{name: "string timeline horizon", raw: `{"summary":"s","budgetAllocations":[{"category":"Rent","amount":900,"priority":1}],"timeline":{"shortTerm":"build buffer","longTerm":[1,"invest"]}}`, want: Complete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseResult(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed.Completeness != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, parsed.Completeness)
			}
		})
	}
}

func TestParseResultCoercesMembers(t *testing.T) {
	raw := `{"summary":7,
		"budgetAllocations":[{"category":"Rent","amount":900,"priority":1}, "stray", {"category":12,"amount":true}],
		"priorities":["Pay off card", {"title":"Emergency fund","description":"3 months"}, {"description":"untitled"}, null],
		"riskAssessment":"high",
		"timeline":{"shortTerm":"build buffer"},
		"autoAllocationRules":[{"category":"Savings","percentage":"10"}, {"percentage":5}],
		"recommendations":"Cook at home",
		"progressMetrics":{"name":"Debt","target":"0 by 2025"}}`
	parsed, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := parsed.Result
	if r.Summary != "7" {
		t.Fatalf("expected numeric summary kept as text, got %q", r.Summary)
	}
	if len(r.BudgetAllocations) != 2 || r.BudgetAllocations[1].Category != "12" || !r.BudgetAllocations[1].Amount.IsZero() {
		t.Fatalf("unexpected allocations %+v", r.BudgetAllocations)
	}
	if len(r.Priorities) != 2 || r.Priorities[0].Title != "Pay off card" || r.Priorities[1].Description != "3 months" {
		t.Fatalf("unexpected priorities %+v", r.Priorities)
	}
	if r.RiskAssessment.Level != "high" {
		t.Fatalf("unexpected risk %+v", r.RiskAssessment)
	}
	if len(r.Timeline.ShortTerm) != 1 || r.Timeline.ShortTerm[0] != "build buffer" {
		t.Fatalf("unexpected timeline %+v", r.Timeline)
	}
	if len(r.AutoAllocationRules) != 1 || !r.AutoAllocationRules[0].Percentage.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected rules %+v", r.AutoAllocationRules)
	}
	if len(r.Recommendations) != 1 || len(r.ProgressMetrics) != 1 || r.ProgressMetrics[0].Target != "0 by 2025" {
		t.Fatalf("unexpected recommendations %+v metrics %+v", r.Recommendations, r.ProgressMetrics)
	}
	if parsed.Completeness != Complete {
		t.Fatalf("expected complete, got %s", parsed.Completeness)
	}
}

func TestParseResultBrokenSyntaxIsCorruption(t *testing.T) {
	_, err := ParseResult(`{"summary":"s","budgetAllocations":[{"category":"Rent"`)
	if apperr.Code(err) != apperr.CodeLLMSchemaMismatch {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestParseResultTrailingGarbage(t *testing.T) {
	raw := `Here is your plan: {"summary":"s","budgetAllocations":[{"category":"Rent","amount":900,"percentage":45,"priority":1}]} Let me know!`
	parsed, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Completeness != Complete || len(parsed.Result.BudgetAllocations) != 1 {
		t.Fatalf("unexpected parse %+v", parsed)
	}
}

func TestParseResultRepairsAllocations(t *testing.T) {
	raw := `{"summary":"s","budgetAllocations":[
		{"category":"  ","amount":10,"priority":1},
		{"category":"Rent","amount":-5,"percentage":140,"priority":"2"},
		{"category":"Food","amount":"300","percentage":-3,"priority":"first"}
	]}`
	parsed, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	allocs := parsed.Result.BudgetAllocations
	if len(allocs) != 2 {
		t.Fatalf("expected blank category dropped, got %d entries", len(allocs))
	}
	if !allocs[0].Amount.IsZero() || !allocs[0].Percentage.Equal(hundred) || allocs[0].Priority != 2 {
		t.Fatalf("unexpected rent entry %+v", allocs[0])
	}
	if !allocs[1].Percentage.IsZero() || allocs[1].Priority != 0 {
		t.Fatalf("unexpected food entry %+v", allocs[1])
	}
	if parsed.Completeness != Complete {
		t.Fatalf("expected complete, got %s", parsed.Completeness)
	}
}

func TestParseResultOnlyBlankAllocationsIsPartial(t *testing.T) {
	parsed, err := ParseResult(`{"summary":"s","budgetAllocations":[{"category":"","amount":1}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Completeness != Partial {
		t.Fatalf("expected partial, got %s", parsed.Completeness)
	}
}
