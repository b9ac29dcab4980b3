package statements

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		label string
		ok    bool
		want  string
	}{
		{label: "March 2024", ok: true, want: "March 2024"},
		{label: " Mar  2024 ", ok: true, want: "March 2024"},
		{label: "march 2024", ok: true, want: "March 2024"},
		{label: "Sept 2024", ok: true, want: "September 2024"},
		{label: "sept. 2024", ok: true, want: "September 2024"},
		{label: "2024-03", ok: true, want: "March 2024"},
		{label: "2024/03", ok: true, want: "March 2024"},
		{label: "2024-03-31", ok: true, want: "March 2024"},
		{label: "03/2024", ok: true, want: "March 2024"},
		{label: "15/07/2024", ok: true, want: "July 2024"},
		{label: "07/15/2024", ok: true, want: "July 2024"},
		{label: "Jul 15, 2024", ok: true, want: "July 2024"},
		{label: "2024-03-31T23:00:00Z", ok: true, want: "March 2024"},
		{label: "sometime", ok: false},
		{label: "not a month", ok: false},
		{label: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParsePeriod(tt.label)
		if ok != tt.ok {
			t.Fatalf("ParsePeriod(%q) ok = %v, want %v", tt.label, ok, tt.ok)
		}
		if ok && got.Format(MonthLabel) != tt.want {
			t.Fatalf("ParsePeriod(%q) = %s, want %s", tt.label, got.Format(MonthLabel), tt.want)
		}
	}
}

func TestInputValidateRejectsUnreadablePeriod(t *testing.T) {
	in := Input{
		StatementID:       "s1",
		AnalysisDate:      "not a month",
		CategoryBreakdown: []CategoryAmount{{Category: "Food", Amount: decimal.NewFromInt(10)}},
	}
	if _, err := in.validate(); err == nil {
		t.Fatalf("expected unreadable analysisDate to be rejected")
	}

	in.AnalysisDate = "Sept 2024"
	if _, err := in.validate(); err != nil {
		t.Fatalf("expected Sept 2024 to validate: %v", err)
	}
}
