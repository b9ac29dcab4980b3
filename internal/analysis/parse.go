package analysis

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"budget-backend/internal/allocation"
	"budget-backend/internal/llm"
)

// Parsed is a decoded generation result with its completeness.
type Parsed struct {
	Result       AnalysisResult
	Completeness Completeness
	// Fenced reports whether the output was wrapped in a markdown code fence.
	Fenced bool
}

var hundred = decimal.NewFromInt(100)

// ParseResult decodes untrusted generation output. Code fences and text around
// the outermost JSON object are tolerated; output that is not JSON at all is a
// *apperr.DataCorruptionError. Members are decoded one by one: a member of the
// wrong type is coerced when the intent is clear (a bare string where a list
// is expected) and dropped otherwise. The result is Complete only when at
// least one allocation survives repair.
func ParseResult(raw string) (Parsed, error) {
	fields, fenced, err := llm.Fields(raw)
	if err != nil {
		return Parsed{}, err
	}

	result := AnalysisResult{
		Summary:             stringValue(fields["summary"]),
		BudgetAllocations:   repairAllocations(decodeList(fields["budgetAllocations"], decodeEntry)),
		Priorities:          decodeList(fields["priorities"], decodePriority),
		RiskAssessment:      decodeRisk(fields["riskAssessment"]),
		Timeline:            decodeTimeline(fields["timeline"]),
		AutoAllocationRules: decodeList(fields["autoAllocationRules"], decodeRule),
		Recommendations:     stringList(fields["recommendations"]),
		ProgressMetrics:     decodeList(fields["progressMetrics"], decodeMetric),
	}

	completeness := Partial
	if len(result.BudgetAllocations) > 0 {
		completeness = Complete
	}
	return Parsed{Result: result, Completeness: completeness, Fenced: fenced}, nil
}

func repairAllocations(in []allocation.Entry) []allocation.Entry {
	out := make([]allocation.Entry, 0, len(in))
	for _, e := range in {
		e.Category = strings.TrimSpace(e.Category)
		if e.Category == "" {
			continue
		}
		if e.Amount.IsNegative() {
			e.Amount = decimal.Zero
		}
		switch {
		case e.Percentage.IsNegative():
			e.Percentage = decimal.Zero
		case e.Percentage.GreaterThan(hundred):
			e.Percentage = hundred
		}
		out = append(out, e)
	}
	return out
}

func decodeEntry(raw json.RawMessage) (allocation.Entry, bool) {
	obj, ok := object(raw)
	if !ok {
		return allocation.Entry{}, false
	}
	e := allocation.Entry{
		Category:    stringValue(obj["category"]),
		Amount:      decimalValue(obj["amount"]),
		Percentage:  decimalValue(obj["percentage"]),
		Description: stringValue(obj["description"]),
	}
	if p, ok := obj["priority"]; ok {
		_ = e.Priority.UnmarshalJSON(p)
	}
	return e, true
}

func decodePriority(raw json.RawMessage) (Priority, bool) {
	if obj, ok := object(raw); ok {
		p := Priority{Title: stringValue(obj["title"]), Description: stringValue(obj["description"])}
		return p, p.Title != ""
	}
	title := stringValue(raw)
	return Priority{Title: title}, title != ""
}

func decodeRisk(raw json.RawMessage) RiskAssessment {
	obj, ok := object(raw)
	if !ok {
		return RiskAssessment{Level: stringValue(raw)}
	}
	return RiskAssessment{
		Level:      stringValue(obj["level"]),
		Factors:    stringList(obj["factors"]),
		Mitigation: stringValue(obj["mitigation"]),
	}
}

func decodeTimeline(raw json.RawMessage) Timeline {
	obj, _ := object(raw)
	return Timeline{
		ShortTerm:  stringList(obj["shortTerm"]),
		MediumTerm: stringList(obj["mediumTerm"]),
		LongTerm:   stringList(obj["longTerm"]),
	}
}

func decodeRule(raw json.RawMessage) (AutoAllocationRule, bool) {
	obj, ok := object(raw)
	if !ok {
		return AutoAllocationRule{}, false
	}
	r := AutoAllocationRule{
		Category:   strings.TrimSpace(stringValue(obj["category"])),
		Percentage: decimalValue(obj["percentage"]),
		Condition:  stringValue(obj["condition"]),
	}
	return r, r.Category != ""
}

func decodeMetric(raw json.RawMessage) (ProgressMetric, bool) {
	obj, ok := object(raw)
	if !ok {
		return ProgressMetric{}, false
	}
	m := ProgressMetric{
		Name:      stringValue(obj["name"]),
		Target:    stringValue(obj["target"]),
		Frequency: stringValue(obj["frequency"]),
	}
	return m, m.Name != ""
}

// decodeList decodes each array element with decode, skipping the ones it
// rejects. A single non-array value is treated as a one-element list.
func decodeList[T any](raw json.RawMessage, decode func(json.RawMessage) (T, bool)) []T {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var items []json.RawMessage
	if raw[0] != '[' || json.Unmarshal(raw, &items) != nil {
		items = []json.RawMessage{raw}
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if v, ok := decode(item); ok {
			out = append(out, v)
		}
	}
	return out
}

func stringList(raw json.RawMessage) []string {
	return decodeList(raw, func(item json.RawMessage) (string, bool) {
		s := stringValue(item)
		return s, s != ""
	})
}

// stringValue returns a JSON string, or the literal text of a number or
// boolean. Objects, arrays and null yield "".
func stringValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '{', '[', 'n':
		return ""
	default:
		return string(raw)
	}
}

// decimalValue accepts numbers and numeric strings; anything else is zero.
func decimalValue(raw json.RawMessage) decimal.Decimal {
	var d decimal.Decimal
	if len(bytes.TrimSpace(raw)) == 0 || d.UnmarshalJSON(raw) != nil {
		return decimal.Zero
	}
	return d
}

func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return nil, false
	}
	return obj, true
}
