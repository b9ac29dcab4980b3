// Package questionnaire implements the linear preference form whose completed
// state becomes the user's profile.
package questionnaire

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"budget-backend/internal/shared/apperr"
)

// Kind is the answer type a question accepts.
type Kind string

const (
	KindText        Kind = "text"
	KindChoice      Kind = "choice"
	KindMultiChoice Kind = "multichoice"
	KindNumber      Kind = "number"
)

const maxTextAnswer = 500

// Question is one preference step.
type Question struct {
	ID      string           `json:"id"`
	Prompt  string           `json:"prompt"`
	Kind    Kind             `json:"kind"`
	Options []string         `json:"options,omitempty"`
	Min     *decimal.Decimal `json:"min,omitempty"`
	Max     *decimal.Decimal `json:"max,omitempty"`
}

func bound(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// DefaultQuestions is the preference form served to users.
func DefaultQuestions() []Question {
	return []Question{
		{
			ID:      "primaryGoal",
			Prompt:  "What is your main financial goal right now?",
			Kind:    KindChoice,
			Options: []string{"Build an emergency fund", "Pay off debt", "Save for a home", "Invest for retirement"},
		},
		{
			ID:      "riskTolerance",
			Prompt:  "How comfortable are you with financial risk?",
			Kind:    KindChoice,
			Options: []string{"Low", "Medium", "High"},
		},
		{
			ID:     "savingsTarget",
			Prompt: "What percentage of your income would you like to save each month?",
			Kind:   KindNumber,
			Min:    bound(0),
			Max:    bound(100),
		},
		{
			ID:      "focusAreas",
			Prompt:  "Which spending areas do you most want to control?",
			Kind:    KindMultiChoice,
			Options: []string{"Housing", "Groceries", "Transport", "Dining out", "Entertainment", "Subscriptions"},
		},
		{
			ID:     "notes",
			Prompt: "Anything else we should know about your finances?",
			Kind:   KindText,
		},
	}
}

// Normalize validates value against the question and returns its canonical form.
func (q Question) Normalize(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperr.Invalid(q.ID, "an answer is required")
	}
	switch q.Kind {
	case KindText:
		if utf8.RuneCountInString(value) > maxTextAnswer {
			return "", apperr.Invalid(q.ID, fmt.Sprintf("must be at most %d characters", maxTextAnswer))
		}
		return value, nil
	case KindChoice:
		opt, ok := q.option(value)
		if !ok {
			return "", apperr.Invalid(q.ID, "must be one of: "+strings.Join(q.Options, ", "))
		}
		return opt, nil
	case KindMultiChoice:
		var picked []string
		seen := make(map[string]bool)
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			opt, ok := q.option(part)
			if !ok {
				return "", apperr.Invalid(q.ID, fmt.Sprintf("%q is not an option", part))
			}
			if !seen[opt] {
				seen[opt] = true
				picked = append(picked, opt)
			}
		}
		if len(picked) == 0 {
			return "", apperr.Invalid(q.ID, "pick at least one option")
		}
		return strings.Join(picked, ", "), nil
	case KindNumber:
		n, err := decimal.NewFromString(value)
		if err != nil {
			return "", apperr.Invalid(q.ID, "must be a number")
		}
		if q.Min != nil && n.LessThan(*q.Min) {
			return "", apperr.Invalid(q.ID, "must be at least "+q.Min.String())
		}
		if q.Max != nil && n.GreaterThan(*q.Max) {
			return "", apperr.Invalid(q.ID, "must be at most "+q.Max.String())
		}
		return n.String(), nil
	default:
		return "", apperr.Invalid(q.ID, fmt.Sprintf("unsupported question kind %q", q.Kind))
	}
}

func (q Question) option(value string) (string, bool) {
	for _, opt := range q.Options {
		if strings.EqualFold(opt, value) {
			return opt, true
		}
	}
	return "", false
}
