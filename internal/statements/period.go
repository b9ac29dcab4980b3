package statements

import (
	"regexp"
	"strings"
	"time"
)

// MonthLabel is the canonical layout for a statement month.
const MonthLabel = "January 2006"

// Day-first dates are tried before month-first ones.
var periodLayouts = []string{
	"January 2006",
	"Jan 2006",
	"January, 2006",
	"2006-01",
	"2006/01",
	"2006-01-02",
	"01/2006",
	"02/01/2006",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	time.RFC3339,
}

var septPattern = regexp.MustCompile(`(?i)\bsept\b\.?`)

// ParsePeriod resolves a statement period label to the first day of its month.
func ParsePeriod(label string) (time.Time, bool) {
	s := strings.Join(strings.Fields(label), " ")
	s = septPattern.ReplaceAllString(s, "Sep")
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
