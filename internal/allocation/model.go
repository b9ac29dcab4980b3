// Package allocation turns generated budget allocations into a
// consistently ranked plan checked against income.
package allocation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Rank is an allocation priority. 1 is the most important.
// Decoding accepts numbers and numeric strings; anything else decodes to 0.
type Rank int

// UnmarshalJSON implements tolerant rank decoding.
func (r *Rank) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = 0
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return nil
	}
	*r = Rank(f)
	return nil
}

// Entry is one budget line.
type Entry struct {
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Percentage  decimal.Decimal `json:"percentage"`
	Priority    Rank            `json:"priority"`
	Description string          `json:"description,omitempty"`
}

// Plan is the derived, rank-ordered allocation.
type Plan struct {
	Allocations    []Entry         `json:"allocations"`
	Income         decimal.Decimal `json:"income"`
	TotalAllocated decimal.Decimal `json:"totalAllocated"`
	Unallocated    decimal.Decimal `json:"unallocated"`
	OverAllocated  bool            `json:"overAllocated"`
	// Unvalidated is set when income is zero and percentages could not be recomputed.
	Unvalidated bool `json:"unvalidated"`
	// Reranked is set when the supplied priorities were not 1..N.
	Reranked bool `json:"reranked"`
}
