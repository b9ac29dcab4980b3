// Package analysis owns the budget plan lifecycle: parsing generation
// output, caching it per profile version and deduplicating generation calls.
package analysis

import (
	"time"

	"github.com/shopspring/decimal"

	"budget-backend/internal/allocation"
)

// Completeness classifies a stored generation result.
type Completeness string

const (
	// Complete results carry at least one budget allocation and may be reused.
	Complete Completeness = "complete"
	// Partial results parsed but lack budget allocations. Stored, never reused.
	Partial Completeness = "partial"
	// Corrupted marks a stored record that could not be decoded.
	Corrupted Completeness = "corrupted"
)

// Priority is one ranked financial goal.
type Priority struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// RiskAssessment summarises the plan's financial risk.
type RiskAssessment struct {
	Level      string   `json:"level"`
	Factors    []string `json:"factors"`
	Mitigation string   `json:"mitigation,omitempty"`
}

// Timeline groups actions by horizon.
type Timeline struct {
	ShortTerm  []string `json:"shortTerm"`
	MediumTerm []string `json:"mediumTerm"`
	LongTerm   []string `json:"longTerm"`
}

// AutoAllocationRule moves a share of income automatically.
type AutoAllocationRule struct {
	Category   string          `json:"category"`
	Percentage decimal.Decimal `json:"percentage"`
	Condition  string          `json:"condition,omitempty"`
}

// ProgressMetric is a measurable target to track.
type ProgressMetric struct {
	Name      string `json:"name"`
	Target    string `json:"target"`
	Frequency string `json:"frequency,omitempty"`
}

// AnalysisResult is the parsed budget plan.
type AnalysisResult struct {
	Summary             string               `json:"summary"`
	BudgetAllocations   []allocation.Entry   `json:"budgetAllocations"`
	Priorities          []Priority           `json:"priorities"`
	RiskAssessment      RiskAssessment       `json:"riskAssessment"`
	Timeline            Timeline             `json:"timeline"`
	AutoAllocationRules []AutoAllocationRule `json:"autoAllocationRules"`
	Recommendations     []string             `json:"recommendations"`
	ProgressMetrics     []ProgressMetric     `json:"progressMetrics"`
}

// CacheRecord is the single stored plan for a user.
type CacheRecord struct {
	UserID         string          `json:"userId"`
	ProfileVersion string          `json:"profileVersion"`
	Income         decimal.Decimal `json:"income"`
	Result         *AnalysisResult `json:"result"`
	Completeness   Completeness    `json:"completeness"`
	StoredAt       time.Time       `json:"storedAt"`
}

// ReusableFor reports whether the record can be served for version without generating.
func (r CacheRecord) ReusableFor(version string) bool {
	return r.ProfileVersion == version && r.Completeness == Complete && r.Result != nil
}

// State is the controller's per-user lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateChecking   State = "checking"
	StateReusable   State = "reusable"
	StateGenerating State = "generating"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)
