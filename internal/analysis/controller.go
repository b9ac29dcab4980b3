package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"budget-backend/internal/allocation"
	"budget-backend/internal/llm"
	"budget-backend/internal/profile"
	"budget-backend/internal/shared/apperr"
	"budget-backend/internal/shared/metrics"
	"budget-backend/internal/shared/telemetry"
	"budget-backend/internal/statements"
	"budget-backend/internal/trends"
)

const opGenerate = "generate analysis"

// Options configures generation.
type Options struct {
	Timeout         time.Duration
	// Tolerance is the over-allocation margin as a fraction of income.
	// Zero selects allocation.DefaultTolerance.
	Tolerance       decimal.Decimal
	MaxOutputTokens int
	Temperature     float64
}

// Outcome is what GetOrGenerate and Latest hand back to callers.
type Outcome struct {
	Result         *AnalysisResult  `json:"result"`
	Plan           *allocation.Plan `json:"plan,omitempty"`
	Completeness   Completeness     `json:"completeness"`
	ProfileVersion string           `json:"profileVersion"`
	StoredAt       time.Time        `json:"storedAt"`
	Reused         bool             `json:"reused"`
	Shared         bool             `json:"shared"`
	Stale          bool             `json:"stale"`
}

// Controller serves a user's budget plan from the cache when the profile is
// unchanged and otherwise generates one, with at most one generation in
// flight per user and profile version.
type Controller struct {
	Repo Repo
	LLM  llm.Client
	Opts Options

	flights singleflight.Group

	mu     sync.Mutex
	states map[string]State
	// flying counts generations in progress per user across profile versions.
	flying map[string]int

	now func() time.Time
}

// NewController constructs a Controller.
func NewController(repo Repo, client llm.Client, opts Options) *Controller {
	if opts.Tolerance.IsZero() {
		opts.Tolerance = allocation.DefaultTolerance
	}
	return &Controller{
		Repo:   repo,
		LLM:    client,
		Opts:   opts,
		states: make(map[string]State),
		flying: make(map[string]int),
		now:    time.Now,
	}
}

type flightResult struct {
	record CacheRecord
	reused bool
}

// GetOrGenerate returns the stored plan when it was produced for the same
// profile version and is complete. Otherwise it generates a new one. On
// failure the returned Outcome still carries the last stored result, marked
// Stale, alongside the error.
func (c *Controller) GetOrGenerate(ctx context.Context, userID string, prefs profile.Preferences, snapshot profile.FinancialSnapshot, items []statements.StatementAnalysis) (Outcome, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Outcome{}, apperr.Invalid("userId", "is required")
	}
	if err := snapshot.Validate(); err != nil {
		return Outcome{}, err
	}
	snapshot = snapshot.Normalize()

	c.setState(userID, StateChecking)
	overall := trends.Aggregate(items, snapshot.Income)
	version := profile.Version(prefs, snapshot, overall.StatementIDs)

	prior, err := c.load(ctx, userID)
	if err != nil {
		c.setState(userID, StateFailed)
		return Outcome{}, err
	}
	if prior.ReusableFor(version) {
		c.setState(userID, StateReusable)
		metrics.IncCacheReused()
		telemetry.Info("analysis.cache_reused", map[string]any{
			"userId":  userID,
			"version": version,
		})
		out := c.outcome(prior)
		out.Reused = true
		return out, nil
	}

	c.setState(userID, StateGenerating)
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(userID+"|"+version, func() (any, error) {
		return c.generate(flightCtx, userID, version, prefs, snapshot, overall)
	})

	select {
	case <-ctx.Done():
		// The flight keeps running for other callers and stores its result.
		return c.stale(prior), ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.IncGenerationShared()
		}
		if res.Err != nil {
			return c.stale(prior), res.Err
		}
		fr := res.Val.(flightResult)
		out := c.outcome(fr.record)
		out.Reused = fr.reused
		out.Shared = res.Shared
		return out, nil
	}
}

func (c *Controller) generate(ctx context.Context, userID, version string, prefs profile.Preferences, snapshot profile.FinancialSnapshot, overall trends.OverallAnalysis) (flightResult, error) {
	c.takeoff(userID)
	defer c.land(userID)
	if c.Opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Opts.Timeout)
		defer cancel()
	}

	// A flight that finished just before this one started may already have stored the plan.
	current, err := c.load(ctx, userID)
	if err != nil {
		c.setState(userID, StateFailed)
		return flightResult{}, err
	}
	if current.ReusableFor(version) {
		c.setState(userID, StateReusable)
		metrics.IncCacheReused()
		return flightResult{record: current, reused: true}, nil
	}

	if c.LLM == nil {
		c.setState(userID, StateFailed)
		return flightResult{}, apperr.External(opGenerate, llm.ErrNotImplemented)
	}
	prompt, err := buildPrompt(prefs, snapshot, overall)
	if err != nil {
		c.setState(userID, StateFailed)
		return flightResult{}, err
	}

	metrics.IncGenerationStarted()
	start := time.Now()
	raw, err := c.LLM.Generate(ctx, llm.Request{
		System:          llm.SystemJSON,
		Prompt:          prompt,
		MaxOutputTokens: c.Opts.MaxOutputTokens,
		Temperature:     c.Opts.Temperature,
		JSONOutput:      true,
	})
	metrics.ObserveGenerationDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if errors.Is(err, llm.ErrDocumentTooLarge) {
			err = apperr.SizeLimit(opGenerate, err)
		} else {
			err = apperr.External(opGenerate, err)
		}
		return flightResult{}, c.fail(userID, version, err)
	}

	parsed, err := ParseResult(raw)
	if err != nil {
		return flightResult{}, c.fail(userID, version, err)
	}

	rec := CacheRecord{
		UserID:         userID,
		ProfileVersion: version,
		Income:         snapshot.Income,
		Result:         &parsed.Result,
		Completeness:   parsed.Completeness,
		StoredAt:       c.now().UTC(),
	}
	if err := c.Repo.Upsert(ctx, rec); err != nil {
		return flightResult{}, c.fail(userID, version, fmt.Errorf("store analysis user=%s: %w", userID, err))
	}

	metrics.IncGenerationCompleted()
	c.setState(userID, StateReady)
	telemetry.Info("analysis.generated", map[string]any{
		"userId":       userID,
		"version":      version,
		"completeness": string(parsed.Completeness),
		"fenced":       parsed.Fenced,
		"allocations":  len(parsed.Result.BudgetAllocations),
		"durationMs":   time.Since(start).Milliseconds(),
	})
	return flightResult{record: rec}, nil
}

func (c *Controller) fail(userID, version string, err error) error {
	metrics.IncGenerationFailed()
	c.setState(userID, StateFailed)
	telemetry.Warn("analysis.generation_failed", map[string]any{
		"userId":  userID,
		"version": version,
		"code":    apperr.Code(err),
		"error":   apperr.Sanitize(err),
	})
	return err
}

// Latest returns the stored plan without generating. ErrNotFound when none exists.
func (c *Controller) Latest(ctx context.Context, userID string) (Outcome, error) {
	rec, err := c.Repo.Get(ctx, userID)
	if err != nil {
		return Outcome{}, err
	}
	return c.outcome(rec), nil
}

// State reports the user's lifecycle state. While any generation for the user
// is running, whatever its profile version, the state is Generating; otherwise
// it is the last recorded transition. Users never seen are Idle.
func (c *Controller) State(userID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flying[userID] > 0 {
		return StateGenerating
	}
	if st, ok := c.states[userID]; ok {
		return st
	}
	return StateIdle
}

func (c *Controller) takeoff(userID string) {
	c.mu.Lock()
	c.flying[userID]++
	c.mu.Unlock()
}

func (c *Controller) land(userID string) {
	c.mu.Lock()
	if c.flying[userID]--; c.flying[userID] <= 0 {
		delete(c.flying, userID)
	}
	c.mu.Unlock()
}

func (c *Controller) setState(userID string, st State) {
	c.mu.Lock()
	c.states[userID] = st
	c.mu.Unlock()
}

func (c *Controller) load(ctx context.Context, userID string) (CacheRecord, error) {
	rec, err := c.Repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return CacheRecord{}, nil
		}
		return CacheRecord{}, fmt.Errorf("load analysis user=%s: %w", userID, err)
	}
	return rec, nil
}

func (c *Controller) outcome(rec CacheRecord) Outcome {
	out := Outcome{
		Result:         rec.Result,
		Completeness:   rec.Completeness,
		ProfileVersion: rec.ProfileVersion,
		StoredAt:       rec.StoredAt,
	}
	if rec.Result != nil {
		plan := allocation.DeriveWithTolerance(rec.Result.BudgetAllocations, rec.Income, c.Opts.Tolerance)
		out.Plan = &plan
	}
	return out
}

func (c *Controller) stale(prior CacheRecord) Outcome {
	if prior.Result == nil {
		return Outcome{}
	}
	out := c.outcome(prior)
	out.Stale = true
	return out
}
