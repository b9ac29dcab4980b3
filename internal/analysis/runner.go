package analysis

import (
	"context"
	"errors"
	"fmt"

	"budget-backend/internal/profile"
	"budget-backend/internal/shared/apperr"
	"budget-backend/internal/statements"
)

// StatementLister lists the statement analyses that enrich a user's plan.
type StatementLister interface {
	ListByUser(ctx context.Context, userID string) ([]statements.StatementAnalysis, error)
}

// Runner loads a user's stored profile and statements and hands them to the controller.
type Runner struct {
	Ctrl       *Controller
	Profiles   profile.Repo
	Statements StatementLister
}

// Run produces the plan for the user's saved profile.
func (r *Runner) Run(ctx context.Context, userID string) (Outcome, error) {
	p, err := r.Profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return Outcome{}, apperr.Invalid("profile", "complete the questionnaire first")
		}
		return Outcome{}, fmt.Errorf("load profile user=%s: %w", userID, err)
	}
	return r.RunWith(ctx, userID, p.Preferences, p.Snapshot)
}

// RunWith produces the plan for the given profile, enriched with the user's statements.
func (r *Runner) RunWith(ctx context.Context, userID string, prefs profile.Preferences, snapshot profile.FinancialSnapshot) (Outcome, error) {
	var items []statements.StatementAnalysis
	if r.Statements != nil {
		var err error
		items, err = r.Statements.ListByUser(ctx, userID)
		if err != nil {
			return Outcome{}, fmt.Errorf("list statements user=%s: %w", userID, err)
		}
	}
	return r.Ctrl.GetOrGenerate(ctx, userID, prefs, snapshot, items)
}

// Complete runs the analysis for a profile the questionnaire just froze.
func (r *Runner) Complete(ctx context.Context, p profile.Profile) error {
	_, err := r.RunWith(ctx, p.UserID, p.Preferences, p.Snapshot)
	return err
}
