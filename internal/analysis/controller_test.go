package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget-backend/internal/allocation"
	"budget-backend/internal/llm"
	"budget-backend/internal/profile"
	"budget-backend/internal/shared/apperr"
	"budget-backend/internal/statements"
)

const completeJSON = `{"summary":"plan","budgetAllocations":[` +
	`{"category":"Rent","amount":900,"percentage":45,"priority":1},` +
	`{"category":"Savings","amount":400,"percentage":20,"priority":2}]}`

type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	respond func(ctx context.Context) (string, error)
}

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	respond := f.respond
	f.mu.Unlock()
	return respond(ctx)
}

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func returning(raw string, err error) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return raw, err }
}

func newTestController(client llm.Client, opts Options) (*Controller, *MemoryRepo) {
	repo := NewMemoryRepo()
	ctrl := NewController(repo, client, opts)
	ctrl.now = func() time.Time { return time.Date(2024, time.September, 1, 12, 0, 0, 0, time.UTC) }
	return ctrl, repo
}

func testPrefs() profile.Preferences {
	return profile.Preferences{}.With("goal", "save for a house").With("risk", "low")
}

func testSnapshot() profile.FinancialSnapshot {
	return profile.FinancialSnapshot{
		Income: decimal.NewFromInt(2000),
		Debts:  []profile.Debt{profile.NewDebt("card", decimal.NewFromInt(1200), 12)},
	}
}

func TestGetOrGenerateStoresCompleteResult(t *testing.T) {
	client := &fakeLLM{respond: returning(completeJSON, nil)}
	ctrl, repo := newTestController(client, Options{Tolerance: decimal.RequireFromString("0.01")})

	out, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil)
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if out.Reused || out.Stale || out.Completeness != Complete {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Plan == nil || len(out.Plan.Allocations) != 2 || out.Plan.OverAllocated {
		t.Fatalf("unexpected plan %+v", out.Plan)
	}
	if got := ctrl.State("user-1"); got != StateReady {
		t.Fatalf("expected ready, got %s", got)
	}
	rec, err := repo.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("repo.Get: %v", err)
	}
	want := profile.Version(testPrefs(), testSnapshot(), nil)
	if rec.ProfileVersion != want || out.ProfileVersion != want {
		t.Fatalf("expected version %s, got record=%s outcome=%s", want, rec.ProfileVersion, out.ProfileVersion)
	}
}

func TestGetOrGenerateReusesUnchangedCompleteRecord(t *testing.T) {
	client := &fakeLLM{respond: returning(completeJSON, nil)}
	ctrl, _ := newTestController(client, Options{})

	if _, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	out, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !out.Reused {
		t.Fatalf("expected reused outcome")
	}
	if client.Calls() != 1 {
		t.Fatalf("expected 1 generation call, got %d", client.Calls())
	}
	if got := ctrl.State("user-1"); got != StateReusable {
		t.Fatalf("expected reusable, got %s", got)
	}
}

func TestGetOrGenerateRegeneratesWhenStatementsChange(t *testing.T) {
	client := &fakeLLM{respond: returning(completeJSON, nil)}
	ctrl, _ := newTestController(client, Options{})

	if _, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	items := []statements.StatementAnalysis{{
		ID:                "sa-1",
		UserID:            "user-1",
		AnalysisDate:      "July 2024",
		CategoryBreakdown: []statements.CategoryAmount{{Category: "Groceries", Amount: decimal.NewFromInt(200)}},
	}}
	out, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), items)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if out.Reused || client.Calls() != 2 {
		t.Fatalf("expected regeneration, reused=%v calls=%d", out.Reused, client.Calls())
	}
}

func TestGetOrGeneratePartialRecordIsNotReused(t *testing.T) {
	client := &fakeLLM{respond: returning("```json\n{\"summary\":\"only a summary\"}\n```", nil)}
	ctrl, repo := newTestController(client, Options{})

	out, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if out.Completeness != Partial {
		t.Fatalf("expected partial, got %s", out.Completeness)
	}
	rec, _ := repo.Get(context.Background(), "user-1")
	if rec.Completeness != Partial || rec.Result == nil || rec.Result.Summary != "only a summary" {
		t.Fatalf("expected partial record stored, got %+v", rec)
	}

	if _, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if client.Calls() != 2 {
		t.Fatalf("expected partial record to be regenerated, calls=%d", client.Calls())
	}
}

func TestGetOrGenerateValidatesBeforeCalling(t *testing.T) {
	client := &fakeLLM{respond: returning(completeJSON, nil)}
	ctrl, _ := newTestController(client, Options{})

	cases := []struct {
		name     string
		userID   string
		snapshot profile.FinancialSnapshot
		field    string
	}{
		{"empty user", "  ", testSnapshot(), "userId"},
		{"negative income", "user-1", profile.FinancialSnapshot{Income: decimal.NewFromInt(-1)}, "income"},
		{"unnamed debt", "user-1", profile.FinancialSnapshot{Debts: []profile.Debt{{TotalAmount: decimal.NewFromInt(10)}}}, "debts"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ctrl.GetOrGenerate(context.Background(), tc.userID, testPrefs(), tc.snapshot, nil)
			var verr *apperr.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
	if client.Calls() != 0 {
		t.Fatalf("expected no generation calls, got %d", client.Calls())
	}
}

func TestGetOrGenerateSingleFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 16)
	client := &fakeLLM{respond: func(ctx context.Context) (string, error) {
		entered <- struct{}{}
		<-release
		return completeJSON, nil
	}}
	ctrl, _ := newTestController(client, Options{})

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	outs := make(chan Outcome, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil)
			errs <- err
			outs <- out
		}()
	}

	<-entered
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	close(outs)

	for err := range errs {
		if err != nil {
			t.Fatalf("caller failed: %v", err)
		}
	}
	for out := range outs {
		if out.Result == nil || out.Completeness != Complete {
			t.Fatalf("expected every caller to get the result, got %+v", out)
		}
	}
	if client.Calls() != 1 {
		t.Fatalf("expected exactly 1 generation call, got %d", client.Calls())
	}
}

func TestGetOrGenerateTimeoutReleasesFlight(t *testing.T) {
	client := &fakeLLM{respond: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	ctrl, _ := newTestController(client, Options{Timeout: 20 * time.Millisecond})

	_, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil)
	var ext *apperr.ExternalServiceError
	if !errors.As(err, &ext) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}
	if ext.Code != apperr.CodeLLMTimeout || !ext.Retryable {
		t.Fatalf("expected retryable timeout, got %+v", ext)
	}
	if got := ctrl.State("user-1"); got != StateFailed {
		t.Fatalf("expected failed, got %s", got)
	}

	client.mu.Lock()
	client.respond = returning(completeJSON, nil)
	client.mu.Unlock()
	out, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil)
	if err != nil {
		t.Fatalf("retry after timeout: %v", err)
	}
	if out.Completeness != Complete || client.Calls() != 2 {
		t.Fatalf("expected a fresh generation, got %+v calls=%d", out, client.Calls())
	}
}

func TestGetOrGenerateCorruptionKeepsPriorRecord(t *testing.T) {
	client := &fakeLLM{respond: returning(completeJSON, nil)}
	ctrl, repo := newTestController(client, Options{})

	first, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}

	client.mu.Lock()
	client.respond = returning("not json at all", nil)
	client.mu.Unlock()
	changed := testPrefs().With("risk", "high")
	out, err := ctrl.GetOrGenerate(context.Background(), "user-1", changed, testSnapshot(), nil)
	var dc *apperr.DataCorruptionError
	if !errors.As(err, &dc) {
		t.Fatalf("expected DataCorruptionError, got %v", err)
	}
	if apperr.Code(err) != apperr.CodeLLMSchemaMismatch {
		t.Fatalf("expected schema mismatch code, got %s", apperr.Code(err))
	}
	if !out.Stale || out.Result == nil || out.ProfileVersion != first.ProfileVersion {
		t.Fatalf("expected stale prior result, got %+v", out)
	}

	rec, _ := repo.Get(context.Background(), "user-1")
	if rec.ProfileVersion != first.ProfileVersion || rec.Completeness != Complete {
		t.Fatalf("expected prior record untouched, got %+v", rec)
	}
	if got := ctrl.State("user-1"); got != StateFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}

func TestGetOrGenerateCallerCancelDoesNotAbortFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	client := &fakeLLM{respond: func(ctx context.Context) (string, error) {
		entered <- struct{}{}
		select {
		case <-release:
			return completeJSON, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
	ctrl, repo := newTestController(client, Options{Timeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ctrl.GetOrGenerate(ctx, "user-1", testPrefs(), testSnapshot(), nil)
		done <- err
	}()
	<-entered
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for ctrl.State("user-1") != StateReady {
		if time.Now().After(deadline) {
			t.Fatalf("flight did not finish, state=%s", ctrl.State("user-1"))
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := repo.Get(context.Background(), "user-1"); err != nil {
		t.Fatalf("expected stored record after detached flight: %v", err)
	}
}

func TestLatestAndState(t *testing.T) {
	ctrl, _ := newTestController(&fakeLLM{respond: returning(completeJSON, nil)}, Options{})
	if got := ctrl.State("nobody"); got != StateIdle {
		t.Fatalf("expected idle, got %s", got)
	}
	if _, err := ctrl.Latest(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil); err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	out, err := ctrl.Latest(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if out.Plan == nil || !out.Plan.Income.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected plan derived against stored income, got %+v", out.Plan)
	}
}

func TestNewControllerDefaultsTolerance(t *testing.T) {
	ctrl, _ := newTestController(nil, Options{})
	if !ctrl.Opts.Tolerance.Equal(allocation.DefaultTolerance) {
		t.Fatalf("expected default tolerance, got %s", ctrl.Opts.Tolerance)
	}

	// 2010 of 2000 income is 100.5%, inside the 1% margin.
	raw := `{"summary":"s","budgetAllocations":[{"category":"Rent","amount":2010,"priority":1}]}`
	ctrl, _ = newTestController(&fakeLLM{respond: returning(raw, nil)}, Options{})
	out, err := ctrl.GetOrGenerate(context.Background(), "user-1", testPrefs(), testSnapshot(), nil)
	if err != nil {
		t.Fatalf("GetOrGenerate: %v", err)
	}
	if out.Plan == nil || out.Plan.OverAllocated {
		t.Fatalf("expected plan within default tolerance, got %+v", out.Plan)
	}
}

func TestStateStaysGeneratingAcrossVersions(t *testing.T) {
	client := &fakeLLM{respond: returning(completeJSON, nil)}
	ctrl, _ := newTestController(client, Options{})
	ctx := context.Background()

	if _, err := ctrl.GetOrGenerate(ctx, "user-1", testPrefs(), testSnapshot(), nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	client.mu.Lock()
	client.respond = func(ctx context.Context) (string, error) {
		entered <- struct{}{}
		<-release
		return completeJSON, nil
	}
	client.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.GetOrGenerate(ctx, "user-1", testPrefs().With("risk", "high"), testSnapshot(), nil)
		done <- err
	}()
	<-entered

	out, err := ctrl.GetOrGenerate(ctx, "user-1", testPrefs(), testSnapshot(), nil)
	if err != nil || !out.Reused {
		t.Fatalf("expected reuse of the stored version, got %+v %v", out, err)
	}
	if got := ctrl.State("user-1"); got != StateGenerating {
		t.Fatalf("expected generating while another version is in flight, got %s", got)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("flight: %v", err)
	}
	if got := ctrl.State("user-1"); got != StateReady {
		t.Fatalf("expected ready after the flight lands, got %s", got)
	}
}
