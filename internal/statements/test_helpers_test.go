package statements

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"budget-backend/internal/llm"
)

type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	last     llm.Request
}

func (f *fakeLLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.response, f.err
}

type refreshCall struct {
	userID string
	items  []StatementAnalysis
	income decimal.Decimal
}

type fakeTrends struct {
	calls []refreshCall
	err   error
}

func (f *fakeTrends) Refresh(ctx context.Context, userID string, items []StatementAnalysis, income decimal.Decimal) error {
	f.calls = append(f.calls, refreshCall{userID: userID, items: items, income: income})
	return f.err
}

type fixedIncome decimal.Decimal

func (f fixedIncome) Income(ctx context.Context, userID string) (decimal.Decimal, error) {
	return decimal.Decimal(f), nil
}

func newTestService(client llm.Client, trends *fakeTrends, opts Options) *Service {
	svc := NewService(NewMemoryRepo(), trends, fixedIncome(decimal.NewFromInt(2000)), nil, client, opts)
	n := 0
	svc.newID = func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}
	svc.now = func() time.Time { return time.Date(2024, time.March, 20, 10, 0, 0, 0, time.UTC) }
	return svc
}

var errTimeout = fmt.Errorf("openai request timeout after 5m0s: %w", context.DeadlineExceeded)
