package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"budget-backend/internal/bootstrap"
	"budget-backend/internal/shared/apperr"
	"budget-backend/internal/shared/config"
	"budget-backend/internal/shared/metrics"
	"budget-backend/internal/shared/storage/db"
	"budget-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(os.Stdout, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		telemetry.Logger().Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, db.DefaultWorkerOptions())
	if err != nil {
		telemetry.Logger().Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	logger := cron.VerbosePrintfLogger(telemetry.Logger())
	scheduler := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	job := func() {
		reaggregate(ctx, app.StatementsRepo, app.StatementsService, cfg.WorkerConcurrency)
	}
	if _, err := scheduler.AddFunc(cfg.ReaggregateSchedule, job); err != nil {
		telemetry.Logger().Fatalf("invalid REAGGREGATE_SCHEDULE %q: %v", cfg.ReaggregateSchedule, err)
	}

	telemetry.Info("worker.start", map[string]any{
		"schedule":    cfg.ReaggregateSchedule,
		"concurrency": cfg.WorkerConcurrency,
	})
	job()
	scheduler.Start()

	<-ctx.Done()
	telemetry.Info("worker.shutdown", map[string]any{"timeout": cfg.ShutdownTimeout.String()})
	select {
	case <-scheduler.Stop().Done():
	case <-time.After(cfg.ShutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

type userLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

type trendRefresher interface {
	RefreshTrends(ctx context.Context, userID string) error
}

// reaggregate rebuilds every user's trends, bounded to concurrency refreshes at a time.
func reaggregate(ctx context.Context, users userLister, svc trendRefresher, concurrency int) (int, int) {
	start := time.Now()
	ids, err := users.ListUserIDs(ctx)
	if err != nil {
		telemetry.Error("worker.reaggregate.list_failed", map[string]any{"error": apperr.Sanitize(err)})
		return 0, 0
	}

	sem := make(chan struct{}, max(1, concurrency))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		ok     int
		failed int
	)
schedule:
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break schedule
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := svc.RefreshTrends(ctx, userID); err != nil {
				metrics.IncReaggregateFailed()
				telemetry.Warn("worker.reaggregate.failed", map[string]any{
					"userId": userID,
					"error":  apperr.Sanitize(err),
				})
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			metrics.IncReaggregated()
			mu.Lock()
			ok++
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	telemetry.Info("worker.reaggregate.completed", map[string]any{
		"users":      len(ids),
		"ok":         ok,
		"failed":     failed,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return ok, failed
}
