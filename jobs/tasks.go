package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/comptoir-erp/comptoir/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarm recomputes the dashboard cache.
	TaskDashboardWarm = "dashboard:warm"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// NewDashboardWarmTask constructs the warmup task.
func NewDashboardWarmTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardWarm, nil)
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// DashboardWarmer is implemented by the dashboard service.
type DashboardWarmer interface {
	Warm(ctx context.Context) error
}

// IdempotencyCleaner is implemented by the shared idempotency store.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// HandleDashboardWarm returns the handler for TaskDashboardWarm.
func HandleDashboardWarm(logger *slog.Logger, metrics *jobmetrics.Metrics, warmer DashboardWarmer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskDashboardWarm)
		if err := tracker.End(warmer.Warm(ctx)); err != nil {
			logger.ErrorContext(ctx, "dashboard warmup failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}

// HandleIdempotencyCleanup returns the handler for TaskIdempotencyCleanup.
// Keys older than a day are long past their double-submit window.
func HandleIdempotencyCleanup(logger *slog.Logger, metrics *jobmetrics.Metrics, cleaner IdempotencyCleaner) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskIdempotencyCleanup)
		if err := tracker.End(cleaner.Cleanup(ctx, 24*time.Hour)); err != nil {
			logger.ErrorContext(ctx, "idempotency cleanup failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}
