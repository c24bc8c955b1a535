// Package dashboard aggregates the counters the back-office landing page
// shows. Reads fan out concurrently, retry a fixed number of times and are
// cached in Redis so the page stays cheap under refresh-happy operators.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	cacheKey   = "dashboard:summary"
	maxRetries = 3
	retryDelay = 150 * time.Millisecond
)

// Summary is the aggregate snapshot served to the landing page.
type Summary struct {
	PendingOrders     int64           `json:"pending_orders"`
	PendingDeliveries int64           `json:"pending_deliveries"`
	UnpaidInvoices    int64           `json:"unpaid_invoices"`
	UnpaidTotal       decimal.Decimal `json:"unpaid_total"`
	StockValue        decimal.Decimal `json:"stock_value"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

// StatsPort exposes the aggregate queries the dashboard reads.
type StatsPort interface {
	CountOrdersByStatus(ctx context.Context, status string) (int64, error)
	CountPendingDeliveries(ctx context.Context) (int64, error)
	UnpaidInvoiceTotals(ctx context.Context) (int64, decimal.Decimal, error)
	StockTotalValue(ctx context.Context) (decimal.Decimal, error)
}

// Service computes and caches the dashboard summary.
type Service struct {
	logger *slog.Logger
	stats  StatsPort
	cache  *Cache
}

// NewService constructs the dashboard service.
func NewService(logger *slog.Logger, stats StatsPort, cache *Cache) *Service {
	return &Service{logger: logger, stats: stats, cache: cache}
}

// Summary returns the cached snapshot, computing it on a miss.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	err := s.cache.FetchJSON(ctx, cacheKey, &out, func(ctx context.Context) (any, error) {
		return s.compute(ctx)
	})
	return out, err
}

// Warm recomputes the snapshot and replaces the cached value. Scheduled from
// the background worker so operators rarely pay the compute cost.
func (s *Service) Warm(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx, cacheKey); err != nil {
		return err
	}
	_, err := s.Summary(ctx)
	return err
}

func (s *Service) compute(ctx context.Context) (Summary, error) {
	summary := Summary{GeneratedAt: time.Now().UTC()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.withRetry(ctx, "pending_orders", func(ctx context.Context) error {
			n, err := s.stats.CountOrdersByStatus(ctx, "pending")
			summary.PendingOrders = n
			return err
		})
	})
	g.Go(func() error {
		return s.withRetry(ctx, "pending_deliveries", func(ctx context.Context) error {
			n, err := s.stats.CountPendingDeliveries(ctx)
			summary.PendingDeliveries = n
			return err
		})
	})
	g.Go(func() error {
		return s.withRetry(ctx, "unpaid_invoices", func(ctx context.Context) error {
			n, total, err := s.stats.UnpaidInvoiceTotals(ctx)
			summary.UnpaidInvoices = n
			summary.UnpaidTotal = total
			return err
		})
	})
	g.Go(func() error {
		return s.withRetry(ctx, "stock_value", func(ctx context.Context) error {
			total, err := s.stats.StockTotalValue(ctx)
			summary.StockValue = total
			return err
		})
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// withRetry retries transient read failures a fixed number of times before
// giving up, so one flaky query does not blank the whole page.
func (s *Service) withRetry(ctx context.Context, name string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		s.logger.WarnContext(ctx, "dashboard query failed",
			slog.String("query", name), slog.Int("attempt", attempt), slog.Any("error", err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return err
}
