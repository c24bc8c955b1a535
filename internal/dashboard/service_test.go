package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	orderCalls    int
	failuresLeft  int
	pendingOrders int64
}

func (f *fakeStats) CountOrdersByStatus(ctx context.Context, status string) (int64, error) {
	f.orderCalls++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return 0, errors.New("transient")
	}
	return f.pendingOrders, nil
}

func (f *fakeStats) CountPendingDeliveries(ctx context.Context) (int64, error) {
	return 2, nil
}

func (f *fakeStats) UnpaidInvoiceTotals(ctx context.Context) (int64, decimal.Decimal, error) {
	return 3, decimal.NewFromInt(1500), nil
}

func (f *fakeStats) StockTotalValue(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(42000), nil
}

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(slog.Default(), client, time.Minute)
}

func TestSummaryAggregatesAndCaches(t *testing.T) {
	stats := &fakeStats{pendingOrders: 5}
	svc := NewService(slog.Default(), stats, testCache(t))

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(5), summary.PendingOrders)
	require.Equal(t, int64(2), summary.PendingDeliveries)
	require.Equal(t, int64(3), summary.UnpaidInvoices)
	require.True(t, summary.UnpaidTotal.Equal(decimal.NewFromInt(1500)))
	require.True(t, summary.StockValue.Equal(decimal.NewFromInt(42000)))

	// second read is served from the cache
	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.orderCalls)
}

func TestSummaryRetriesTransientFailures(t *testing.T) {
	stats := &fakeStats{pendingOrders: 5, failuresLeft: 2}
	svc := NewService(slog.Default(), stats, testCache(t))

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(5), summary.PendingOrders)
	require.Equal(t, 3, stats.orderCalls)
}

func TestSummaryFailsAfterRetriesExhausted(t *testing.T) {
	stats := &fakeStats{failuresLeft: maxRetries}
	svc := NewService(slog.Default(), stats, testCache(t))

	_, err := svc.Summary(context.Background())
	require.Error(t, err)
}

func TestSummaryComputesWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	stats := &fakeStats{pendingOrders: 5}
	svc := NewService(slog.Default(), stats, NewCache(slog.Default(), client, time.Minute))

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(5), summary.PendingOrders)
	require.True(t, summary.StockValue.Equal(decimal.NewFromInt(42000)))

	// still served fresh on every read while the cache is unreachable
	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.orderCalls)
}

func TestWarmRefreshesCache(t *testing.T) {
	stats := &fakeStats{pendingOrders: 5}
	svc := NewService(slog.Default(), stats, testCache(t))

	_, err := svc.Summary(context.Background())
	require.NoError(t, err)

	stats.pendingOrders = 9
	require.NoError(t, svc.Warm(context.Background()))

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(9), summary.PendingOrders)
}
