package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Stats reads the aggregate counters from PostgreSQL.
type Stats struct {
	pool *pgxpool.Pool
}

// NewStats constructs the stats reader.
func NewStats(pool *pgxpool.Pool) *Stats {
	return &Stats{pool: pool}
}

// CountOrdersByStatus counts purchase orders in a status.
func (s *Stats) CountOrdersByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders WHERE status=$1`, status).Scan(&n)
	return n, err
}

// CountPendingDeliveries counts live delivery notes awaiting reception.
func (s *Stats) CountPendingDeliveries(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM delivery_notes WHERE status='pending' AND deleted=false`).Scan(&n)
	return n, err
}

// UnpaidInvoiceTotals returns the count and outstanding amount of purchase
// invoices not fully paid.
func (s *Stats) UnpaidInvoiceTotals(ctx context.Context) (int64, decimal.Decimal, error) {
	var n int64
	var total decimal.Decimal
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(remaining_amount),0)
FROM purchase_invoices WHERE payment_status <> 'paid' AND status <> 'rejected'`).Scan(&n, &total)
	return n, total, err
}

// StockTotalValue sums stock valuation across all locations.
func (s *Stats) StockTotalValue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_value),0) FROM warehouse_stock`).Scan(&total)
	return total, err
}
