package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for warehouse stock.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional stock operations.
type TxRepository interface {
	Increment(ctx context.Context, loc Location, productID int64, qty float64, unitPrice decimal.Decimal) (Row, error)
	Decrement(ctx context.Context, loc Location, productID int64, qty float64) (Row, error)
	RecordMovement(ctx context.Context, loc Location, productID int64, qtyChange float64, reason MovementReason, reference string) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// Get returns the stock row for one product at one location.
func (r *Repository) Get(ctx context.Context, loc Location, productID int64) (Row, error) {
	if err := loc.Validate(); err != nil {
		return Row{}, err
	}
	var row Row
	err := r.pool.QueryRow(ctx, `SELECT id, product_id, COALESCE(warehouse_id,0), COALESCE(pos_location_id,0), quantity, unit_price, total_value, updated_at
FROM warehouse_stock WHERE product_id=$1 AND warehouse_id IS NOT DISTINCT FROM $2 AND pos_location_id IS NOT DISTINCT FROM $3`,
		productID, nullID(loc.WarehouseID), nullID(loc.POSLocationID)).
		Scan(&row.ID, &row.ProductID, &row.WarehouseID, &row.POSLocationID, &row.Qty, &row.UnitPrice, &row.TotalValue, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	return row, err
}

// ListByLocation returns all stock rows at a location.
func (r *Repository) ListByLocation(ctx context.Context, loc Location) ([]Row, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, COALESCE(warehouse_id,0), COALESCE(pos_location_id,0), quantity, unit_price, total_value, updated_at
FROM warehouse_stock WHERE warehouse_id IS NOT DISTINCT FROM $1 AND pos_location_id IS NOT DISTINCT FROM $2 ORDER BY product_id`,
		nullID(loc.WarehouseID), nullID(loc.POSLocationID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.ProductID, &row.WarehouseID, &row.POSLocationID, &row.Qty, &row.UnitPrice, &row.TotalValue, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TotalValue sums total_value across every location.
func (r *Repository) TotalValue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_value),0) FROM warehouse_stock`).Scan(&total)
	return total, err
}

func (tx *txRepo) Increment(ctx context.Context, loc Location, productID int64, qty float64, unitPrice decimal.Decimal) (Row, error) {
	return IncrementTx(ctx, tx.tx, loc, productID, qty, unitPrice)
}

func (tx *txRepo) Decrement(ctx context.Context, loc Location, productID int64, qty float64) (Row, error) {
	return DecrementTx(ctx, tx.tx, loc, productID, qty)
}

func (tx *txRepo) RecordMovement(ctx context.Context, loc Location, productID int64, qtyChange float64, reason MovementReason, reference string) error {
	return RecordMovementTx(ctx, tx.tx, loc, productID, qtyChange, reason, reference)
}

// RecordMovementTx appends one row to the movement history on the caller's
// transaction.
func RecordMovementTx(ctx context.Context, tx pgx.Tx, loc Location, productID int64, qtyChange float64, reason MovementReason, reference string) error {
	_, err := tx.Exec(ctx, `INSERT INTO stock_movements (product_id, warehouse_id, pos_location_id, quantity_change, reason, reference, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())`, productID, nullID(loc.WarehouseID), nullID(loc.POSLocationID), qtyChange, reason, reference)
	return err
}

// IncrementTx applies a stock increase as a single atomic upsert. A new row
// takes the supplied unit price; an existing row keeps its own unit price and
// only the quantity and total value change. Total value is recomputed from the
// surviving unit price, never read-modify-written by the caller.
func IncrementTx(ctx context.Context, tx pgx.Tx, loc Location, productID int64, qty float64, unitPrice decimal.Decimal) (Row, error) {
	if err := loc.Validate(); err != nil {
		return Row{}, err
	}
	if qty <= 0 {
		return Row{}, ErrInvalidQuantity
	}
	query := `INSERT INTO warehouse_stock (product_id, warehouse_id, pos_location_id, quantity, unit_price, total_value, updated_at)
VALUES ($1,$2,$3,$4,$5,$5*$4::numeric,NOW())
ON CONFLICT (product_id, warehouse_id) WHERE warehouse_id IS NOT NULL DO UPDATE
SET quantity = warehouse_stock.quantity + EXCLUDED.quantity,
    total_value = warehouse_stock.unit_price * (warehouse_stock.quantity + EXCLUDED.quantity)::numeric,
    updated_at = NOW()
RETURNING id, product_id, COALESCE(warehouse_id,0), COALESCE(pos_location_id,0), quantity, unit_price, total_value, updated_at`
	if loc.POSLocationID != 0 {
		query = `INSERT INTO warehouse_stock (product_id, warehouse_id, pos_location_id, quantity, unit_price, total_value, updated_at)
VALUES ($1,$2,$3,$4,$5,$5*$4::numeric,NOW())
ON CONFLICT (product_id, pos_location_id) WHERE pos_location_id IS NOT NULL DO UPDATE
SET quantity = warehouse_stock.quantity + EXCLUDED.quantity,
    total_value = warehouse_stock.unit_price * (warehouse_stock.quantity + EXCLUDED.quantity)::numeric,
    updated_at = NOW()
RETURNING id, product_id, COALESCE(warehouse_id,0), COALESCE(pos_location_id,0), quantity, unit_price, total_value, updated_at`
	}
	var row Row
	err := tx.QueryRow(ctx, query, productID, nullID(loc.WarehouseID), nullID(loc.POSLocationID), qty, unitPrice).
		Scan(&row.ID, &row.ProductID, &row.WarehouseID, &row.POSLocationID, &row.Qty, &row.UnitPrice, &row.TotalValue, &row.UpdatedAt)
	return row, err
}

// DecrementTx applies a stock decrease atomically and refuses to go below
// zero. The conditional UPDATE doubles as the existence check.
func DecrementTx(ctx context.Context, tx pgx.Tx, loc Location, productID int64, qty float64) (Row, error) {
	if err := loc.Validate(); err != nil {
		return Row{}, err
	}
	if qty <= 0 {
		return Row{}, ErrInvalidQuantity
	}
	var row Row
	err := tx.QueryRow(ctx, `UPDATE warehouse_stock
SET quantity = quantity - $4,
    total_value = unit_price * (quantity - $4)::numeric,
    updated_at = NOW()
WHERE product_id=$1 AND warehouse_id IS NOT DISTINCT FROM $2 AND pos_location_id IS NOT DISTINCT FROM $3 AND quantity >= $4
RETURNING id, product_id, COALESCE(warehouse_id,0), COALESCE(pos_location_id,0), quantity, unit_price, total_value, updated_at`,
		productID, nullID(loc.WarehouseID), nullID(loc.POSLocationID), qty).
		Scan(&row.ID, &row.ProductID, &row.WarehouseID, &row.POSLocationID, &row.Qty, &row.UnitPrice, &row.TotalValue, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrInsufficientStock
	}
	return row, err
}

func nullID(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
