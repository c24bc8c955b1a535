package purchasing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comptoir-erp/comptoir/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error)
	InsertItem(ctx context.Context, item OrderItem) error
	UpdateStatus(ctx context.Context, id int64, status OrderStatus) error
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

// GetOrder returns a purchase order and its items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, []OrderItem, error) {
	var order PurchaseOrder
	err := r.pool.QueryRow(ctx, `SELECT id, order_number, supplier_id, warehouse_id, status, total_amount, delivery_note_created, created_at, updated_at
FROM purchase_orders WHERE id=$1`, id).
		Scan(&order.ID, &order.Number, &order.SupplierID, &order.WarehouseID, &order.Status, &order.TotalAmount, &order.DeliveryNoteCreated, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, ErrNotFound
		}
		return PurchaseOrder{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_order_id, product_id, quantity, unit_price FROM purchase_order_items WHERE purchase_order_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Qty, &item.UnitPrice); err != nil {
			return PurchaseOrder{}, nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return PurchaseOrder{}, nil, err
	}
	return order, items, nil
}

// ListOrders returns orders filtered by status when provided.
func (r *Repository) ListOrders(ctx context.Context, status OrderStatus) ([]PurchaseOrder, error) {
	query := `SELECT id, order_number, supplier_id, warehouse_id, status, total_amount, delivery_note_created, created_at, updated_at
FROM purchase_orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []PurchaseOrder
	for rows.Next() {
		var order PurchaseOrder
		if err := rows.Scan(&order.ID, &order.Number, &order.SupplierID, &order.WarehouseID, &order.Status, &order.TotalAmount, &order.DeliveryNoteCreated, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (tx *txRepo) CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders (order_number, supplier_id, warehouse_id, status, total_amount, delivery_note_created, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,false,NOW(),NOW()) RETURNING id`, order.Number, order.SupplierID, order.WarehouseID, order.Status, order.TotalAmount).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertItem(ctx context.Context, item OrderItem) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO purchase_order_items (purchase_order_id, product_id, quantity, unit_price) VALUES ($1,$2,$3,$4)`,
		item.OrderID, item.ProductID, item.Qty, item.UnitPrice)
	return err
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status OrderStatus) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}
