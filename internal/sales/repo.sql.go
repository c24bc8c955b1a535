package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/platform/db"
	"github.com/comptoir-erp/comptoir/internal/stock"
)

// Repository provides PostgreSQL backed persistence for the sales flow.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional sales operations. Fulfillment runs
// stock decrements, movement records and the invoice insert on one database
// transaction; returns do the same with increments.
type TxRepository interface {
	CreateOrder(ctx context.Context, order Order) (int64, error)
	InsertItem(ctx context.Context, item OrderItem) (int64, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	CreateReturn(ctx context.Context, ret Return) (int64, error)
	InsertReturnItem(ctx context.Context, item ReturnItem) error
	DecrementStock(ctx context.Context, warehouseID, productID int64, qty float64, reference string) (stock.Row, error)
	IncrementStock(ctx context.Context, warehouseID, productID int64, qty float64, unitPrice decimal.Decimal, reference string) (stock.Row, error)
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

const orderColumns = `id, order_number, customer_id, warehouse_id, status, total_amount, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.CustomerID, &o.WarehouseID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// GetOrder returns an order with its items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, []OrderItem, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id=$1`, id))
	if err != nil {
		return Order{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, product_id, quantity, unit_price FROM sales_order_items WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return Order{}, nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Qty, &item.UnitPrice); err != nil {
			return Order{}, nil, err
		}
		items = append(items, item)
	}
	return order, items, rows.Err()
}

// ListOrders returns orders, optionally filtered by status.
func (r *Repository) ListOrders(ctx context.Context, status OrderStatus) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM sales_orders ORDER BY created_at DESC`
	args := []any{}
	if status != "" {
		query = `SELECT ` + orderColumns + ` FROM sales_orders WHERE status=$1 ORDER BY created_at DESC`
		args = append(args, status)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

// GetInvoice returns one sales invoice.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx, `SELECT id, invoice_number, order_id, customer_id, total_amount, created_at FROM sales_invoices WHERE id=$1`, id).
		Scan(&inv.ID, &inv.Number, &inv.OrderID, &inv.CustomerID, &inv.TotalAmount, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

// InvoiceSoldQuantities returns product to sold-quantity for an invoice's
// order, the basis for validating a customer return.
func (r *Repository) InvoiceSoldQuantities(ctx context.Context, invoiceID int64) (map[int64]OrderItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price
FROM sales_order_items i JOIN sales_invoices v ON v.order_id = i.order_id WHERE v.id=$1`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]OrderItem)
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Qty, &item.UnitPrice); err != nil {
			return nil, err
		}
		out[item.ProductID] = item
	}
	return out, rows.Err()
}

func (tx *txRepo) CreateOrder(ctx context.Context, order Order) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO sales_orders (order_number, customer_id, warehouse_id, status, total_amount, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		order.Number, order.CustomerID, order.WarehouseID, order.Status, order.TotalAmount).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertItem(ctx context.Context, item OrderItem) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO sales_order_items (order_id, product_id, quantity, unit_price)
VALUES ($1,$2,$3,$4) RETURNING id`, item.OrderID, item.ProductID, item.Qty, item.UnitPrice).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE sales_orders SET status=$1, updated_at=NOW() WHERE id=$2`, status, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO sales_invoices (invoice_number, order_id, customer_id, total_amount, created_at)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, inv.Number, inv.OrderID, inv.CustomerID, inv.TotalAmount, time.Now().UTC()).Scan(&id)
	return id, err
}

func (tx *txRepo) CreateReturn(ctx context.Context, ret Return) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO customer_returns (return_number, invoice_id, customer_id, reason, created_at)
VALUES ($1,$2,$3,$4,NOW()) RETURNING id`, ret.Number, ret.InvoiceID, ret.CustomerID, ret.Reason).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertReturnItem(ctx context.Context, item ReturnItem) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO customer_return_items (return_id, product_id, quantity, unit_price)
VALUES ($1,$2,$3,$4)`, item.ReturnID, item.ProductID, item.Qty, item.UnitPrice)
	return err
}

func (tx *txRepo) DecrementStock(ctx context.Context, warehouseID, productID int64, qty float64, reference string) (stock.Row, error) {
	loc := stock.Warehouse(warehouseID)
	row, err := stock.DecrementTx(ctx, tx.tx, loc, productID, qty)
	if err != nil {
		return stock.Row{}, err
	}
	if err := stock.RecordMovementTx(ctx, tx.tx, loc, productID, -qty, stock.ReasonSale, reference); err != nil {
		return stock.Row{}, err
	}
	return row, nil
}

func (tx *txRepo) IncrementStock(ctx context.Context, warehouseID, productID int64, qty float64, unitPrice decimal.Decimal, reference string) (stock.Row, error) {
	loc := stock.Warehouse(warehouseID)
	row, err := stock.IncrementTx(ctx, tx.tx, loc, productID, qty, unitPrice)
	if err != nil {
		return stock.Row{}, err
	}
	if err := stock.RecordMovementTx(ctx, tx.tx, loc, productID, qty, stock.ReasonReturn, reference); err != nil {
		return stock.Row{}, err
	}
	return row, nil
}
