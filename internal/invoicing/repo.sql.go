package invoicing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

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
	UpdateStatus(ctx context.Context, id int64, status Status) error
	CreatePayment(ctx context.Context, payment Payment) (int64, error)
	UpdateSettlement(ctx context.Context, id int64, paymentStatus PaymentStatus, paid, remaining decimal.Decimal) error
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

const invoiceColumns = `id, invoice_number, supplier_id, delivery_note_id, total_amount, status, payment_status, paid_amount, remaining_amount, created_at, updated_at`

func scanInvoice(row pgx.Row) (PurchaseInvoice, error) {
	var inv PurchaseInvoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.SupplierID, &inv.DeliveryNoteID, &inv.TotalAmount, &inv.Status, &inv.PaymentStatus, &inv.PaidAmount, &inv.RemainingAmount, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseInvoice{}, ErrNotFound
	}
	return inv, err
}

// Get fetches one invoice by ID.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseInvoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM purchase_invoices WHERE id=$1`, id))
}

// GetByDeliveryNote fetches the invoice generated for one delivery note.
func (r *Repository) GetByDeliveryNote(ctx context.Context, noteID int64) (PurchaseInvoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM purchase_invoices WHERE delivery_note_id=$1`, noteID))
}

// List returns invoices, optionally filtered by payment status.
func (r *Repository) List(ctx context.Context, paymentStatus PaymentStatus) ([]PurchaseInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM purchase_invoices`
	args := []any{}
	if paymentStatus != "" {
		query += ` WHERE payment_status=$1`
		args = append(args, paymentStatus)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []PurchaseInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_invoices SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}

func (tx *txRepo) CreatePayment(ctx context.Context, payment Payment) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_invoice_payments (purchase_invoice_id, amount, paid_at) VALUES ($1,$2,NOW()) RETURNING id`,
		payment.InvoiceID, payment.Amount).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateSettlement(ctx context.Context, id int64, paymentStatus PaymentStatus, paid, remaining decimal.Decimal) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_invoices SET payment_status=$1, paid_amount=$2, remaining_amount=$3, updated_at=NOW() WHERE id=$4`,
		paymentStatus, paid, remaining, id)
	return err
}

// InsertTx writes a freshly generated invoice inside an existing transaction.
// The delivery approval owns that transaction, so stock can never move without
// its matching invoice committing alongside it.
func InsertTx(ctx context.Context, tx pgx.Tx, inv PurchaseInvoice) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `INSERT INTO purchase_invoices (invoice_number, supplier_id, delivery_note_id, total_amount, status, payment_status, paid_amount, remaining_amount, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW()) RETURNING id`,
		inv.Number, inv.SupplierID, inv.DeliveryNoteID, inv.TotalAmount, inv.Status, inv.PaymentStatus, inv.PaidAmount, inv.RemainingAmount).Scan(&id)
	return id, err
}
