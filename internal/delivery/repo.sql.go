package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/invoicing"
	"github.com/comptoir-erp/comptoir/internal/platform/db"
	"github.com/comptoir-erp/comptoir/internal/stock"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations of the reconciliation transaction.
// Stock increments and invoice insertion run on the same database transaction
// as the note mutation, so either the whole reception commits or none of it.
type TxRepository interface {
	CreateNote(ctx context.Context, note Note) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	SetItemReceived(ctx context.Context, itemID int64, qty float64) error
	MarkReceived(ctx context.Context, noteID, warehouseID int64, at time.Time) error
	SoftDelete(ctx context.Context, noteID int64) error
	SetOrderDeliveryNoteCreated(ctx context.Context, orderID int64, created bool) error
	SetOrderDelivered(ctx context.Context, orderID int64) error
	IncrementStock(ctx context.Context, warehouseID, productID int64, qty float64, unitPrice decimal.Decimal) (stock.Row, error)
	InsertInvoice(ctx context.Context, inv invoicing.PurchaseInvoice) (int64, error)
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

const noteColumns = `id, delivery_number, purchase_order_id, supplier_id, COALESCE(warehouse_id,0), status, notes, deleted, approved_at, created_at, updated_at`

func scanNote(row pgx.Row) (Note, error) {
	var note Note
	err := row.Scan(&note.ID, &note.Number, &note.PurchaseOrderID, &note.SupplierID, &note.WarehouseID, &note.Status, &note.Notes, &note.Deleted, &note.ApprovedAt, &note.CreatedAt, &note.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return note, err
}

// GetNote returns a note and its items, including soft-deleted notes; the
// service layer decides how deletion surfaces.
func (r *Repository) GetNote(ctx context.Context, id int64) (Note, []Item, error) {
	note, err := scanNote(r.pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM delivery_notes WHERE id=$1`, id))
	if err != nil {
		return Note{}, nil, err
	}
	items, err := r.noteItems(ctx, id)
	if err != nil {
		return Note{}, nil, err
	}
	return note, items, nil
}

// FindActiveByOrder returns the non-deleted note referencing an order, if any.
func (r *Repository) FindActiveByOrder(ctx context.Context, orderID int64) (Note, []Item, error) {
	note, err := scanNote(r.pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM delivery_notes WHERE purchase_order_id=$1 AND deleted=false`, orderID))
	if err != nil {
		return Note{}, nil, err
	}
	items, err := r.noteItems(ctx, note.ID)
	if err != nil {
		return Note{}, nil, err
	}
	return note, items, nil
}

// ListNotes returns non-deleted notes, optionally filtered by status.
func (r *Repository) ListNotes(ctx context.Context, status NoteStatus) ([]Note, error) {
	query := `SELECT ` + noteColumns + ` FROM delivery_notes WHERE deleted=false`
	args := []any{}
	if status != "" {
		query += ` AND status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var notes []Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (r *Repository) noteItems(ctx context.Context, noteID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, delivery_note_id, product_id, quantity_ordered, quantity_received, unit_price
FROM delivery_note_items WHERE delivery_note_id=$1 ORDER BY id`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.NoteID, &item.ProductID, &item.QtyOrdered, &item.QtyReceived, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (tx *txRepo) CreateNote(ctx context.Context, note Note) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO delivery_notes (delivery_number, purchase_order_id, supplier_id, warehouse_id, status, notes, deleted, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,false,NOW(),NOW()) RETURNING id`,
		note.Number, note.PurchaseOrderID, note.SupplierID, nullID(note.WarehouseID), note.Status, note.Notes).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO delivery_note_items (delivery_note_id, product_id, quantity_ordered, quantity_received, unit_price)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, item.NoteID, item.ProductID, item.QtyOrdered, item.QtyReceived, item.UnitPrice).Scan(&id)
	return id, err
}

func (tx *txRepo) SetItemReceived(ctx context.Context, itemID int64, qty float64) error {
	_, err := tx.tx.Exec(ctx, `UPDATE delivery_note_items SET quantity_received=$1 WHERE id=$2`, qty, itemID)
	return err
}

func (tx *txRepo) MarkReceived(ctx context.Context, noteID, warehouseID int64, at time.Time) error {
	_, err := tx.tx.Exec(ctx, `UPDATE delivery_notes SET status=$1, warehouse_id=$2, approved_at=$3, updated_at=NOW() WHERE id=$4`,
		NoteStatusReceived, warehouseID, at, noteID)
	return err
}

func (tx *txRepo) SoftDelete(ctx context.Context, noteID int64) error {
	_, err := tx.tx.Exec(ctx, `UPDATE delivery_notes SET deleted=true, updated_at=NOW() WHERE id=$1`, noteID)
	return err
}

func (tx *txRepo) SetOrderDeliveryNoteCreated(ctx context.Context, orderID int64, created bool) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET delivery_note_created=$1, updated_at=NOW() WHERE id=$2`, created, orderID)
	return err
}

func (tx *txRepo) SetOrderDelivered(ctx context.Context, orderID int64) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status='delivered', updated_at=NOW() WHERE id=$1`, orderID)
	return err
}

func (tx *txRepo) IncrementStock(ctx context.Context, warehouseID, productID int64, qty float64, unitPrice decimal.Decimal) (stock.Row, error) {
	return stock.IncrementTx(ctx, tx.tx, stock.Warehouse(warehouseID), productID, qty, unitPrice)
}

func (tx *txRepo) InsertInvoice(ctx context.Context, inv invoicing.PurchaseInvoice) (int64, error) {
	return invoicing.InsertTx(ctx, tx.tx, inv)
}

func nullID(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
