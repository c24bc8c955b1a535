package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comptoir-erp/comptoir/internal/invoicing"
	"github.com/comptoir-erp/comptoir/internal/purchasing"
	"github.com/comptoir-erp/comptoir/internal/shared"
	"github.com/comptoir-erp/comptoir/internal/stock"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetNote(ctx context.Context, id int64) (Note, []Item, error)
	FindActiveByOrder(ctx context.Context, orderID int64) (Note, []Item, error)
	ListNotes(ctx context.Context, status NoteStatus) ([]Note, error)
}

// OrderPort exposes the purchasing lookups the builder needs.
type OrderPort interface {
	GetOrder(ctx context.Context, id int64) (purchasing.PurchaseOrder, []purchasing.OrderItem, error)
}

// InvoicePort derives the payable invoice for a received delivery. The second
// return value is false when nothing is receivable and no invoice must exist.
type InvoicePort interface {
	BuildFromDelivery(noteID, supplierID int64, deliveryNumber string, lines []invoicing.ReceivedLine) (invoicing.PurchaseInvoice, bool)
}

// IdempotencyPort guards the approval against double submission.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort records state transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// AllowOverDelivery accepts received quantities above the ordered
	// quantity. Off by default; the business has not decided whether
	// over-delivery is legitimate, so it stays behind configuration.
	AllowOverDelivery bool
}

// Service implements the delivery note builder and the approval processor.
type Service struct {
	repo        RepositoryPort
	orders      OrderPort
	invoices    InvoicePort
	idempotency IdempotencyPort
	audit       AuditPort
	numbers     *shared.DocumentNumberer
	allowOver   bool
}

// NewService constructs the delivery service.
func NewService(repo RepositoryPort, orders OrderPort, invoices InvoicePort, idem IdempotencyPort, audit AuditPort, numbers *shared.DocumentNumberer, cfg ServiceConfig) *Service {
	return &Service{repo: repo, orders: orders, invoices: invoices, idempotency: idem, audit: audit, numbers: numbers, allowOver: cfg.AllowOverDelivery}
}

// BuildResult reports the outcome of CreateFromOrder. Created is false when an
// active note already covered the order and the call was an idempotent no-op.
type BuildResult struct {
	Note    Note
	Items   []Item
	Created bool
}

// CreateFromOrder materializes a delivery note and its items from an approved
// purchase order. Calling it twice for the same order is safe: the second call
// finds the first note and reports it instead of creating another. The note,
// its items and the order flag commit in one transaction, so a failure midway
// leaves no orphaned note behind.
func (s *Service) CreateFromOrder(ctx context.Context, orderID int64) (BuildResult, error) {
	order, orderItems, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return BuildResult{}, fmt.Errorf("delivery: fetch order: %w", err)
	}
	if len(orderItems) == 0 {
		return BuildResult{}, ErrEmptyOrder
	}
	if order.Status != purchasing.OrderStatusApproved {
		return BuildResult{}, ErrOrderNotApproved
	}

	if existing, existingItems, err := s.repo.FindActiveByOrder(ctx, orderID); err == nil {
		return BuildResult{Note: existing, Items: existingItems, Created: false}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return BuildResult{}, err
	}

	note := Note{
		Number:          s.numbers.Next(shared.PrefixDeliveryNote),
		PurchaseOrderID: order.ID,
		SupplierID:      order.SupplierID,
		WarehouseID:     order.WarehouseID,
		Status:          NoteStatusPending,
	}
	var items []Item
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		noteID, err := tx.CreateNote(ctx, note)
		if err != nil {
			return err
		}
		note.ID = noteID
		for _, line := range orderItems {
			item := Item{NoteID: noteID, ProductID: line.ProductID, QtyOrdered: line.Qty, QtyReceived: 0, UnitPrice: line.UnitPrice}
			itemID, err := tx.InsertItem(ctx, item)
			if err != nil {
				return err
			}
			item.ID = itemID
			items = append(items, item)
		}
		return tx.SetOrderDeliveryNoteCreated(ctx, order.ID, true)
	})
	if err != nil {
		return BuildResult{}, err
	}
	s.recordAudit(ctx, "BL_CREATE", note.ID, map[string]any{"number": note.Number, "order_id": order.ID})
	return BuildResult{Note: note, Items: items, Created: true}, nil
}

// ReceivedItem pairs a note item with the quantity actually received.
type ReceivedItem struct {
	ItemID int64
	Qty    float64
}

// ApproveResult reports the outcome of an approval.
type ApproveResult struct {
	Note    Note
	Items   []Item
	Stock   []stock.Row
	Invoice *invoicing.PurchaseInvoice
}

// Approve commits received quantities into warehouse stock, closes out the
// note and generates the payable invoice, all in one transaction. Stock rows
// are upserted with an atomic increment; an existing row keeps its unit price,
// a new row takes the delivery item's. A note is approved exactly once: the
// status check and the idempotency key both refuse a second submission.
func (s *Service) Approve(ctx context.Context, noteID, warehouseID int64, received []ReceivedItem) (ApproveResult, error) {
	if warehouseID == 0 {
		return ApproveResult{}, fmt.Errorf("%w: warehouse required", ErrValidation)
	}
	note, items, err := s.repo.GetNote(ctx, noteID)
	if err != nil {
		return ApproveResult{}, err
	}
	if note.Deleted {
		return ApproveResult{}, ErrNotFound
	}
	if note.Status != NoteStatusPending {
		return ApproveResult{}, ErrAlreadyReceived
	}

	byID := make(map[int64]*Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	for _, line := range received {
		item, ok := byID[line.ItemID]
		if !ok {
			return ApproveResult{}, fmt.Errorf("%w: item %d", ErrUnknownItem, line.ItemID)
		}
		if line.Qty < 0 {
			return ApproveResult{}, fmt.Errorf("%w: negative quantity on item %d", ErrValidation, line.ItemID)
		}
		if !s.allowOver && line.Qty > item.QtyOrdered {
			return ApproveResult{}, fmt.Errorf("%w: item %d", ErrOverDelivery, line.ItemID)
		}
		item.QtyReceived = line.Qty
	}

	key := fmt.Sprintf("BL:%s", note.Number)
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "delivery.approve"); err != nil {
			return ApproveResult{}, err
		}
		inserted = true
	}

	now := time.Now().UTC()
	result := ApproveResult{}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i := range items {
			item := &items[i]
			if err := tx.SetItemReceived(ctx, item.ID, item.QtyReceived); err != nil {
				return err
			}
			if item.QtyReceived <= 0 {
				continue
			}
			row, err := tx.IncrementStock(ctx, warehouseID, item.ProductID, item.QtyReceived, item.UnitPrice)
			if err != nil {
				return err
			}
			result.Stock = append(result.Stock, row)
		}
		if err := tx.MarkReceived(ctx, note.ID, warehouseID, now); err != nil {
			return err
		}
		if err := tx.SetOrderDelivered(ctx, note.PurchaseOrderID); err != nil {
			return err
		}
		lines := make([]invoicing.ReceivedLine, 0, len(items))
		for _, item := range items {
			lines = append(lines, invoicing.ReceivedLine{Qty: item.QtyReceived, UnitPrice: item.UnitPrice})
		}
		if inv, ok := s.invoices.BuildFromDelivery(note.ID, note.SupplierID, note.Number, lines); ok {
			id, err := tx.InsertInvoice(ctx, inv)
			if err != nil {
				return err
			}
			inv.ID = id
			result.Invoice = &inv
		}
		return nil
	})
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, key)
		}
		return ApproveResult{}, err
	}

	note.Status = NoteStatusReceived
	note.WarehouseID = warehouseID
	note.ApprovedAt = &now
	result.Note = note
	result.Items = items
	s.recordAudit(ctx, "BL_RECEIVE", note.ID, map[string]any{"number": note.Number, "warehouse_id": warehouseID})
	return result, nil
}

// Delete soft-deletes a pending note and clears the order's delivery flag so
// a fresh note can be built. Received notes stay: their stock and invoice
// effects are already committed and reversal is a separate administrative
// action.
func (s *Service) Delete(ctx context.Context, noteID int64) error {
	note, _, err := s.repo.GetNote(ctx, noteID)
	if err != nil {
		return err
	}
	if note.Deleted {
		return ErrNotFound
	}
	if note.Status != NoteStatusPending {
		return ErrAlreadyReceived
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SoftDelete(ctx, note.ID); err != nil {
			return err
		}
		return tx.SetOrderDeliveryNoteCreated(ctx, note.PurchaseOrderID, false)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "BL_DELETE", note.ID, map[string]any{"number": note.Number})
	return nil
}

// GetNote returns a note with its items. Soft-deleted notes read as missing.
func (s *Service) GetNote(ctx context.Context, noteID int64) (Note, []Item, error) {
	note, items, err := s.repo.GetNote(ctx, noteID)
	if err != nil {
		return Note{}, nil, err
	}
	if note.Deleted {
		return Note{}, nil, ErrNotFound
	}
	return note, items, nil
}

// ListNotes returns non-deleted notes, optionally filtered by status.
func (s *Service) ListNotes(ctx context.Context, status NoteStatus) ([]Note, error) {
	return s.repo.ListNotes(ctx, status)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "delivery_note", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
