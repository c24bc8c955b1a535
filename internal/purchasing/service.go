package purchasing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, []OrderItem, error)
	ListOrders(ctx context.Context, status OrderStatus) ([]PurchaseOrder, error)
}

// AuditPort records state transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates purchase order flows.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	numbers *shared.DocumentNumberer
}

// NewService constructs the purchasing service.
func NewService(repo RepositoryPort, audit AuditPort, numbers *shared.DocumentNumberer) *Service {
	return &Service{repo: repo, audit: audit, numbers: numbers}
}

// CreateOrderInput describes creation payload.
type CreateOrderInput struct {
	SupplierID  int64
	WarehouseID int64
	Items       []OrderItemInput
}

// OrderItemInput describes one requested line.
type OrderItemInput struct {
	ProductID int64
	Qty       float64
	UnitPrice decimal.Decimal
}

// CreateOrder persists the order header and items. The total amount is the sum
// of quantity times unit price over all items.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if input.SupplierID == 0 || input.WarehouseID == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: supplier and warehouse required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: minimal 1 item", ErrValidation)
	}
	total := decimal.Zero
	for _, item := range input.Items {
		if item.ProductID == 0 || item.Qty <= 0 || item.UnitPrice.IsNegative() {
			return PurchaseOrder{}, ErrValidation
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromFloat(item.Qty)))
	}
	order := PurchaseOrder{
		Number:      s.numbers.Next(shared.PrefixPurchaseOrder),
		SupplierID:  input.SupplierID,
		WarehouseID: input.WarehouseID,
		Status:      OrderStatusDraft,
		TotalAmount: total,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		orderID, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		for _, item := range input.Items {
			if err := tx.InsertItem(ctx, OrderItem{OrderID: orderID, ProductID: item.ProductID, Qty: item.Qty, UnitPrice: item.UnitPrice}); err != nil {
				return err
			}
		}
		order.ID = orderID
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_CREATE", order.ID, map[string]any{"number": order.Number, "total": order.TotalAmount.String()})
	return order, nil
}

// SubmitOrder transitions draft orders to pending.
func (s *Service) SubmitOrder(ctx context.Context, orderID int64) error {
	order, _, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != OrderStatusDraft {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, orderID, OrderStatusPending)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PO_SUBMIT", orderID, map[string]any{"number": order.Number})
	return nil
}

// ApproveOrder marks a pending order as approved, making it eligible for a
// delivery note.
func (s *Service) ApproveOrder(ctx context.Context, orderID int64) error {
	order, _, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != OrderStatusPending {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, orderID, OrderStatusApproved)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PO_APPROVE", orderID, map[string]any{"number": order.Number})
	return nil
}

// GetOrder returns the order with its items.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (PurchaseOrder, []OrderItem, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// ListOrders returns orders, optionally filtered by status.
func (s *Service) ListOrders(ctx context.Context, status OrderStatus) ([]PurchaseOrder, error) {
	return s.repo.ListOrders(ctx, status)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
