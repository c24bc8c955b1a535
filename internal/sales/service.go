package sales

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/shared"
	"github.com/comptoir-erp/comptoir/internal/stock"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (Order, []OrderItem, error)
	ListOrders(ctx context.Context, status OrderStatus) ([]Order, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	InvoiceSoldQuantities(ctx context.Context, invoiceID int64) (map[int64]OrderItem, error)
}

// AuditPort records state transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the sales flow: order, fulfillment with invoice, and
// customer returns.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	numbers *shared.DocumentNumberer
}

// NewService constructs the sales service.
func NewService(repo RepositoryPort, audit AuditPort, numbers *shared.DocumentNumberer) *Service {
	return &Service{repo: repo, audit: audit, numbers: numbers}
}

// OrderItemInput is one requested line.
type OrderItemInput struct {
	ProductID int64
	Qty       float64
	UnitPrice decimal.Decimal
}

// CreateOrderInput carries the fields to create a sales order.
type CreateOrderInput struct {
	CustomerID  int64
	WarehouseID int64
	Items       []OrderItemInput
}

// CreateOrder registers a draft sales order with its items.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (Order, error) {
	if input.CustomerID == 0 || input.WarehouseID == 0 {
		return Order{}, fmt.Errorf("%w: customer and warehouse required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return Order{}, fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	total := decimal.Zero
	for _, item := range input.Items {
		if item.ProductID == 0 || item.Qty <= 0 || item.UnitPrice.IsNegative() {
			return Order{}, fmt.Errorf("%w: invalid item", ErrValidation)
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromFloat(item.Qty)))
	}
	order := Order{
		Number:      s.numbers.Next(shared.PrefixSalesOrder),
		CustomerID:  input.CustomerID,
		WarehouseID: input.WarehouseID,
		Status:      OrderStatusDraft,
		TotalAmount: total,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		for _, item := range input.Items {
			if _, err := tx.InsertItem(ctx, OrderItem{OrderID: id, ProductID: item.ProductID, Qty: item.Qty, UnitPrice: item.UnitPrice}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, "VTE_CREATE", order.ID, map[string]any{"number": order.Number})
	return order, nil
}

// ConfirmOrder moves a draft order to confirmed.
func (s *Service) ConfirmOrder(ctx context.Context, orderID int64) error {
	order, _, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != OrderStatusDraft {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateOrderStatus(ctx, orderID, OrderStatusConfirmed)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "VTE_CONFIRM", orderID, map[string]any{"number": order.Number})
	return nil
}

// FulfillResult reports the outcome of a fulfillment.
type FulfillResult struct {
	Order   Order
	Invoice Invoice
	Stock   []stock.Row
}

// Fulfill ships a confirmed order: every line's quantity leaves the warehouse
// and the customer invoice is written, all in one transaction. Insufficient
// stock on any line aborts the whole shipment.
func (s *Service) Fulfill(ctx context.Context, orderID int64) (FulfillResult, error) {
	order, items, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return FulfillResult{}, err
	}
	if order.Status != OrderStatusConfirmed {
		return FulfillResult{}, ErrInvalidState
	}
	inv := Invoice{
		Number:      s.numbers.Next(shared.PrefixSalesInvoice),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
	}
	result := FulfillResult{}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, item := range items {
			row, err := tx.DecrementStock(ctx, order.WarehouseID, item.ProductID, item.Qty, order.Number)
			if err != nil {
				return err
			}
			result.Stock = append(result.Stock, row)
		}
		id, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return tx.UpdateOrderStatus(ctx, order.ID, OrderStatusInvoiced)
	})
	if err != nil {
		return FulfillResult{}, err
	}
	order.Status = OrderStatusInvoiced
	result.Order = order
	result.Invoice = inv
	s.recordAudit(ctx, "VTE_FULFILL", order.ID, map[string]any{"number": order.Number, "invoice": inv.Number})
	return result, nil
}

// ReturnLineInput is one returned product with its quantity.
type ReturnLineInput struct {
	ProductID int64
	Qty       float64
}

// RegisterReturn puts returned goods back into the warehouse against an
// invoice. Each line is capped at the sold quantity and re-enters stock at the
// invoice line's unit price.
func (s *Service) RegisterReturn(ctx context.Context, invoiceID, warehouseID int64, reason string, lines []ReturnLineInput) (Return, error) {
	if warehouseID == 0 {
		return Return{}, fmt.Errorf("%w: warehouse required", ErrValidation)
	}
	if len(lines) == 0 {
		return Return{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return Return{}, err
	}
	sold, err := s.repo.InvoiceSoldQuantities(ctx, invoiceID)
	if err != nil {
		return Return{}, err
	}
	for _, line := range lines {
		item, ok := sold[line.ProductID]
		if !ok {
			return Return{}, fmt.Errorf("%w: product %d not on invoice", ErrValidation, line.ProductID)
		}
		if line.Qty <= 0 {
			return Return{}, fmt.Errorf("%w: invalid quantity for product %d", ErrValidation, line.ProductID)
		}
		if line.Qty > item.Qty {
			return Return{}, fmt.Errorf("%w: product %d", ErrReturnExceedsSold, line.ProductID)
		}
	}
	ret := Return{
		Number:     s.numbers.Next(shared.PrefixCustomerReturn),
		InvoiceID:  inv.ID,
		CustomerID: inv.CustomerID,
		Reason:     reason,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateReturn(ctx, ret)
		if err != nil {
			return err
		}
		ret.ID = id
		for _, line := range lines {
			item := sold[line.ProductID]
			if err := tx.InsertReturnItem(ctx, ReturnItem{ReturnID: id, ProductID: line.ProductID, Qty: line.Qty, UnitPrice: item.UnitPrice}); err != nil {
				return err
			}
			if _, err := tx.IncrementStock(ctx, warehouseID, line.ProductID, line.Qty, item.UnitPrice, ret.Number); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Return{}, err
	}
	s.recordAudit(ctx, "RT_CREATE", ret.ID, map[string]any{"number": ret.Number, "invoice": inv.Number})
	return ret, nil
}

// GetOrder returns an order with its items.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, []OrderItem, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns orders, optionally filtered by status.
func (s *Service) ListOrders(ctx context.Context, status OrderStatus) ([]Order, error) {
	return s.repo.ListOrders(ctx, status)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "sales", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
