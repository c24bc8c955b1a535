package purchasing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order lifecycle statuses.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusDelivered OrderStatus = "delivered"
)

// PurchaseOrder is an intent to buy from a supplier, destined for one warehouse.
type PurchaseOrder struct {
	ID                  int64
	Number              string
	SupplierID          int64
	WarehouseID         int64
	Status              OrderStatus
	TotalAmount         decimal.Decimal
	DeliveryNoteCreated bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OrderItem is one purchased product line.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Qty       float64
	UnitPrice decimal.Decimal
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("purchasing: not found")
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("purchasing: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("purchasing: invalid input")
)
