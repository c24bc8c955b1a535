package sales

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Sales order lifecycle.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusInvoiced  OrderStatus = "invoiced"
)

// Order is a customer sale to be fulfilled from a warehouse.
type Order struct {
	ID          int64
	Number      string
	CustomerID  int64
	WarehouseID int64
	Status      OrderStatus
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem is one product line on a sales order.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Qty       float64
	UnitPrice decimal.Decimal
}

// Invoice is the customer-facing invoice generated at fulfillment. The stock
// decrement and the invoice row commit together.
type Invoice struct {
	ID          int64
	Number      string
	OrderID     int64
	CustomerID  int64
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
}

// Return records goods a customer brought back. Returned quantities re-enter
// the warehouse at the price they left with.
type Return struct {
	ID         int64
	Number     string
	InvoiceID  int64
	CustomerID int64
	Reason     string
	CreatedAt  time.Time
}

// ReturnItem is one returned product line.
type ReturnItem struct {
	ID        int64
	ReturnID  int64
	ProductID int64
	Qty       float64
	UnitPrice decimal.Decimal
}

var (
	// ErrNotFound indicates a missing order, invoice or return.
	ErrNotFound = errors.New("sales: not found")
	// ErrInvalidState rejects a transition the lifecycle does not allow.
	ErrInvalidState = errors.New("sales: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("sales: invalid input")
	// ErrReturnExceedsSold occurs when a return line exceeds the sold quantity.
	ErrReturnExceedsSold = errors.New("sales: returned quantity exceeds sold quantity")
)
