package invoicing

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice approval statuses.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Payment settlement statuses.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// PurchaseInvoice is the payable document derived from a delivery's actually
// received quantities.
type PurchaseInvoice struct {
	ID              int64
	Number          string
	SupplierID      int64
	DeliveryNoteID  int64
	TotalAmount     decimal.Decimal
	Status          Status
	PaymentStatus   PaymentStatus
	PaidAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Payment is one settlement against an invoice.
type Payment struct {
	ID        int64
	InvoiceID int64
	Amount    decimal.Decimal
	PaidAt    time.Time
}

// ReceivedLine carries the received quantity and original unit price of one
// delivery note item.
type ReceivedLine struct {
	Qty       float64
	UnitPrice decimal.Decimal
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("invoicing: not found")
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("invoicing: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("invoicing: invalid input")
	// ErrOverpayment occurs when a payment exceeds the remaining amount.
	ErrOverpayment = errors.New("invoicing: payment exceeds remaining amount")
)

// InvoiceNumberFor derives the invoice number from the delivery number by
// swapping the document prefix: BL-12345 becomes FA-12345.
func InvoiceNumberFor(deliveryNumber string) string {
	if deliveryNumber == "" {
		return ""
	}
	return "FA-" + strings.TrimPrefix(deliveryNumber, "BL-")
}

// ComputeTotal sums quantity received times unit price over lines with a
// positive received quantity. Lines with nothing received contribute nothing.
func ComputeTotal(lines []ReceivedLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromFloat(line.Qty)))
	}
	return total
}
