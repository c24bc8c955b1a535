package invoicing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (PurchaseInvoice, error)
	GetByDeliveryNote(ctx context.Context, noteID int64) (PurchaseInvoice, error)
	List(ctx context.Context, paymentStatus PaymentStatus) ([]PurchaseInvoice, error)
}

// AuditPort records state transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the payable side of received deliveries.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	numbers *shared.DocumentNumberer
}

// NewService constructs the invoicing service.
func NewService(repo RepositoryPort, audit AuditPort, numbers *shared.DocumentNumberer) *Service {
	return &Service{repo: repo, audit: audit, numbers: numbers}
}

// BuildFromDelivery derives the payable invoice for a delivery's received
// quantities. It returns false when nothing was received: zero receivable
// means no invoice, a business no-op rather than an error. The caller persists
// the returned value inside its own transaction.
func (s *Service) BuildFromDelivery(noteID, supplierID int64, deliveryNumber string, lines []ReceivedLine) (PurchaseInvoice, bool) {
	total := ComputeTotal(lines)
	if !total.IsPositive() {
		return PurchaseInvoice{}, false
	}
	number := InvoiceNumberFor(deliveryNumber)
	if number == "" {
		number = s.numbers.Next(shared.PrefixPurchaseInvoice)
	}
	return PurchaseInvoice{
		Number:          number,
		SupplierID:      supplierID,
		DeliveryNoteID:  noteID,
		TotalAmount:     total,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		PaidAmount:      decimal.Zero,
		RemainingAmount: total,
	}, true
}

// Approve marks a pending invoice approved.
func (s *Service) Approve(ctx context.Context, invoiceID int64) error {
	return s.transition(ctx, invoiceID, StatusPending, StatusApproved, "INVOICE_APPROVE")
}

// Reject marks a pending invoice rejected.
func (s *Service) Reject(ctx context.Context, invoiceID int64) error {
	return s.transition(ctx, invoiceID, StatusPending, StatusRejected, "INVOICE_REJECT")
}

func (s *Service) transition(ctx context.Context, invoiceID int64, from, to Status, action string) error {
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != from {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, invoiceID, to)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, action, invoiceID, map[string]any{"number": inv.Number})
	return nil
}

// RegisterPayment records a settlement and derives the payment status:
// partial while an amount remains, paid once fully settled.
func (s *Service) RegisterPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal) (PurchaseInvoice, error) {
	if !amount.IsPositive() {
		return PurchaseInvoice{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return PurchaseInvoice{}, err
	}
	if inv.Status == StatusRejected {
		return PurchaseInvoice{}, ErrInvalidState
	}
	if amount.GreaterThan(inv.RemainingAmount) {
		return PurchaseInvoice{}, ErrOverpayment
	}
	paid := inv.PaidAmount.Add(amount)
	remaining := inv.TotalAmount.Sub(paid)
	status := PaymentPartial
	if remaining.IsZero() {
		status = PaymentPaid
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.CreatePayment(ctx, Payment{InvoiceID: invoiceID, Amount: amount}); err != nil {
			return err
		}
		return tx.UpdateSettlement(ctx, invoiceID, status, paid, remaining)
	})
	if err != nil {
		return PurchaseInvoice{}, err
	}
	inv.PaidAmount = paid
	inv.RemainingAmount = remaining
	inv.PaymentStatus = status
	s.recordAudit(ctx, "INVOICE_PAYMENT", invoiceID, map[string]any{"number": inv.Number, "amount": amount.String(), "payment_status": string(status)})
	return inv, nil
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, invoiceID int64) (PurchaseInvoice, error) {
	return s.repo.Get(ctx, invoiceID)
}

// GetByDeliveryNote returns the invoice generated for a delivery note.
func (s *Service) GetByDeliveryNote(ctx context.Context, noteID int64) (PurchaseInvoice, error) {
	return s.repo.GetByDeliveryNote(ctx, noteID)
}

// List returns invoices, optionally filtered by payment status.
func (s *Service) List(ctx context.Context, paymentStatus PaymentStatus) ([]PurchaseInvoice, error) {
	return s.repo.List(ctx, paymentStatus)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "purchase_invoice", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
