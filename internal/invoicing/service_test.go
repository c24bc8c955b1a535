package invoicing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comptoir-erp/comptoir/internal/shared"
)

type memoryInvoiceRepo struct {
	invoices map[int64]PurchaseInvoice
	payments []Payment
	nextID   int64
}

type memoryInvoiceTx struct {
	repo *memoryInvoiceRepo
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{invoices: make(map[int64]PurchaseInvoice)}
}

func (r *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryInvoiceTx{repo: r})
}

func (r *memoryInvoiceRepo) Get(ctx context.Context, id int64) (PurchaseInvoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return PurchaseInvoice{}, ErrNotFound
	}
	return inv, nil
}

func (r *memoryInvoiceRepo) GetByDeliveryNote(ctx context.Context, noteID int64) (PurchaseInvoice, error) {
	for _, inv := range r.invoices {
		if inv.DeliveryNoteID == noteID {
			return inv, nil
		}
	}
	return PurchaseInvoice{}, ErrNotFound
}

func (r *memoryInvoiceRepo) List(ctx context.Context, paymentStatus PaymentStatus) ([]PurchaseInvoice, error) {
	var out []PurchaseInvoice
	for _, inv := range r.invoices {
		if paymentStatus == "" || inv.PaymentStatus == paymentStatus {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *memoryInvoiceRepo) add(inv PurchaseInvoice) PurchaseInvoice {
	r.nextID++
	inv.ID = r.nextID
	r.invoices[inv.ID] = inv
	return inv
}

func (tx *memoryInvoiceTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	inv := tx.repo.invoices[id]
	inv.Status = status
	tx.repo.invoices[id] = inv
	return nil
}

func (tx *memoryInvoiceTx) CreatePayment(ctx context.Context, payment Payment) (int64, error) {
	tx.repo.nextID++
	payment.ID = tx.repo.nextID
	tx.repo.payments = append(tx.repo.payments, payment)
	return payment.ID, nil
}

func (tx *memoryInvoiceTx) UpdateSettlement(ctx context.Context, id int64, paymentStatus PaymentStatus, paid, remaining decimal.Decimal) error {
	inv := tx.repo.invoices[id]
	inv.PaymentStatus = paymentStatus
	inv.PaidAmount = paid
	inv.RemainingAmount = remaining
	tx.repo.invoices[id] = inv
	return nil
}

func TestInvoiceNumberFor(t *testing.T) {
	require.Equal(t, "FA-12345678", InvoiceNumberFor("BL-12345678"))
	require.Equal(t, "FA-XYZ", InvoiceNumberFor("XYZ"))
	require.Equal(t, "", InvoiceNumberFor(""))
}

func TestComputeTotalSkipsZeroLines(t *testing.T) {
	total := ComputeTotal([]ReceivedLine{
		{Qty: 3, UnitPrice: decimal.NewFromInt(100)},
		{Qty: 0, UnitPrice: decimal.NewFromInt(50)},
		{Qty: 2, UnitPrice: decimal.NewFromInt(200)},
	})
	require.True(t, total.Equal(decimal.NewFromInt(700)), "got %s", total)
}

func TestBuildFromDeliveryZeroReceipt(t *testing.T) {
	svc := NewService(newMemoryInvoiceRepo(), nil, shared.NewDocumentNumberer())
	_, ok := svc.BuildFromDelivery(1, 2, "BL-1", []ReceivedLine{
		{Qty: 0, UnitPrice: decimal.NewFromInt(100)},
		{Qty: 0, UnitPrice: decimal.NewFromInt(50)},
	})
	require.False(t, ok)
}

func TestBuildFromDelivery(t *testing.T) {
	svc := NewService(newMemoryInvoiceRepo(), nil, shared.NewDocumentNumberer())
	inv, ok := svc.BuildFromDelivery(4, 2, "BL-99", []ReceivedLine{{Qty: 5, UnitPrice: decimal.NewFromInt(10)}})
	require.True(t, ok)
	require.Equal(t, "FA-99", inv.Number)
	require.Equal(t, int64(4), inv.DeliveryNoteID)
	require.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(50)))
	require.True(t, inv.RemainingAmount.Equal(inv.TotalAmount))
	require.Equal(t, StatusPending, inv.Status)
	require.Equal(t, PaymentPending, inv.PaymentStatus)
}

func TestBuildFromDeliveryFallbackNumber(t *testing.T) {
	svc := NewService(newMemoryInvoiceRepo(), nil, shared.NewDocumentNumberer())
	inv, ok := svc.BuildFromDelivery(4, 2, "", []ReceivedLine{{Qty: 1, UnitPrice: decimal.NewFromInt(10)}})
	require.True(t, ok)
	require.Contains(t, inv.Number, "FA-")
}

func TestRegisterPaymentDerivesStatus(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(repo, nil, shared.NewDocumentNumberer())
	ctx := context.Background()

	inv := repo.add(PurchaseInvoice{
		Number:          "FA-1",
		SupplierID:      2,
		TotalAmount:     decimal.NewFromInt(1000),
		Status:          StatusApproved,
		PaymentStatus:   PaymentPending,
		PaidAmount:      decimal.Zero,
		RemainingAmount: decimal.NewFromInt(1000),
	})

	got, err := svc.RegisterPayment(ctx, inv.ID, decimal.NewFromInt(400))
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, got.PaymentStatus)
	require.True(t, got.RemainingAmount.Equal(decimal.NewFromInt(600)))

	got, err = svc.RegisterPayment(ctx, inv.ID, decimal.NewFromInt(600))
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, got.PaymentStatus)
	require.True(t, got.RemainingAmount.IsZero())
	require.Len(t, repo.payments, 2)
}

func TestRegisterPaymentRejectsOverpayment(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(repo, nil, shared.NewDocumentNumberer())

	inv := repo.add(PurchaseInvoice{
		Number:          "FA-2",
		TotalAmount:     decimal.NewFromInt(100),
		Status:          StatusApproved,
		PaymentStatus:   PaymentPending,
		PaidAmount:      decimal.Zero,
		RemainingAmount: decimal.NewFromInt(100),
	})

	_, err := svc.RegisterPayment(context.Background(), inv.ID, decimal.NewFromInt(150))
	require.ErrorIs(t, err, ErrOverpayment)

	_, err = svc.RegisterPayment(context.Background(), inv.ID, decimal.Zero)
	require.ErrorIs(t, err, ErrValidation)
}

func TestTransitionGuards(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := NewService(repo, nil, shared.NewDocumentNumberer())
	ctx := context.Background()

	inv := repo.add(PurchaseInvoice{Number: "FA-3", TotalAmount: decimal.NewFromInt(10), Status: StatusPending, PaymentStatus: PaymentPending, RemainingAmount: decimal.NewFromInt(10)})

	require.NoError(t, svc.Approve(ctx, inv.ID))
	require.ErrorIs(t, svc.Approve(ctx, inv.ID), ErrInvalidState)
	require.ErrorIs(t, svc.Reject(ctx, inv.ID), ErrInvalidState)
}
