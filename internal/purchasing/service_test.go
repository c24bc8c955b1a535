package purchasing

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comptoir-erp/comptoir/internal/shared"
)

type memoryOrderRepo struct {
	orders map[int64]PurchaseOrder
	items  map[int64][]OrderItem
	nextID int64
}

type memoryOrderTx struct {
	repo *memoryOrderRepo
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[int64]PurchaseOrder), items: make(map[int64][]OrderItem)}
}

func (r *memoryOrderRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryOrderTx{repo: r})
}

func (r *memoryOrderRepo) GetOrder(ctx context.Context, id int64) (PurchaseOrder, []OrderItem, error) {
	order, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, nil, ErrNotFound
	}
	return order, r.items[id], nil
}

func (r *memoryOrderRepo) ListOrders(ctx context.Context, status OrderStatus) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, order := range r.orders {
		if status == "" || order.Status == status {
			out = append(out, order)
		}
	}
	return out, nil
}

func (tx *memoryOrderTx) CreateOrder(ctx context.Context, order PurchaseOrder) (int64, error) {
	tx.repo.nextID++
	order.ID = tx.repo.nextID
	tx.repo.orders[order.ID] = order
	return order.ID, nil
}

func (tx *memoryOrderTx) InsertItem(ctx context.Context, item OrderItem) error {
	tx.repo.items[item.OrderID] = append(tx.repo.items[item.OrderID], item)
	return nil
}

func (tx *memoryOrderTx) UpdateStatus(ctx context.Context, id int64, status OrderStatus) error {
	order, ok := tx.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	tx.repo.orders[id] = order
	return nil
}

func newPurchasingService(repo *memoryOrderRepo) *Service {
	return NewService(repo, nil, shared.NewDocumentNumberer())
}

func TestCreateOrderComputesTotal(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID:  4,
		WarehouseID: 2,
		Items: []OrderItemInput{
			{ProductID: 1, Qty: 10, UnitPrice: decimal.NewFromInt(500)},
			{ProductID: 2, Qty: 5, UnitPrice: decimal.NewFromInt(1000)},
		},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(order.Number, "CMD-"))
	require.Equal(t, OrderStatusDraft, order.Status)
	require.True(t, order.TotalAmount.Equal(decimal.NewFromInt(10000)), "got %s", order.TotalAmount)
	require.Len(t, repo.items[order.ID], 2)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newPurchasingService(newMemoryOrderRepo())
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateOrderInput{SupplierID: 0, WarehouseID: 2, Items: []OrderItemInput{{ProductID: 1, Qty: 1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{SupplierID: 4, WarehouseID: 2})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{SupplierID: 4, WarehouseID: 2, Items: []OrderItemInput{{ProductID: 1, Qty: -3}}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestOrderWorkflow(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, CreateOrderInput{
		SupplierID:  4,
		WarehouseID: 2,
		Items:       []OrderItemInput{{ProductID: 1, Qty: 1, UnitPrice: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)

	// approval requires a prior submission
	require.ErrorIs(t, svc.ApproveOrder(ctx, order.ID), ErrInvalidState)

	require.NoError(t, svc.SubmitOrder(ctx, order.ID))
	require.ErrorIs(t, svc.SubmitOrder(ctx, order.ID), ErrInvalidState)

	require.NoError(t, svc.ApproveOrder(ctx, order.ID))
	got, _, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusApproved, got.Status)
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	repo := newMemoryOrderRepo()
	svc := newPurchasingService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateOrder(ctx, CreateOrderInput{
			SupplierID:  4,
			WarehouseID: 2,
			Items:       []OrderItemInput{{ProductID: 1, Qty: 1, UnitPrice: decimal.NewFromInt(10)}},
		})
		require.NoError(t, err)
	}
	require.NoError(t, svc.SubmitOrder(ctx, 1))

	drafts, err := svc.ListOrders(ctx, OrderStatusDraft)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	all, err := svc.ListOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}
