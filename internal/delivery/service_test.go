package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comptoir-erp/comptoir/internal/invoicing"
	"github.com/comptoir-erp/comptoir/internal/purchasing"
	"github.com/comptoir-erp/comptoir/internal/shared"
	"github.com/comptoir-erp/comptoir/internal/stock"
)

type memoryDeliveryRepo struct {
	notes      map[int64]Note
	items      map[int64][]Item
	stock      map[int64]float64
	invoices   []invoicing.PurchaseInvoice
	orderFlags map[int64]bool
	delivered  map[int64]bool
	nextID     int64
	failStock  bool
}

func newMemoryDeliveryRepo() *memoryDeliveryRepo {
	return &memoryDeliveryRepo{
		notes:      make(map[int64]Note),
		items:      make(map[int64][]Item),
		stock:      make(map[int64]float64),
		orderFlags: make(map[int64]bool),
		delivered:  make(map[int64]bool),
		nextID:     1,
	}
}

func (r *memoryDeliveryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryDeliveryTx{repo: r, snapshot: r.clone()}
	if err := fn(ctx, tx); err != nil {
		r.restore(tx.snapshot)
		return err
	}
	return nil
}

func (r *memoryDeliveryRepo) clone() *memoryDeliveryRepo {
	c := newMemoryDeliveryRepo()
	c.nextID = r.nextID
	for k, v := range r.notes {
		c.notes[k] = v
	}
	for k, v := range r.items {
		c.items[k] = append([]Item(nil), v...)
	}
	for k, v := range r.stock {
		c.stock[k] = v
	}
	for k, v := range r.orderFlags {
		c.orderFlags[k] = v
	}
	for k, v := range r.delivered {
		c.delivered[k] = v
	}
	c.invoices = append([]invoicing.PurchaseInvoice(nil), r.invoices...)
	return c
}

func (r *memoryDeliveryRepo) restore(s *memoryDeliveryRepo) {
	r.notes, r.items, r.stock = s.notes, s.items, s.stock
	r.orderFlags, r.delivered, r.invoices = s.orderFlags, s.delivered, s.invoices
	r.nextID = s.nextID
}

func (r *memoryDeliveryRepo) GetNote(ctx context.Context, id int64) (Note, []Item, error) {
	note, ok := r.notes[id]
	if !ok {
		return Note{}, nil, ErrNotFound
	}
	return note, append([]Item(nil), r.items[id]...), nil
}

func (r *memoryDeliveryRepo) FindActiveByOrder(ctx context.Context, orderID int64) (Note, []Item, error) {
	for id, note := range r.notes {
		if note.PurchaseOrderID == orderID && !note.Deleted {
			return note, append([]Item(nil), r.items[id]...), nil
		}
	}
	return Note{}, nil, ErrNotFound
}

func (r *memoryDeliveryRepo) ListNotes(ctx context.Context, status NoteStatus) ([]Note, error) {
	var out []Note
	for _, note := range r.notes {
		if note.Deleted {
			continue
		}
		if status != "" && note.Status != status {
			continue
		}
		out = append(out, note)
	}
	return out, nil
}

type memoryDeliveryTx struct {
	repo     *memoryDeliveryRepo
	snapshot *memoryDeliveryRepo
}

func (t *memoryDeliveryTx) CreateNote(ctx context.Context, note Note) (int64, error) {
	id := t.repo.nextID
	t.repo.nextID++
	note.ID = id
	t.repo.notes[id] = note
	return id, nil
}

func (t *memoryDeliveryTx) InsertItem(ctx context.Context, item Item) (int64, error) {
	item.ID = t.repo.nextID
	t.repo.nextID++
	t.repo.items[item.NoteID] = append(t.repo.items[item.NoteID], item)
	return item.ID, nil
}

func (t *memoryDeliveryTx) SetItemReceived(ctx context.Context, itemID int64, qty float64) error {
	for noteID, items := range t.repo.items {
		for i := range items {
			if items[i].ID == itemID {
				t.repo.items[noteID][i].QtyReceived = qty
				return nil
			}
		}
	}
	return ErrNotFound
}

func (t *memoryDeliveryTx) MarkReceived(ctx context.Context, noteID, warehouseID int64, at time.Time) error {
	note := t.repo.notes[noteID]
	note.Status = NoteStatusReceived
	note.WarehouseID = warehouseID
	note.ApprovedAt = &at
	t.repo.notes[noteID] = note
	return nil
}

func (t *memoryDeliveryTx) SoftDelete(ctx context.Context, noteID int64) error {
	note := t.repo.notes[noteID]
	note.Deleted = true
	t.repo.notes[noteID] = note
	return nil
}

func (t *memoryDeliveryTx) SetOrderDeliveryNoteCreated(ctx context.Context, orderID int64, created bool) error {
	t.repo.orderFlags[orderID] = created
	return nil
}

func (t *memoryDeliveryTx) SetOrderDelivered(ctx context.Context, orderID int64) error {
	t.repo.delivered[orderID] = true
	return nil
}

func (t *memoryDeliveryTx) IncrementStock(ctx context.Context, warehouseID, productID int64, qty float64, unitPrice decimal.Decimal) (stock.Row, error) {
	if t.repo.failStock {
		return stock.Row{}, errors.New("stock write failed")
	}
	t.repo.stock[productID] += qty
	return stock.Row{ProductID: productID, WarehouseID: warehouseID, Qty: t.repo.stock[productID], UnitPrice: unitPrice}, nil
}

func (t *memoryDeliveryTx) InsertInvoice(ctx context.Context, inv invoicing.PurchaseInvoice) (int64, error) {
	inv.ID = t.repo.nextID
	t.repo.nextID++
	t.repo.invoices = append(t.repo.invoices, inv)
	return inv.ID, nil
}

type fakeOrders struct {
	order purchasing.PurchaseOrder
	items []purchasing.OrderItem
}

func (f *fakeOrders) GetOrder(ctx context.Context, id int64) (purchasing.PurchaseOrder, []purchasing.OrderItem, error) {
	if id != f.order.ID {
		return purchasing.PurchaseOrder{}, nil, purchasing.ErrNotFound
	}
	return f.order, f.items, nil
}

type fakeIdempotency struct {
	keys map[string]bool
}

func (f *fakeIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if f.keys == nil {
		f.keys = make(map[string]bool)
	}
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(ctx context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

func approvedOrder() (*fakeOrders, *memoryDeliveryRepo) {
	orders := &fakeOrders{
		order: purchasing.PurchaseOrder{ID: 10, Number: "CMD-1", SupplierID: 3, WarehouseID: 7, Status: purchasing.OrderStatusApproved},
		items: []purchasing.OrderItem{
			{ID: 1, OrderID: 10, ProductID: 100, Qty: 5, UnitPrice: decimal.NewFromInt(20)},
			{ID: 2, OrderID: 10, ProductID: 200, Qty: 3, UnitPrice: decimal.NewFromInt(50)},
		},
	}
	return orders, newMemoryDeliveryRepo()
}

func newTestService(repo *memoryDeliveryRepo, orders *fakeOrders, idem *fakeIdempotency, cfg ServiceConfig) *Service {
	invoices := invoicing.NewService(nil, nil, shared.NewDocumentNumberer())
	return NewService(repo, orders, invoices, idem, nil, shared.NewDocumentNumberer(), cfg)
}

func TestCreateFromOrderIsIdempotent(t *testing.T) {
	orders, repo := approvedOrder()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{})

	first, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Len(t, first.Items, 2)
	require.True(t, repo.orderFlags[10])

	second, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Note.ID, second.Note.ID)
	require.Equal(t, first.Note.Number, second.Note.Number)
	require.Len(t, repo.notes, 1)
}

func TestCreateFromOrderRejectsEmptyAndUnapproved(t *testing.T) {
	orders, repo := approvedOrder()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{})

	orders.items = nil
	_, err := svc.CreateFromOrder(context.Background(), 10)
	require.ErrorIs(t, err, ErrEmptyOrder)

	orders.items = []purchasing.OrderItem{{ID: 1, OrderID: 10, ProductID: 100, Qty: 1, UnitPrice: decimal.NewFromInt(5)}}
	orders.order.Status = purchasing.OrderStatusPending
	_, err = svc.CreateFromOrder(context.Background(), 10)
	require.ErrorIs(t, err, ErrOrderNotApproved)
}

func TestApproveCommitsStockInvoiceAndStatusTogether(t *testing.T) {
	orders, repo := approvedOrder()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{})

	built, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)

	received := []ReceivedItem{
		{ItemID: built.Items[0].ID, Qty: 5},
		{ItemID: built.Items[1].ID, Qty: 2},
	}
	result, err := svc.Approve(context.Background(), built.Note.ID, 7, received)
	require.NoError(t, err)

	require.Equal(t, NoteStatusReceived, result.Note.Status)
	require.NotNil(t, result.Note.ApprovedAt)
	require.Equal(t, 5.0, repo.stock[100])
	require.Equal(t, 2.0, repo.stock[200])
	require.True(t, repo.delivered[10])

	require.NotNil(t, result.Invoice)
	require.Equal(t, "FA-"+built.Note.Number[len("BL-"):], result.Invoice.Number)
	// 5*20 + 2*50 = 200
	require.True(t, result.Invoice.TotalAmount.Equal(decimal.NewFromInt(200)))
	require.Len(t, repo.invoices, 1)
}

func TestApproveRollsBackEverythingWhenStockWriteFails(t *testing.T) {
	orders, repo := approvedOrder()
	idem := &fakeIdempotency{}
	svc := newTestService(repo, orders, idem, ServiceConfig{})

	built, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)

	repo.failStock = true
	_, err = svc.Approve(context.Background(), built.Note.ID, 7, []ReceivedItem{{ItemID: built.Items[0].ID, Qty: 5}})
	require.Error(t, err)

	note, items, err := repo.GetNote(context.Background(), built.Note.ID)
	require.NoError(t, err)
	require.Equal(t, NoteStatusPending, note.Status)
	require.Equal(t, 0.0, items[0].QtyReceived)
	require.Empty(t, repo.stock)
	require.Empty(t, repo.invoices)
	require.False(t, repo.delivered[10])
	// key released so a corrected submission can retry
	require.Empty(t, idem.keys)

	repo.failStock = false
	_, err = svc.Approve(context.Background(), built.Note.ID, 7, []ReceivedItem{{ItemID: built.Items[0].ID, Qty: 5}})
	require.NoError(t, err)
}

func TestFullReceptionScenario(t *testing.T) {
	orders := &fakeOrders{
		order: purchasing.PurchaseOrder{ID: 42, Number: "CMD-42", SupplierID: 9, WarehouseID: 7, Status: purchasing.OrderStatusApproved},
		items: []purchasing.OrderItem{
			{ID: 1, OrderID: 42, ProductID: 100, Qty: 10, UnitPrice: decimal.NewFromInt(500)},
			{ID: 2, OrderID: 42, ProductID: 200, Qty: 5, UnitPrice: decimal.NewFromInt(1000)},
		},
	}
	repo := newMemoryDeliveryRepo()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{})

	built, err := svc.CreateFromOrder(context.Background(), 42)
	require.NoError(t, err)

	result, err := svc.Approve(context.Background(), built.Note.ID, 7, []ReceivedItem{
		{ItemID: built.Items[0].ID, Qty: 10},
		{ItemID: built.Items[1].ID, Qty: 3},
	})
	require.NoError(t, err)

	require.Equal(t, NoteStatusReceived, result.Note.Status)
	require.Equal(t, 10.0, repo.stock[100])
	require.Equal(t, 3.0, repo.stock[200])
	require.NotNil(t, result.Invoice)
	// 10*500 + 3*1000
	require.True(t, result.Invoice.TotalAmount.Equal(decimal.NewFromInt(8000)))
}

func TestApproveRejectsOverDelivery(t *testing.T) {
	orders, repo := approvedOrder()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{})

	built, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), built.Note.ID, 7, []ReceivedItem{{ItemID: built.Items[0].ID, Qty: 6}})
	require.ErrorIs(t, err, ErrOverDelivery)
	require.Empty(t, repo.stock)
}

func TestApproveAllowsOverDeliveryWhenConfigured(t *testing.T) {
	orders, repo := approvedOrder()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{AllowOverDelivery: true})

	built, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), built.Note.ID, 7, []ReceivedItem{{ItemID: built.Items[0].ID, Qty: 6}})
	require.NoError(t, err)
	require.Equal(t, 6.0, repo.stock[100])
}

func TestApproveZeroReceiptSkipsStockAndInvoice(t *testing.T) {
	orders, repo := approvedOrder()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{})

	built, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)

	result, err := svc.Approve(context.Background(), built.Note.ID, 7, []ReceivedItem{
		{ItemID: built.Items[0].ID, Qty: 0},
		{ItemID: built.Items[1].ID, Qty: 0},
	})
	require.NoError(t, err)
	require.Equal(t, NoteStatusReceived, result.Note.Status)
	require.Empty(t, repo.stock)
	require.Nil(t, result.Invoice)
	require.Empty(t, repo.invoices)
}

func TestApproveRefusesSecondSubmission(t *testing.T) {
	orders, repo := approvedOrder()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{})

	built, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), built.Note.ID, 7, []ReceivedItem{{ItemID: built.Items[0].ID, Qty: 1}})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), built.Note.ID, 7, []ReceivedItem{{ItemID: built.Items[0].ID, Qty: 1}})
	require.ErrorIs(t, err, ErrAlreadyReceived)
	require.Equal(t, 1.0, repo.stock[100])
}

func TestApproveRejectsUnknownItem(t *testing.T) {
	orders, repo := approvedOrder()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{})

	built, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), built.Note.ID, 7, []ReceivedItem{{ItemID: 999, Qty: 1}})
	require.ErrorIs(t, err, ErrUnknownItem)
}

func TestDeletePendingNoteResetsOrderFlag(t *testing.T) {
	orders, repo := approvedOrder()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{})

	built, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, repo.orderFlags[10])

	require.NoError(t, svc.Delete(context.Background(), built.Note.ID))
	require.False(t, repo.orderFlags[10])

	_, _, err = svc.GetNote(context.Background(), built.Note.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// order can be rebuilt into a fresh note
	rebuilt, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, rebuilt.Created)
	require.NotEqual(t, built.Note.ID, rebuilt.Note.ID)
}

func TestDeleteReceivedNoteRefused(t *testing.T) {
	orders, repo := approvedOrder()
	svc := newTestService(repo, orders, &fakeIdempotency{}, ServiceConfig{})

	built, err := svc.CreateFromOrder(context.Background(), 10)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), built.Note.ID, 7, []ReceivedItem{{ItemID: built.Items[0].ID, Qty: 1}})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), built.Note.ID), ErrAlreadyReceived)
}
