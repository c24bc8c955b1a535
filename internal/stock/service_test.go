package stock

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryStockRepo struct {
	rows      map[string]Row
	movements []MovementReason
	nextID    int64
}

type memoryStockTx struct {
	repo *memoryStockRepo
}

func newMemoryStockRepo() *memoryStockRepo {
	return &memoryStockRepo{rows: make(map[string]Row)}
}

func stockKey(loc Location, productID int64) string {
	return fmt.Sprintf("%d:%d:%d", loc.WarehouseID, loc.POSLocationID, productID)
}

func (r *memoryStockRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryStockTx{repo: r})
}

func (r *memoryStockRepo) Get(ctx context.Context, loc Location, productID int64) (Row, error) {
	row, ok := r.rows[stockKey(loc, productID)]
	if !ok {
		return Row{}, ErrNotFound
	}
	return row, nil
}

func (r *memoryStockRepo) ListByLocation(ctx context.Context, loc Location) ([]Row, error) {
	var out []Row
	for _, row := range r.rows {
		if row.WarehouseID == loc.WarehouseID && row.POSLocationID == loc.POSLocationID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memoryStockRepo) TotalValue(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, row := range r.rows {
		total = total.Add(row.TotalValue)
	}
	return total, nil
}

func (tx *memoryStockTx) Increment(ctx context.Context, loc Location, productID int64, qty float64, unitPrice decimal.Decimal) (Row, error) {
	if err := loc.Validate(); err != nil {
		return Row{}, err
	}
	if qty <= 0 {
		return Row{}, ErrInvalidQuantity
	}
	key := stockKey(loc, productID)
	row, ok := tx.repo.rows[key]
	if !ok {
		tx.repo.nextID++
		row = Row{ID: tx.repo.nextID, ProductID: productID, WarehouseID: loc.WarehouseID, POSLocationID: loc.POSLocationID, UnitPrice: unitPrice}
	}
	row.Qty += qty
	row.TotalValue = row.UnitPrice.Mul(decimal.NewFromFloat(row.Qty))
	tx.repo.rows[key] = row
	return row, nil
}

func (tx *memoryStockTx) Decrement(ctx context.Context, loc Location, productID int64, qty float64) (Row, error) {
	if err := loc.Validate(); err != nil {
		return Row{}, err
	}
	if qty <= 0 {
		return Row{}, ErrInvalidQuantity
	}
	key := stockKey(loc, productID)
	row, ok := tx.repo.rows[key]
	if !ok || row.Qty < qty {
		return Row{}, ErrInsufficientStock
	}
	row.Qty -= qty
	row.TotalValue = row.UnitPrice.Mul(decimal.NewFromFloat(row.Qty))
	tx.repo.rows[key] = row
	return row, nil
}

func (tx *memoryStockTx) RecordMovement(ctx context.Context, loc Location, productID int64, qtyChange float64, reason MovementReason, reference string) error {
	tx.repo.movements = append(tx.repo.movements, reason)
	return nil
}

func TestIncrementIsAdditiveAndKeepsUnitPrice(t *testing.T) {
	repo := newMemoryStockRepo()
	ctx := context.Background()
	loc := Warehouse(1)

	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.Increment(ctx, loc, 7, 10, decimal.NewFromInt(50)); err != nil {
			return err
		}
		// a later receipt at a different price must not reprice the row
		_, err := tx.Increment(ctx, loc, 7, 5, decimal.NewFromInt(80))
		return err
	})
	require.NoError(t, err)

	row, err := repo.Get(ctx, loc, 7)
	require.NoError(t, err)
	require.Equal(t, 15.0, row.Qty)
	require.True(t, row.UnitPrice.Equal(decimal.NewFromInt(50)))
	require.True(t, row.TotalValue.Equal(decimal.NewFromInt(750)))
}

func TestStockOut(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	loc := Warehouse(1)
	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		_, err := tx.Increment(ctx, loc, 7, 10, decimal.NewFromInt(50))
		return err
	})
	require.NoError(t, err)

	row, err := svc.StockOut(ctx, StockOutInput{Location: loc, ProductID: 7, Qty: 4, Reference: "SORT-1"})
	require.NoError(t, err)
	require.Equal(t, 6.0, row.Qty)
	require.True(t, row.TotalValue.Equal(decimal.NewFromInt(300)))

	_, err = svc.StockOut(ctx, StockOutInput{Location: loc, ProductID: 7, Qty: 100})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestTransferConservesQuantity(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	src := Warehouse(1)
	dst := POSLocation(3)
	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		_, err := tx.Increment(ctx, src, 7, 10, decimal.NewFromInt(50))
		return err
	})
	require.NoError(t, err)

	srcRow, dstRow, err := svc.Transfer(ctx, TransferInput{From: src, To: dst, ProductID: 7, Qty: 4, Reference: "TRF-1"})
	require.NoError(t, err)
	require.Equal(t, 6.0, srcRow.Qty)
	require.Equal(t, 4.0, dstRow.Qty)
	// fresh destination row inherits the source unit price
	require.True(t, dstRow.UnitPrice.Equal(decimal.NewFromInt(50)))
	require.Len(t, repo.movements, 2)
}

func TestTransferRejectsSameLocation(t *testing.T) {
	svc := NewService(newMemoryStockRepo(), nil)
	_, _, err := svc.Transfer(context.Background(), TransferInput{From: Warehouse(1), To: Warehouse(1), ProductID: 7, Qty: 1})
	require.ErrorIs(t, err, ErrInvalidLocation)
}

func TestLocationValidate(t *testing.T) {
	require.Error(t, Location{}.Validate())
	require.Error(t, Location{WarehouseID: 1, POSLocationID: 2}.Validate())
	require.NoError(t, Warehouse(1).Validate())
	require.NoError(t, POSLocation(2).Validate())
}
