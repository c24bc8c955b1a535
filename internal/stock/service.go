package stock

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, loc Location, productID int64) (Row, error)
	ListByLocation(ctx context.Context, loc Location) ([]Row, error)
	TotalValue(ctx context.Context) (decimal.Decimal, error)
}

// AuditPort records stock mutations.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock movements outside the delivery flow: manual
// stock-outs and transfers between locations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds the stock service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// StockOutInput describes a manual outbound movement.
type StockOutInput struct {
	Location  Location
	ProductID int64
	Qty       float64
	Reference string
}

// StockOut removes quantity from a location. The decrement and its movement
// record commit together.
func (s *Service) StockOut(ctx context.Context, input StockOutInput) (Row, error) {
	if err := input.Location.Validate(); err != nil {
		return Row{}, err
	}
	if input.ProductID == 0 || input.Qty <= 0 {
		return Row{}, ErrInvalidQuantity
	}
	var row Row
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		row, err = tx.Decrement(ctx, input.Location, input.ProductID, input.Qty)
		if err != nil {
			return err
		}
		return tx.RecordMovement(ctx, input.Location, input.ProductID, -input.Qty, ReasonStockOut, input.Reference)
	})
	if err != nil {
		return Row{}, err
	}
	s.recordAudit(ctx, "STOCK_OUT", input.ProductID, map[string]any{"qty": input.Qty, "reference": input.Reference})
	return row, nil
}

// TransferInput moves quantity between two locations.
type TransferInput struct {
	From      Location
	To        Location
	ProductID int64
	Qty       float64
	Reference string
}

// Transfer decrements the source and increments the destination in one
// transaction. The destination keeps its own unit price when a row already
// exists; a fresh destination row inherits the source row's unit price.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (Row, Row, error) {
	if err := input.From.Validate(); err != nil {
		return Row{}, Row{}, err
	}
	if err := input.To.Validate(); err != nil {
		return Row{}, Row{}, err
	}
	if input.From == input.To {
		return Row{}, Row{}, fmt.Errorf("%w: source and destination must differ", ErrInvalidLocation)
	}
	if input.ProductID == 0 || input.Qty <= 0 {
		return Row{}, Row{}, ErrInvalidQuantity
	}
	var src, dst Row
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		src, err = tx.Decrement(ctx, input.From, input.ProductID, input.Qty)
		if err != nil {
			return err
		}
		dst, err = tx.Increment(ctx, input.To, input.ProductID, input.Qty, src.UnitPrice)
		if err != nil {
			return err
		}
		if err := tx.RecordMovement(ctx, input.From, input.ProductID, -input.Qty, ReasonTransfer, input.Reference); err != nil {
			return err
		}
		return tx.RecordMovement(ctx, input.To, input.ProductID, input.Qty, ReasonTransfer, input.Reference)
	})
	if err != nil {
		return Row{}, Row{}, err
	}
	s.recordAudit(ctx, "STOCK_TRANSFER", input.ProductID, map[string]any{"qty": input.Qty, "reference": input.Reference})
	return src, dst, nil
}

// Get returns one stock row.
func (s *Service) Get(ctx context.Context, loc Location, productID int64) (Row, error) {
	return s.repo.Get(ctx, loc, productID)
}

// ListByLocation returns every stock row at a location.
func (s *Service) ListByLocation(ctx context.Context, loc Location) ([]Row, error) {
	return s.repo.ListByLocation(ctx, loc)
}

func (s *Service) recordAudit(ctx context.Context, action string, productID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "warehouse_stock", EntityID: fmt.Sprintf("%d", productID), Meta: meta})
}
