package stock

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Location identifies where stock is held: exactly one of a warehouse or a
// point-of-sale location.
type Location struct {
	WarehouseID   int64
	POSLocationID int64
}

// Warehouse builds a warehouse location.
func Warehouse(id int64) Location { return Location{WarehouseID: id} }

// POSLocation builds a point-of-sale location.
func POSLocation(id int64) Location { return Location{POSLocationID: id} }

// Validate rejects locations that name both or neither storage place.
func (l Location) Validate() error {
	if (l.WarehouseID == 0) == (l.POSLocationID == 0) {
		return ErrInvalidLocation
	}
	return nil
}

// Row is the quantity-on-hand record for one product at one location.
// TotalValue is always quantity times the row's unit price.
type Row struct {
	ID            int64
	ProductID     int64
	WarehouseID   int64
	POSLocationID int64
	Qty           float64
	UnitPrice     decimal.Decimal
	TotalValue    decimal.Decimal
	UpdatedAt     time.Time
}

// Movement reasons recorded on outbound mutations.
type MovementReason string

const (
	ReasonStockOut MovementReason = "stock_out"
	ReasonSale     MovementReason = "sale"
	ReasonTransfer MovementReason = "transfer"
	ReasonReturn   MovementReason = "customer_return"
)

var (
	// ErrNotFound indicates no stock row for the product at the location.
	ErrNotFound = errors.New("stock: not found")
	// ErrInvalidLocation occurs when a location names both or neither place.
	ErrInvalidLocation = errors.New("stock: location must be a warehouse or a pos location")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("stock: quantity must be positive")
	// ErrInsufficientStock occurs when a decrement exceeds quantity on hand.
	ErrInsufficientStock = errors.New("stock: insufficient quantity on hand")
)
