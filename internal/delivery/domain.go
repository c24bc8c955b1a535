package delivery

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Delivery note lifecycle statuses. A note transitions pending to received
// exactly once, at approval; received is terminal.
type NoteStatus string

const (
	NoteStatusPending  NoteStatus = "pending"
	NoteStatusReceived NoteStatus = "received"
)

// Note records goods physically received, or expected, against one purchase
// order. Notes are soft-deleted: Deleted marks the record destroyed while its
// items and history remain referencable.
type Note struct {
	ID              int64
	Number          string
	PurchaseOrderID int64
	SupplierID      int64
	WarehouseID     int64
	Status          NoteStatus
	Notes           string
	Deleted         bool
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is one product line on a note. QtyReceived stays zero until approval.
type Item struct {
	ID          int64
	NoteID      int64
	ProductID   int64
	QtyOrdered  float64
	QtyReceived float64
	UnitPrice   decimal.Decimal
}

var (
	// ErrNotFound indicates the note is missing or soft-deleted.
	ErrNotFound = errors.New("delivery: note not found")
	// ErrEmptyOrder occurs when the purchase order has no items.
	ErrEmptyOrder = errors.New("delivery: purchase order has no items")
	// ErrOrderNotApproved occurs when the order is not ready for delivery.
	ErrOrderNotApproved = errors.New("delivery: purchase order not approved")
	// ErrAlreadyReceived occurs when approving a note a second time.
	ErrAlreadyReceived = errors.New("delivery: note already received")
	// ErrUnknownItem occurs when a received line references no note item.
	ErrUnknownItem = errors.New("delivery: received line references unknown item")
	// ErrOverDelivery occurs when a received quantity exceeds the ordered
	// quantity and over-delivery is not allowed.
	ErrOverDelivery = errors.New("delivery: received quantity exceeds ordered quantity")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("delivery: invalid input")
)
