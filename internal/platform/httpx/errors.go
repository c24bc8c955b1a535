package httpx

import (
	"errors"
	"net/http"
)

// Stable error kinds shared across modules.
const (
	KindNotFound          = "not_found"
	KindDuplicate         = "duplicate"
	KindValidation        = "validation"
	KindInvalidState      = "invalid_state"
	KindEmptyOrder        = "empty_order"
	KindOverDelivery      = "over_delivery"
	KindInsufficientStock = "insufficient_stock"
	KindConflict          = "conflict"
	KindUnauthorized      = "unauthorized"
	KindInternal          = "internal"
)

// Sentinel errors for handlers without a more specific domain error.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Mapping links a domain sentinel to an HTTP status and error kind.
type Mapping struct {
	Err    error
	Status int
	Kind   string
}

// RespondMapped walks the provided mappings in order and writes the first
// matching problem response. Unmatched errors become opaque 500s so internal
// details never leak to clients.
func RespondMapped(w http.ResponseWriter, err error, mappings []Mapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			Problem(w, m.Status, m.Kind, http.StatusText(m.Status), err.Error())
			return
		}
	}
	Problem(w, http.StatusInternalServerError, KindInternal, "Internal Error", "")
}

// RespondError maps the package sentinels to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	RespondMapped(w, err, []Mapping{
		{ErrNotFound, http.StatusNotFound, KindNotFound},
		{ErrDuplicate, http.StatusConflict, KindDuplicate},
		{ErrValidation, http.StatusBadRequest, KindValidation},
		{ErrForbidden, http.StatusForbidden, "forbidden"},
		{ErrUnauthorized, http.StatusUnauthorized, KindUnauthorized},
	})
}
