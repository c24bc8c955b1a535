package reconcile

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comptoir-erp/comptoir/internal/delivery"
	"github.com/comptoir-erp/comptoir/internal/platform/httpx"
	"github.com/comptoir-erp/comptoir/internal/shared"
)

// Handler exposes the reconciliation flow over HTTP.
type Handler struct {
	logger       *slog.Logger
	orchestrator *Orchestrator
	validate     *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, orchestrator *Orchestrator) *Handler {
	return &Handler{logger: logger, orchestrator: orchestrator, validate: validator.New()}
}

// MountRoutes registers reconciliation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders/{orderID}/delivery-note", h.buildNote)
	r.Post("/delivery-notes/{noteID}/receive", h.receive)
}

type receiveItemReq struct {
	ItemID   int64   `json:"item_id" validate:"required,gt=0"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
}

type receiveReq struct {
	WarehouseID int64            `json:"warehouse_id" validate:"required,gt=0"`
	Items       []receiveItemReq `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) buildNote(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid order id")
		return
	}
	result, err := h.orchestrator.BuildNote(r.Context(), orderID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	httpx.JSON(w, status, map[string]any{
		"delivery_note_id": result.Note.ID,
		"delivery_number":  result.Note.Number,
		"created":          result.Created,
	})
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	noteID, err := strconv.ParseInt(chi.URLParam(r, "noteID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid note id")
		return
	}
	var req receiveReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	received := make([]delivery.ReceivedItem, 0, len(req.Items))
	for _, item := range req.Items {
		received = append(received, delivery.ReceivedItem{ItemID: item.ItemID, Qty: item.Quantity})
	}
	result, err := h.orchestrator.Receive(r.Context(), noteID, req.WarehouseID, received)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	resp := map[string]any{
		"delivery_number": result.Note.Number,
		"status":          string(result.Note.Status),
	}
	if result.Invoice != nil {
		resp["invoice_number"] = result.Invoice.Number
		resp["invoice_total"] = result.Invoice.TotalAmount.StringFixed(2)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	httpx.RespondMapped(w, err, []httpx.Mapping{
		{Err: delivery.ErrNotFound, Status: http.StatusNotFound, Kind: httpx.KindNotFound},
		{Err: delivery.ErrEmptyOrder, Status: http.StatusUnprocessableEntity, Kind: httpx.KindEmptyOrder},
		{Err: delivery.ErrOrderNotApproved, Status: http.StatusConflict, Kind: httpx.KindInvalidState},
		{Err: delivery.ErrAlreadyReceived, Status: http.StatusConflict, Kind: httpx.KindInvalidState},
		{Err: delivery.ErrUnknownItem, Status: http.StatusBadRequest, Kind: httpx.KindValidation},
		{Err: delivery.ErrOverDelivery, Status: http.StatusUnprocessableEntity, Kind: httpx.KindOverDelivery},
		{Err: delivery.ErrValidation, Status: http.StatusBadRequest, Kind: httpx.KindValidation},
		{Err: shared.ErrIdempotencyConflict, Status: http.StatusConflict, Kind: httpx.KindDuplicate},
	})
}
