package delivery

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comptoir-erp/comptoir/internal/platform/httpx"
	"github.com/comptoir-erp/comptoir/internal/shared"
)

// Handler wires delivery note HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers delivery note routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}/approve", h.approve)
	r.Delete("/{id}", h.remove)
}

type createNoteReq struct {
	PurchaseOrderID int64 `json:"purchase_order_id" validate:"required,gt=0"`
}

type receivedItemReq struct {
	ItemID   int64   `json:"item_id" validate:"required,gt=0"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
}

type approveReq struct {
	WarehouseID int64             `json:"warehouse_id" validate:"required,gt=0"`
	Items       []receivedItemReq `json:"items" validate:"required,min=1,dive"`
}

type noteResp struct {
	ID              int64      `json:"id"`
	Number          string     `json:"delivery_number"`
	PurchaseOrderID int64      `json:"purchase_order_id"`
	SupplierID      int64      `json:"supplier_id"`
	WarehouseID     int64      `json:"warehouse_id,omitempty"`
	Status          string     `json:"status"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
}

type itemResp struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	QtyOrdered  float64 `json:"quantity_ordered"`
	QtyReceived float64 `json:"quantity_received"`
	UnitPrice   string  `json:"unit_price"`
}

func toNoteResp(note Note) noteResp {
	return noteResp{
		ID:              note.ID,
		Number:          note.Number,
		PurchaseOrderID: note.PurchaseOrderID,
		SupplierID:      note.SupplierID,
		WarehouseID:     note.WarehouseID,
		Status:          string(note.Status),
		ApprovedAt:      note.ApprovedAt,
	}
}

func toItemResps(items []Item) []itemResp {
	resp := make([]itemResp, 0, len(items))
	for _, item := range items {
		resp = append(resp, itemResp{
			ID:          item.ID,
			ProductID:   item.ProductID,
			QtyOrdered:  item.QtyOrdered,
			QtyReceived: item.QtyReceived,
			UnitPrice:   item.UnitPrice.StringFixed(2),
		})
	}
	return resp
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createNoteReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.CreateFromOrder(r.Context(), req.PurchaseOrderID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	httpx.JSON(w, status, map[string]any{
		"note":    toNoteResp(result.Note),
		"items":   toItemResps(result.Items),
		"created": result.Created,
	})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return
	}
	var req approveReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	received := make([]ReceivedItem, 0, len(req.Items))
	for _, item := range req.Items {
		received = append(received, ReceivedItem{ItemID: item.ItemID, Qty: item.Quantity})
	}
	result, err := h.service.Approve(r.Context(), id, req.WarehouseID, received)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	resp := map[string]any{
		"note":  toNoteResp(result.Note),
		"items": toItemResps(result.Items),
	}
	if result.Invoice != nil {
		resp["invoice"] = map[string]any{
			"id":             result.Invoice.ID,
			"invoice_number": result.Invoice.Number,
			"total_amount":   result.Invoice.TotalAmount.StringFixed(2),
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.ListNotes(r.Context(), NoteStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	resp := make([]noteResp, 0, len(notes))
	for _, note := range notes {
		resp = append(resp, toNoteResp(note))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return
	}
	note, items, err := h.service.GetNote(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"note": toNoteResp(note), "items": toItemResps(items)})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	h.logger.Error("delivery request failed", slog.Any("error", err))
	httpx.RespondMapped(w, err, []httpx.Mapping{
		{Err: ErrNotFound, Status: http.StatusNotFound, Kind: httpx.KindNotFound},
		{Err: ErrEmptyOrder, Status: http.StatusUnprocessableEntity, Kind: httpx.KindEmptyOrder},
		{Err: ErrOrderNotApproved, Status: http.StatusConflict, Kind: httpx.KindInvalidState},
		{Err: ErrAlreadyReceived, Status: http.StatusConflict, Kind: httpx.KindInvalidState},
		{Err: ErrUnknownItem, Status: http.StatusBadRequest, Kind: httpx.KindValidation},
		{Err: ErrOverDelivery, Status: http.StatusUnprocessableEntity, Kind: httpx.KindOverDelivery},
		{Err: ErrValidation, Status: http.StatusBadRequest, Kind: httpx.KindValidation},
		{Err: shared.ErrIdempotencyConflict, Status: http.StatusConflict, Kind: httpx.KindDuplicate},
	})
}
