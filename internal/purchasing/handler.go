package purchasing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/platform/httpx"
)

// Handler wires purchase order HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchasing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/approve", h.approve)
}

type orderItemReq struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice string  `json:"unit_price" validate:"required"`
}

type createOrderReq struct {
	SupplierID  int64          `json:"supplier_id" validate:"required,gt=0"`
	WarehouseID int64          `json:"warehouse_id" validate:"required,gt=0"`
	Items       []orderItemReq `json:"items" validate:"required,min=1,dive"`
}

type orderResp struct {
	ID                  int64  `json:"id"`
	Number              string `json:"order_number"`
	SupplierID          int64  `json:"supplier_id"`
	WarehouseID         int64  `json:"warehouse_id"`
	Status              string `json:"status"`
	TotalAmount         string `json:"total_amount"`
	DeliveryNoteCreated bool   `json:"delivery_note_created"`
}

func toOrderResp(order PurchaseOrder) orderResp {
	return orderResp{
		ID:                  order.ID,
		Number:              order.Number,
		SupplierID:          order.SupplierID,
		WarehouseID:         order.WarehouseID,
		Status:              string(order.Status),
		TotalAmount:         order.TotalAmount.StringFixed(2),
		DeliveryNoteCreated: order.DeliveryNoteCreated,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	input := CreateOrderInput{SupplierID: req.SupplierID, WarehouseID: req.WarehouseID}
	for _, item := range req.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", "unit_price must be a decimal string")
			return
		}
		input.Items = append(input.Items, OrderItemInput{ProductID: item.ProductID, Qty: item.Quantity, UnitPrice: price})
	}
	order, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOrderResp(order))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), OrderStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	resp := make([]orderResp, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResp(order))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return
	}
	order, items, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	type itemResp struct {
		ID        int64   `json:"id"`
		ProductID int64   `json:"product_id"`
		Quantity  float64 `json:"quantity"`
		UnitPrice string  `json:"unit_price"`
	}
	itemsResp := make([]itemResp, 0, len(items))
	for _, item := range items {
		itemsResp = append(itemsResp, itemResp{ID: item.ID, ProductID: item.ProductID, Quantity: item.Qty, UnitPrice: item.UnitPrice.StringFixed(2)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": toOrderResp(order), "items": itemsResp})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.SubmitOrder)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ApproveOrder)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	h.logger.Error("purchasing request failed", slog.Any("error", err))
	httpx.RespondMapped(w, err, []httpx.Mapping{
		{Err: ErrNotFound, Status: http.StatusNotFound, Kind: httpx.KindNotFound},
		{Err: ErrInvalidState, Status: http.StatusConflict, Kind: httpx.KindInvalidState},
		{Err: ErrValidation, Status: http.StatusBadRequest, Kind: httpx.KindValidation},
	})
}
