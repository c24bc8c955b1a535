package sales

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/platform/httpx"
	"github.com/comptoir-erp/comptoir/internal/stock"
)

// Handler wires sales HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders", h.list)
	r.Post("/orders", h.create)
	r.Get("/orders/{id}", h.show)
	r.Post("/orders/{id}/confirm", h.confirm)
	r.Post("/orders/{id}/fulfill", h.fulfill)
	r.Post("/invoices/{id}/returns", h.registerReturn)
}

type orderItemReq struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice string  `json:"unit_price" validate:"required"`
}

type createOrderReq struct {
	CustomerID  int64          `json:"customer_id" validate:"required,gt=0"`
	WarehouseID int64          `json:"warehouse_id" validate:"required,gt=0"`
	Items       []orderItemReq `json:"items" validate:"required,min=1,dive"`
}

type returnLineReq struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
}

type returnReq struct {
	WarehouseID int64           `json:"warehouse_id" validate:"required,gt=0"`
	Reason      string          `json:"reason"`
	Lines       []returnLineReq `json:"lines" validate:"required,min=1,dive"`
}

type orderResp struct {
	ID          int64  `json:"id"`
	Number      string `json:"order_number"`
	CustomerID  int64  `json:"customer_id"`
	WarehouseID int64  `json:"warehouse_id"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
}

func toOrderResp(order Order) orderResp {
	return orderResp{
		ID:          order.ID,
		Number:      order.Number,
		CustomerID:  order.CustomerID,
		WarehouseID: order.WarehouseID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount.StringFixed(2),
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
	input := CreateOrderInput{CustomerID: req.CustomerID, WarehouseID: req.WarehouseID}
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

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return
	}
	if err := h.service.ConfirmOrder(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) fulfill(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return
	}
	result, err := h.service.Fulfill(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"order": toOrderResp(result.Order),
		"invoice": map[string]any{
			"id":             result.Invoice.ID,
			"invoice_number": result.Invoice.Number,
			"total_amount":   result.Invoice.TotalAmount.StringFixed(2),
		},
	})
}

func (h *Handler) registerReturn(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return
	}
	var req returnReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	lines := make([]ReturnLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, ReturnLineInput{ProductID: line.ProductID, Qty: line.Quantity})
	}
	ret, err := h.service.RegisterReturn(r.Context(), id, req.WarehouseID, req.Reason, lines)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": ret.ID, "return_number": ret.Number})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	h.logger.Error("sales request failed", slog.Any("error", err))
	httpx.RespondMapped(w, err, []httpx.Mapping{
		{Err: ErrNotFound, Status: http.StatusNotFound, Kind: httpx.KindNotFound},
		{Err: ErrInvalidState, Status: http.StatusConflict, Kind: httpx.KindInvalidState},
		{Err: ErrReturnExceedsSold, Status: http.StatusUnprocessableEntity, Kind: httpx.KindValidation},
		{Err: stock.ErrInsufficientStock, Status: http.StatusUnprocessableEntity, Kind: httpx.KindInsufficientStock},
		{Err: ErrValidation, Status: http.StatusBadRequest, Kind: httpx.KindValidation},
	})
}
