package stock

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comptoir-erp/comptoir/internal/platform/httpx"
)

// Handler wires stock HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/out", h.stockOut)
	r.Post("/transfer", h.transfer)
}

type locationReq struct {
	WarehouseID   int64 `json:"warehouse_id" validate:"omitempty,gt=0"`
	POSLocationID int64 `json:"pos_location_id" validate:"omitempty,gt=0"`
}

func (l locationReq) location() Location {
	return Location{WarehouseID: l.WarehouseID, POSLocationID: l.POSLocationID}
}

type rowResp struct {
	ID            int64   `json:"id"`
	ProductID     int64   `json:"product_id"`
	WarehouseID   int64   `json:"warehouse_id,omitempty"`
	POSLocationID int64   `json:"pos_location_id,omitempty"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     string  `json:"unit_price"`
	TotalValue    string  `json:"total_value"`
}

func toRowResp(row Row) rowResp {
	return rowResp{
		ID:            row.ID,
		ProductID:     row.ProductID,
		WarehouseID:   row.WarehouseID,
		POSLocationID: row.POSLocationID,
		Quantity:      row.Qty,
		UnitPrice:     row.UnitPrice.StringFixed(2),
		TotalValue:    row.TotalValue.StringFixed(2),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	loc := Location{}
	if v := r.URL.Query().Get("warehouse_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid warehouse_id")
			return
		}
		loc.WarehouseID = id
	}
	if v := r.URL.Query().Get("pos_location_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid pos_location_id")
			return
		}
		loc.POSLocationID = id
	}
	rows, err := h.service.ListByLocation(r.Context(), loc)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	resp := make([]rowResp, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toRowResp(row))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type stockOutReq struct {
	Location  locationReq `json:"location"`
	ProductID int64       `json:"product_id" validate:"required,gt=0"`
	Quantity  float64     `json:"quantity" validate:"required,gt=0"`
	Reference string      `json:"reference" validate:"omitempty,max=100"`
}

func (h *Handler) stockOut(w http.ResponseWriter, r *http.Request) {
	var req stockOutReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	row, err := h.service.StockOut(r.Context(), StockOutInput{
		Location:  req.Location.location(),
		ProductID: req.ProductID,
		Qty:       req.Quantity,
		Reference: req.Reference,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRowResp(row))
}

type transferReq struct {
	From      locationReq `json:"from"`
	To        locationReq `json:"to"`
	ProductID int64       `json:"product_id" validate:"required,gt=0"`
	Quantity  float64     `json:"quantity" validate:"required,gt=0"`
	Reference string      `json:"reference" validate:"omitempty,max=100"`
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	src, dst, err := h.service.Transfer(r.Context(), TransferInput{
		From:      req.From.location(),
		To:        req.To.location(),
		ProductID: req.ProductID,
		Qty:       req.Quantity,
		Reference: req.Reference,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"source": toRowResp(src), "destination": toRowResp(dst)})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	h.logger.Error("stock request failed", slog.Any("error", err))
	httpx.RespondMapped(w, err, []httpx.Mapping{
		{Err: ErrNotFound, Status: http.StatusNotFound, Kind: httpx.KindNotFound},
		{Err: ErrInvalidLocation, Status: http.StatusBadRequest, Kind: httpx.KindValidation},
		{Err: ErrInvalidQuantity, Status: http.StatusBadRequest, Kind: httpx.KindValidation},
		{Err: ErrInsufficientStock, Status: http.StatusConflict, Kind: httpx.KindInsufficientStock},
	})
}
