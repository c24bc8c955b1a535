package invoicing

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

// Handler wires purchase invoice HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers invoicing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/payments", h.registerPayment)
}

type invoiceResp struct {
	ID              int64  `json:"id"`
	Number          string `json:"invoice_number"`
	SupplierID      int64  `json:"supplier_id"`
	DeliveryNoteID  int64  `json:"delivery_note_id"`
	TotalAmount     string `json:"total_amount"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	PaidAmount      string `json:"paid_amount"`
	RemainingAmount string `json:"remaining_amount"`
}

func toInvoiceResp(inv PurchaseInvoice) invoiceResp {
	return invoiceResp{
		ID:              inv.ID,
		Number:          inv.Number,
		SupplierID:      inv.SupplierID,
		DeliveryNoteID:  inv.DeliveryNoteID,
		TotalAmount:     inv.TotalAmount.StringFixed(2),
		Status:          string(inv.Status),
		PaymentStatus:   string(inv.PaymentStatus),
		PaidAmount:      inv.PaidAmount.StringFixed(2),
		RemainingAmount: inv.RemainingAmount.StringFixed(2),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.List(r.Context(), PaymentStatus(r.URL.Query().Get("payment_status")))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	resp := make([]invoiceResp, 0, len(invoices))
	for _, inv := range invoices {
		resp = append(resp, toInvoiceResp(inv))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResp(inv))
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type paymentReq struct {
	Amount string `json:"amount" validate:"required"`
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req paymentReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", "amount must be a decimal string")
		return
	}
	inv, err := h.service.RegisterPayment(r.Context(), id, amount)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResp(inv))
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	h.logger.Error("invoicing request failed", slog.Any("error", err))
	httpx.RespondMapped(w, err, []httpx.Mapping{
		{Err: ErrNotFound, Status: http.StatusNotFound, Kind: httpx.KindNotFound},
		{Err: ErrInvalidState, Status: http.StatusConflict, Kind: httpx.KindInvalidState},
		{Err: ErrOverpayment, Status: http.StatusConflict, Kind: httpx.KindConflict},
		{Err: ErrValidation, Status: http.StatusBadRequest, Kind: httpx.KindValidation},
	})
}
