package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/platform/httpx"
)

// Handler wires reference-data CRUD endpoints. The entities carry no business
// rules beyond uniqueness, so the handler talks to the repository directly.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers masterdata routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.showProduct)
	r.Delete("/products/{id}", h.deactivateProduct)
	r.Get("/suppliers", h.listSuppliers)
	r.Post("/suppliers", h.createSupplier)
	r.Get("/customers", h.listCustomers)
	r.Post("/customers", h.createCustomer)
	r.Get("/warehouses", h.listWarehouses)
	r.Post("/warehouses", h.createWarehouse)
	r.Get("/pos-locations", h.listPOSLocations)
	r.Post("/pos-locations", h.createPOSLocation)
}

type productReq struct {
	SKU           string `json:"sku" validate:"required"`
	Name          string `json:"name" validate:"required"`
	PurchasePrice string `json:"purchase_price" validate:"required"`
	SalePrice     string `json:"sale_price" validate:"required"`
}

type partyReq struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

type warehouseReq struct {
	Code    string `json:"code" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

type posLocationReq struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if !h.decode(w, r, &req) {
		return
	}
	purchase, err1 := decimal.NewFromString(req.PurchasePrice)
	sale, err2 := decimal.NewFromString(req.SalePrice)
	if err1 != nil || err2 != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Validation Failed", "prices must be decimal strings")
		return
	}
	product, err := h.repo.CreateProduct(r.Context(), Product{SKU: req.SKU, Name: req.Name, PurchasePrice: purchase, SalePrice: sale})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	products, pagination, err := h.repo.ListProducts(r.Context(), page, perPage)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": products, "pagination": pagination})
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return
	}
	product, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, httpx.KindValidation, "Bad Request", "invalid id")
		return
	}
	if err := h.repo.DeactivateProduct(r.Context(), id); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req partyReq
	if !h.decode(w, r, &req) {
		return
	}
	supplier, err := h.repo.CreateSupplier(r.Context(), Supplier{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.repo.ListSuppliers(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, suppliers)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req partyReq
	if !h.decode(w, r, &req) {
		return
	}
	customer, err := h.repo.CreateCustomer(r.Context(), Customer{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.repo.ListCustomers(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customers)
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var req warehouseReq
	if !h.decode(w, r, &req) {
		return
	}
	warehouse, err := h.repo.CreateWarehouse(r.Context(), Warehouse{Code: req.Code, Name: req.Name, Address: req.Address})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, warehouse)
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.repo.ListWarehouses(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, warehouses)
}

func (h *Handler) createPOSLocation(w http.ResponseWriter, r *http.Request) {
	var req posLocationReq
	if !h.decode(w, r, &req) {
		return
	}
	loc, err := h.repo.CreatePOSLocation(r.Context(), POSLocation{Code: req.Code, Name: req.Name})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, loc)
}

func (h *Handler) listPOSLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.repo.ListPOSLocations(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, locs)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	h.logger.Error("masterdata request failed", slog.Any("error", err))
	httpx.RespondMapped(w, err, []httpx.Mapping{
		{Err: ErrNotFound, Status: http.StatusNotFound, Kind: httpx.KindNotFound},
		{Err: ErrDuplicate, Status: http.StatusConflict, Kind: httpx.KindDuplicate},
		{Err: ErrValidation, Status: http.StatusBadRequest, Kind: httpx.KindValidation},
	})
}
