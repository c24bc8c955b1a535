package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comptoir-erp/comptoir/internal/auth"
	"github.com/comptoir-erp/comptoir/internal/dashboard"
	"github.com/comptoir-erp/comptoir/internal/delivery"
	"github.com/comptoir-erp/comptoir/internal/invoicing"
	"github.com/comptoir-erp/comptoir/internal/masterdata"
	"github.com/comptoir-erp/comptoir/internal/observability"
	"github.com/comptoir-erp/comptoir/internal/purchasing"
	"github.com/comptoir-erp/comptoir/internal/reconcile"
	"github.com/comptoir-erp/comptoir/internal/sales"
	"github.com/comptoir-erp/comptoir/internal/stock"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Pool              *pgxpool.Pool
	Metrics           *observability.Metrics
	AuthHandler       *auth.Handler
	PurchasingHandler *purchasing.Handler
	DeliveryHandler   *delivery.Handler
	StockHandler      *stock.Handler
	InvoicingHandler  *invoicing.Handler
	ReconcileHandler  *reconcile.Handler
	SalesHandler      *sales.Handler
	MasterdataHandler *masterdata.Handler
	DashboardHandler  *dashboard.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(api chi.Router) {
		api.Use(params.AuthHandler.RequireAuth)
		api.Route("/purchase-orders", params.PurchasingHandler.MountRoutes)
		api.Route("/delivery-notes", params.DeliveryHandler.MountRoutes)
		api.Route("/stock", params.StockHandler.MountRoutes)
		api.Route("/purchase-invoices", params.InvoicingHandler.MountRoutes)
		api.Route("/reconcile", params.ReconcileHandler.MountRoutes)
		api.Route("/sales", params.SalesHandler.MountRoutes)
		api.Route("/masterdata", params.MasterdataHandler.MountRoutes)
		api.Route("/dashboard", params.DashboardHandler.MountRoutes)
	})

	return r
}
