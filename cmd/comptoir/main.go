package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comptoir-erp/comptoir/internal/app"
	"github.com/comptoir-erp/comptoir/internal/auth"
	"github.com/comptoir-erp/comptoir/internal/dashboard"
	"github.com/comptoir-erp/comptoir/internal/delivery"
	"github.com/comptoir-erp/comptoir/internal/invoicing"
	"github.com/comptoir-erp/comptoir/internal/masterdata"
	"github.com/comptoir-erp/comptoir/internal/notify"
	"github.com/comptoir-erp/comptoir/internal/observability"
	"github.com/comptoir-erp/comptoir/internal/platform/cache"
	"github.com/comptoir-erp/comptoir/internal/platform/db"
	"github.com/comptoir-erp/comptoir/internal/purchasing"
	"github.com/comptoir-erp/comptoir/internal/reconcile"
	"github.com/comptoir-erp/comptoir/internal/sales"
	"github.com/comptoir-erp/comptoir/internal/shared"
	"github.com/comptoir-erp/comptoir/internal/stock"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	numbers := shared.NewDocumentNumberer()
	notifier := notify.NewLogNotifier(logger)
	metrics := observability.NewMetrics()

	var provider auth.Provider
	if cfg.AuthMode == "fixture" {
		fixture := auth.NewFixtureProvider()
		if err := fixture.AddUser("admin@comptoir.local", "changez-moi"); err != nil {
			logger.Error("seed fixture user", slog.Any("error", err))
			os.Exit(1)
		}
		provider = fixture
	} else {
		provider = auth.NewStoreProvider(pool)
	}
	var sessions auth.SessionStore
	if redisClient != nil {
		sessions = auth.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	} else {
		sessions = auth.NewMemorySessionStore(cfg.SessionTTL)
	}
	authHandler := auth.NewHandler(logger, provider, sessions)

	purchasingRepo := purchasing.NewRepository(pool)
	purchasingService := purchasing.NewService(purchasingRepo, auditLogger, numbers)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, auditLogger)
	stockHandler := stock.NewHandler(logger, stockService)

	invoicingRepo := invoicing.NewRepository(pool)
	invoicingService := invoicing.NewService(invoicingRepo, auditLogger, numbers)
	invoicingHandler := invoicing.NewHandler(logger, invoicingService)

	deliveryRepo := delivery.NewRepository(pool)
	deliveryService := delivery.NewService(deliveryRepo, purchasingService, invoicingService, idempotencyStore, auditLogger, numbers,
		delivery.ServiceConfig{AllowOverDelivery: cfg.AllowOverDelivery})
	deliveryHandler := delivery.NewHandler(logger, deliveryService)

	orchestrator := reconcile.NewOrchestrator(logger, deliveryService, notifier, metrics)
	reconcileHandler := reconcile.NewHandler(logger, orchestrator)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, auditLogger, numbers)
	salesHandler := sales.NewHandler(logger, salesService)

	masterdataRepo := masterdata.NewRepository(pool)
	masterdataHandler := masterdata.NewHandler(logger, masterdataRepo)

	dashboardCache := dashboard.NewCache(logger, redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(logger, dashboard.NewStats(pool), dashboardCache)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Pool:              pool,
		Metrics:           metrics,
		AuthHandler:       authHandler,
		PurchasingHandler: purchasingHandler,
		DeliveryHandler:   deliveryHandler,
		StockHandler:      stockHandler,
		InvoicingHandler:  invoicingHandler,
		ReconcileHandler:  reconcileHandler,
		SalesHandler:      salesHandler,
		MasterdataHandler: masterdataHandler,
		DashboardHandler:  dashboardHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
