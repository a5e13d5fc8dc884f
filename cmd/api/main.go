package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"krume-backend/config"
	"krume-backend/internal/delivery/http/middleware"
	v1 "krume-backend/internal/delivery/http/v1"
	"krume-backend/internal/infrastructure/background"
	"krume-backend/internal/infrastructure/cache"
	"krume-backend/internal/infrastructure/mailer"
	"krume-backend/internal/infrastructure/metrics"
	"krume-backend/internal/infrastructure/shipping"
	pgrepo "krume-backend/internal/repository/postgres"
	"krume-backend/internal/usecase"
	"krume-backend/pkg/logger"
	"krume-backend/pkg/utils"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/time/rate"
)

const serviceName = "krume-backend"

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	// Initialize Logger
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	// Initialize Database
	pgxPool, err := pgrepo.NewPgxPool(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgxPool.Close()
	if err := pgrepo.EnsureSchema(context.Background(), pgxPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}
	log.Info().Msg("Successfully connected to PostgreSQL via pgx")

	// Initialize Repositories
	productRepo := pgrepo.NewProductRepository(pgxPool)
	cartRepo := pgrepo.NewCartRepository(pgxPool)
	couponRepo := pgrepo.NewCouponRepository(pgxPool)
	orderRepo := pgrepo.NewOrderRepository(pgxPool)
	txManager := pgrepo.NewTransactionManager(pgxPool)

	// Shared infrastructure. The cache holds product reads and the shipping token.
	memCache := cache.NewMemoryCache(30*time.Minute, 60*time.Minute)
	appMetrics := metrics.New()
	runner := background.NewRunner(cfg.BackgroundTaskTimeout, appMetrics)
	shippingClient := shipping.NewClient(cfg, memCache, appMetrics)
	notifier := mailer.NewSMTPNotifier(cfg)

	// --- Modules Initialization ---

	catalogUC := usecase.NewCatalogUsecase(productRepo, txManager, memCache, cfg)
	catalogHandler := v1.NewCatalogHandler(catalogUC)
	adminCatalogHandler := v1.NewAdminCatalogHandler(catalogUC)

	validator := usecase.NewCouponValidator(couponRepo, appMetrics)
	cartUC := usecase.NewCartUsecase(cartRepo, productRepo, couponRepo, validator, cfg.MaxCartQuantity)
	cartHandler := v1.NewCartHandler(cartUC)

	ledger := usecase.NewInventoryLedger(productRepo, memCache, appMetrics)
	orderUC := usecase.NewOrderUsecase(usecase.OrderDeps{
		Orders:   orderRepo,
		Coupons:  couponRepo,
		Carts:    cartRepo,
		Ledger:   ledger,
		Gateway:  shippingClient,
		Notifier: notifier,
		Runner:   runner,
		Metrics:  appMetrics,
	}, cfg.ReturnWindowDays)
	orderHandler := v1.NewOrderHandler(orderUC)
	adminOrderHandler := v1.NewAdminOrderHandler(orderUC)

	adminCouponHandler := v1.NewAdminCouponHandler(usecase.NewCouponUsecase(couponRepo))

	// Set up Router
	mux := http.NewServeMux()

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(middleware.AdminMiddleware(h))
	}

	// Catalog (Public)
	mux.HandleFunc("GET /api/v1/products", catalogHandler.ListProducts)
	mux.HandleFunc("GET /api/v1/products/{id}", catalogHandler.GetProduct)

	// Cart
	mux.Handle("GET /api/v1/cart", authed(cartHandler.GetCart))
	mux.Handle("POST /api/v1/cart", authed(cartHandler.AddItem))
	mux.Handle("DELETE /api/v1/cart", authed(cartHandler.ClearCart))
	mux.Handle("PATCH /api/v1/cart/items/{itemId}", authed(cartHandler.UpdateItem))
	mux.Handle("DELETE /api/v1/cart/items/{itemId}", authed(cartHandler.RemoveItem))
	mux.Handle("POST /api/v1/cart/coupon", authed(cartHandler.ApplyCoupon))
	mux.Handle("DELETE /api/v1/cart/coupon", authed(cartHandler.RemoveCoupon))

	// Orders
	mux.Handle("POST /api/v1/orders", authed(orderHandler.CreateOrder))
	mux.Handle("GET /api/v1/orders", authed(orderHandler.GetMyOrders))
	mux.Handle("GET /api/v1/orders/{id}", authed(orderHandler.GetOrder))
	mux.Handle("POST /api/v1/orders/{id}/cancel", authed(orderHandler.CancelOrder))
	mux.Handle("POST /api/v1/orders/{id}/return", authed(orderHandler.RequestReturn))

	// Admin Product Management
	mux.Handle("GET /api/v1/admin/products", admin(adminCatalogHandler.ListProducts))
	mux.Handle("GET /api/v1/admin/products/{id}", admin(adminCatalogHandler.GetProduct))
	mux.Handle("POST /api/v1/admin/products", admin(adminCatalogHandler.CreateProduct))
	mux.Handle("PUT /api/v1/admin/products/{id}", admin(adminCatalogHandler.UpdateProduct))

	// Admin Orders
	mux.Handle("GET /api/v1/admin/orders", admin(adminOrderHandler.ListOrders))
	mux.Handle("GET /api/v1/admin/orders/{id}", admin(adminOrderHandler.GetOrder))
	mux.Handle("PATCH /api/v1/admin/orders/{id}/status", admin(adminOrderHandler.UpdateStatus))
	mux.Handle("PATCH /api/v1/admin/orders/{id}/return", admin(adminOrderHandler.ManageReturn))

	// Admin Coupons
	mux.Handle("GET /api/v1/admin/coupons", admin(adminCouponHandler.ListCoupons))
	mux.Handle("GET /api/v1/admin/coupons/{id}", admin(adminCouponHandler.GetCoupon))
	mux.Handle("POST /api/v1/admin/coupons", admin(adminCouponHandler.CreateCoupon))
	mux.Handle("PUT /api/v1/admin/coupons/{id}", admin(adminCouponHandler.UpdateCoupon))
	mux.Handle("DELETE /api/v1/admin/coupons/{id}", admin(adminCouponHandler.DeleteCoupon))

	// Health Check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pgxPool.Ping(ctx); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": "unreachable"})
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "connected"})
	})
	mux.Handle("GET /metrics", appMetrics.Handler())

	rateLimiter := middleware.NewRateLimiter(
		context.Background(),
		rate.Limit(cfg.RateLimitRPS),
		cfg.RateLimitBurst,
		time.Minute,   // cleanup period
		3*time.Minute, // client TTL
		appMetrics,
	)

	// Apply CORS, Request Logger, Rate Limit, and Gzip
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.NewRequestLogger(appMetrics)(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful Shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()
	logger.ServiceStart(serviceName, "v1", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	rateLimiter.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Requests are drained; let in-flight shipment and email tasks finish.
	if err := runner.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Background tasks did not finish before shutdown")
	}

	logger.ServiceStop(serviceName)
}
