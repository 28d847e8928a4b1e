package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"instrument-rental-backend/config"
	"instrument-rental-backend/controllers"
	"instrument-rental-backend/middleware"
	"instrument-rental-backend/routes"
	"instrument-rental-backend/services"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found; continuing with environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	if err := config.ConnectDatabase(cfg); err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	db := config.DB

	var provider services.PaymentProvider
	var stripeClient *services.StripeClient
	if cfg.StripeSecretKey != "" {
		stripeClient = services.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.FrontendURL)
		provider = stripeClient
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; checkout and reconciliation disabled")
	}

	availabilitySvc := services.NewAvailabilityService(db, logger)
	bookingSvc := services.NewBookingService(db, logger)
	lifecycleSvc := services.NewLifecycleService(db, logger)
	instrumentSvc := services.NewInstrumentService(db, logger)
	ledger := services.NewPaymentLedger(db, logger)
	checkoutSvc := services.NewCheckoutService(db, ledger, provider, logger, cfg.Currency)
	store := services.NewGormReconcileStore(db, logger)
	reconcileSvc := services.NewReconcileService(store, provider, logger, cfg.ProviderSyncTimeout)

	bookingCtrl := controllers.NewBookingController(bookingSvc, lifecycleSvc, logger)
	paymentCtrl := controllers.NewPaymentController(checkoutSvc, reconcileSvc, ledger, stripeClient, logger)
	instrumentCtrl := controllers.NewInstrumentController(instrumentSvc, availabilitySvc)
	ownerCtrl := controllers.NewOwnerController(instrumentSvc, bookingSvc, logger)

	router := routes.SetupRouter(cfg, bookingCtrl, paymentCtrl, instrumentCtrl, ownerCtrl,
		middleware.RequestLogger(logger))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
