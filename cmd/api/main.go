package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/weihengtan/motormart-backend/api/routes"
	"github.com/weihengtan/motormart-backend/internal/checkout"
	"github.com/weihengtan/motormart-backend/internal/discounts"
	"github.com/weihengtan/motormart-backend/internal/notifications"
	"github.com/weihengtan/motormart-backend/internal/orders"
	"github.com/weihengtan/motormart-backend/internal/payments"
	"github.com/weihengtan/motormart-backend/internal/products"
	"github.com/weihengtan/motormart-backend/internal/refunds"
	"github.com/weihengtan/motormart-backend/internal/wallet"
	stripewebhook "github.com/weihengtan/motormart-backend/internal/webhooks/stripe"
	"github.com/weihengtan/motormart-backend/pkg/auth/session"
	"github.com/weihengtan/motormart-backend/pkg/config"
	"github.com/weihengtan/motormart-backend/pkg/db"
	"github.com/weihengtan/motormart-backend/pkg/logger"
	"github.com/weihengtan/motormart-backend/pkg/migrate"
	"github.com/weihengtan/motormart-backend/pkg/nets"
	"github.com/weihengtan/motormart-backend/pkg/outbox"
	"github.com/weihengtan/motormart-backend/pkg/redis"
	pkgstripe "github.com/weihengtan/motormart-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	metricsRegistry := prometheus.NewRegistry()

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe", err)
		os.Exit(1)
	}

	var netsOpts []nets.Option
	if cfg.NETS.BaseURL != "" {
		netsOpts = append(netsOpts, nets.WithBaseURL(cfg.NETS.BaseURL))
	}
	netsClient, err := nets.NewClient(cfg.NETS.APIKey, cfg.NETS.ProjectID, netsOpts...)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize nets", err)
		os.Exit(1)
	}

	cardGateway, err := payments.NewCardGateway(payments.NewStripePaymentClient(stripeClient))
	if err != nil {
		logg.Error(context.Background(), "failed to create card gateway", err)
		os.Exit(1)
	}
	qrGateway, err := payments.NewQRGateway(netsClient, cfg.NETS.QRExpiry)
	if err != nil {
		logg.Error(context.Background(), "failed to create qr gateway", err)
		os.Exit(1)
	}
	gatewayRegistry, err := payments.NewRegistry(payments.NewWalletGateway(), cardGateway, qrGateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway registry", err)
		os.Exit(1)
	}
	qrPoller, err := payments.NewStatusPoller(netsClient, cfg.NETS.PollInterval, cfg.NETS.MaxPolls)
	if err != nil {
		logg.Error(context.Background(), "failed to create status poller", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}
	topUpService, err := wallet.NewTopUpService(wallet.NewTopUpRepository(dbClient.DB()), walletService, gatewayRegistry, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create top-up service", err)
		os.Exit(1)
	}
	discountService, err := discounts.NewService(discounts.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create discount service", err)
		os.Exit(1)
	}
	productService, err := products.NewService(products.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		cfg.Checkout,
		dbClient,
		ordersRepo,
		payments.NewRepository(dbClient.DB()),
		products.NewRepository(dbClient.DB()),
		walletService,
		discountService,
		gatewayRegistry,
		nil,
		outboxService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	refundService, err := refunds.NewService(
		cfg.Checkout,
		dbClient,
		refunds.NewRepository(dbClient.DB()),
		ordersRepo,
		walletService,
		gatewayRegistry,
		nil,
		outboxService,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund service", err)
		os.Exit(1)
	}

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Checkout: checkoutService,
		TopUps:   topUpService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	stripeWebhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, 24*time.Hour, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			metricsRegistry,
			checkoutService,
			ordersService,
			walletService,
			topUpService,
			discountService,
			refundService,
			productService,
			notificationService,
			qrPoller,
			stripeClient,
			stripeWebhookService,
			stripeWebhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
