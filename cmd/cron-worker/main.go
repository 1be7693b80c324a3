package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/weihengtan/motormart-backend/internal/checkout"
	"github.com/weihengtan/motormart-backend/internal/cron"
	"github.com/weihengtan/motormart-backend/internal/discounts"
	"github.com/weihengtan/motormart-backend/internal/orders"
	"github.com/weihengtan/motormart-backend/internal/payments"
	"github.com/weihengtan/motormart-backend/internal/products"
	"github.com/weihengtan/motormart-backend/internal/wallet"
	"github.com/weihengtan/motormart-backend/pkg/config"
	"github.com/weihengtan/motormart-backend/pkg/db"
	"github.com/weihengtan/motormart-backend/pkg/logger"
	"github.com/weihengtan/motormart-backend/pkg/metrics"
	"github.com/weihengtan/motormart-backend/pkg/migrate"
	"github.com/weihengtan/motormart-backend/pkg/nets"
	"github.com/weihengtan/motormart-backend/pkg/outbox"
	"github.com/weihengtan/motormart-backend/pkg/redis"
	pkgstripe "github.com/weihengtan/motormart-backend/pkg/stripe"
)

const lockKeyFormat = "motormart:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	checkoutService, ordersRepo, err := buildCheckout(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build checkout dependencies", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewOrderSweepJob(cron.OrderSweepJobParams{
		Logger:   logg,
		Orders:   ordersRepo,
		Checkout: checkoutService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order sweep job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(sweepJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildCheckout wires the settlement service the sweep job aborts stale
// orders through. The worker shares the API's gateway credentials so the
// abort path records intent state the same way the API does.
func buildCheckout(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (checkout.Service, orders.Repository, error) {
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize stripe: %w", err)
	}
	var netsOpts []nets.Option
	if cfg.NETS.BaseURL != "" {
		netsOpts = append(netsOpts, nets.WithBaseURL(cfg.NETS.BaseURL))
	}
	netsClient, err := nets.NewClient(cfg.NETS.APIKey, cfg.NETS.ProjectID, netsOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize nets: %w", err)
	}

	cardGateway, err := payments.NewCardGateway(payments.NewStripePaymentClient(stripeClient))
	if err != nil {
		return nil, nil, err
	}
	qrGateway, err := payments.NewQRGateway(netsClient, cfg.NETS.QRExpiry)
	if err != nil {
		return nil, nil, err
	}
	gatewayRegistry, err := payments.NewRegistry(payments.NewWalletGateway(), cardGateway, qrGateway)
	if err != nil {
		return nil, nil, err
	}

	walletService, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		return nil, nil, err
	}
	discountService, err := discounts.NewService(discounts.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return nil, nil, err
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
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
		return nil, nil, err
	}
	return checkoutService, ordersRepo, nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
