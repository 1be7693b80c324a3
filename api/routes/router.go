package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weihengtan/motormart-backend/api/controllers"
	webhookcontrollers "github.com/weihengtan/motormart-backend/api/controllers/webhooks"
	"github.com/weihengtan/motormart-backend/api/middleware"
	checkoutsvc "github.com/weihengtan/motormart-backend/internal/checkout"
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
	"github.com/weihengtan/motormart-backend/pkg/metrics"
	"github.com/weihengtan/motormart-backend/pkg/redis"
	"github.com/weihengtan/motormart-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager session.AccessSessionChecker,
	metricsRegistry *prometheus.Registry,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	walletService wallet.Service,
	topUpService wallet.TopUpService,
	discountService discounts.Service,
	refundService refunds.Service,
	productService products.Service,
	notificationService notifications.Service,
	qrPoller *payments.StatusPoller,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	httpMetrics := metrics.NewHTTPMetrics(metricsRegistry)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		httpMetrics.Middleware,
		middleware.CORS(),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutUserLimit,
	)
	topUpPolicy := middleware.NewRateLimitPolicy(
		"topup",
		cfg.RateLimit.TopUpWindow,
		cfg.RateLimit.TopUpIPLimit,
		cfg.RateLimit.TopUpUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.With(middleware.RateLimit(checkoutPolicy, redisClient, logg)).
			Post("/v1/checkout", controllers.Checkout(checkoutService, logg))
		r.Post("/v1/checkout/confirm", controllers.CheckoutConfirm(checkoutService, logg))
		r.Get("/v1/payments/qr/{ref}/events", controllers.QRPaymentEvents(qrPoller, checkoutService, logg))

		r.Route("/v1/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
			r.With(middleware.RateLimit(topUpPolicy, redisClient, logg)).
				Post("/topup", controllers.WalletTopUp(topUpService, logg))
			r.Post("/topup/confirm", controllers.WalletTopUpConfirm(topUpService, logg))
		})

		r.Post("/v1/discounts/validate", controllers.DiscountValidate(discountService, logg))

		r.Route("/v1/products", func(r chi.Router) {
			r.Get("/", controllers.ProductBrowse(productService, logg))
			r.Get("/{productId}", controllers.ProductDetail(productService, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsList(notificationService, logg))
			r.Post("/{notificationId}/read", controllers.NotificationMarkRead(notificationService, logg))
			r.Post("/read-all", controllers.NotificationsMarkAllRead(notificationService, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/refunds", controllers.RefundRequestCreate(refundService, logg))
		})

		r.Route("/v1/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole("seller", logg))
			r.Get("/earnings", controllers.SellerEarnings(ordersService, logg))
			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.SellerProductList(productService, logg))
				r.Post("/", controllers.SellerProductCreate(productService, logg))
				r.Patch("/{productId}", controllers.SellerProductUpdate(productService, logg))
				r.Delete("/{productId}", controllers.SellerProductDelist(productService, logg))
			})
			r.Route("/refunds", func(r chi.Router) {
				r.Get("/", controllers.SellerRefundsList(refundService, logg))
				r.Post("/{refundId}/approve", controllers.RefundApprove(refundService, logg))
				r.Post("/{refundId}/reject", controllers.RefundReject(refundService, logg))
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.RequireRole("operator", logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Get("/ping", controllers.OperatorPing())
		r.Route("/v1/discounts", func(r chi.Router) {
			r.Post("/", controllers.DiscountCreate(discountService, logg))
			r.Get("/", controllers.DiscountList(discountService, logg))
			r.Get("/{discountId}", controllers.DiscountGet(discountService, logg))
			r.Patch("/{discountId}", controllers.DiscountUpdate(discountService, logg))
			r.Delete("/{discountId}", controllers.DiscountDeactivate(discountService, logg))
		})
	})

	return r
}
