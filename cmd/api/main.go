package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/mvalderas/tradepost-backend/api/routes"
	"github.com/mvalderas/tradepost-backend/internal/cart"
	"github.com/mvalderas/tradepost-backend/internal/categories"
	"github.com/mvalderas/tradepost-backend/internal/listings"
	"github.com/mvalderas/tradepost-backend/internal/notifications"
	"github.com/mvalderas/tradepost-backend/internal/orders"
	"github.com/mvalderas/tradepost-backend/internal/payments"
	"github.com/mvalderas/tradepost-backend/internal/payouts"
	"github.com/mvalderas/tradepost-backend/internal/reports"
	"github.com/mvalderas/tradepost-backend/internal/reviews"
	"github.com/mvalderas/tradepost-backend/internal/subscriptions"
	"github.com/mvalderas/tradepost-backend/internal/users"
	stripewebhook "github.com/mvalderas/tradepost-backend/internal/webhooks/stripe"
	"github.com/mvalderas/tradepost-backend/pkg/config"
	"github.com/mvalderas/tradepost-backend/pkg/db"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
	"github.com/mvalderas/tradepost-backend/pkg/metrics"
	"github.com/mvalderas/tradepost-backend/pkg/migrate"
	"github.com/mvalderas/tradepost-backend/pkg/outbox"
	"github.com/mvalderas/tradepost-backend/pkg/redis"
	"github.com/mvalderas/tradepost-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(context.Background(), logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient)
	requireResource(context.Background(), logg, "dev migrations", err)

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(context.Background(), logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	requireResource(context.Background(), logg, "stripe", err)

	commissionRate, err := decimal.NewFromString(cfg.Marketplace.CommissionRate)
	requireResource(context.Background(), logg, "commission rate", err)

	gdb := dbClient.DB()
	listingsRepo := listings.NewRepository(gdb)
	cartRepo := cart.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	paymentsRepo := payments.NewRepository(gdb)
	subscriptionsRepo := subscriptions.NewRepository(gdb)
	payoutsRepo := payouts.NewRepository(gdb)
	notificationsRepo := notifications.NewRepository(gdb)
	categoriesRepo := categories.NewRepository(gdb)
	reviewsRepo := reviews.NewRepository(gdb)
	reportsRepo := reports.NewRepository(gdb)
	usersRepo := users.NewRepository(gdb)
	eventStore := stripewebhook.NewEventStore(gdb)

	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	categoriesSvc, err := categories.NewService(categoriesRepo, listingsRepo)
	requireResource(context.Background(), logg, "categories service", err)

	listingsSvc, err := listings.NewService(listingsRepo, categoriesSvc)
	requireResource(context.Background(), logg, "listings service", err)

	cartSvc, err := cart.NewService(cartRepo, listingsRepo, commissionRate)
	requireResource(context.Background(), logg, "cart service", err)

	notificationsSvc, err := notifications.NewService(notificationsRepo)
	requireResource(context.Background(), logg, "notifications service", err)

	payoutsSvc, err := payouts.NewService(payoutsRepo, dbClient, outboxSvc, notificationsSvc, commissionRate, cfg.Marketplace.Currency)
	requireResource(context.Background(), logg, "payouts service", err)

	ordersSvc, err := orders.NewService(ordersRepo, cartRepo, listingsRepo, dbClient, outboxSvc, payoutsSvc, cfg.Marketplace.Currency)
	requireResource(context.Background(), logg, "orders service", err)

	gateway, err := payments.NewStripeGateway(payments.NewStripeAPI(stripeClient))
	requireResource(context.Background(), logg, "payment gateway", err)

	paymentsSvc, err := payments.NewService(paymentsRepo, gateway, usersRepo, ordersRepo)
	requireResource(context.Background(), logg, "payments service", err)

	subscriptionsSvc, err := subscriptions.NewService(subscriptionsRepo, gateway, paymentsSvc, logg)
	requireResource(context.Background(), logg, "subscriptions service", err)

	reviewsSvc, err := reviews.NewService(reviewsRepo)
	requireResource(context.Background(), logg, "reviews service", err)

	reportsSvc, err := reports.NewService(reportsRepo, listingsRepo)
	requireResource(context.Background(), logg, "reports service", err)

	registry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		TransactionRunner: dbClient,
		Events:            eventStore,
		Payments:          paymentsRepo,
		Orders:            ordersRepo,
		Listings:          listingsRepo,
		Outbox:            outboxSvc,
		Notifier:          notificationsSvc,
		Subscriptions:     subscriptionsSvc,
		Logger:            logg,
		Metrics:           webhookMetrics,
	})
	requireResource(context.Background(), logg, "webhook service", err)

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, "stripe")
	requireResource(context.Background(), logg, "webhook idempotency guard", err)

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Registry:      registry,
		Listings:      listingsSvc,
		Cart:          cartSvc,
		Orders:        ordersSvc,
		Payments:      paymentsSvc,
		Subscriptions: subscriptionsSvc,
		Notifications: notificationsSvc,
		Payouts:       payoutsSvc,
		Categories:    categoriesSvc,
		Reviews:       reviewsSvc,
		Reports:       reportsSvc,
		StripeClient:  stripeClient,
		StripeWebhook: webhookSvc,
		StripeGuard:   webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
