package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mvalderas/tradepost-backend/api/controllers"
	webhookcontrollers "github.com/mvalderas/tradepost-backend/api/controllers/webhooks"
	"github.com/mvalderas/tradepost-backend/api/middleware"
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
	stripewebhook "github.com/mvalderas/tradepost-backend/internal/webhooks/stripe"
	"github.com/mvalderas/tradepost-backend/pkg/config"
	"github.com/mvalderas/tradepost-backend/pkg/db"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
	"github.com/mvalderas/tradepost-backend/pkg/redis"
	"github.com/mvalderas/tradepost-backend/pkg/stripe"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Registry *prometheus.Registry

	Listings      listings.Service
	Cart          cart.Service
	Orders        orders.Service
	Payments      payments.Service
	Subscriptions subscriptions.Service
	Notifications notifications.Service
	Payouts       payouts.Service
	Categories    categories.Service
	Reviews       reviews.Service
	Reports       reports.Service

	StripeClient  *stripe.Client
	StripeWebhook *stripewebhook.Service
	StripeGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.DB, d.Redis, logg))
	})

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(d.StripeWebhook, d.StripeClient, d.StripeGuard, logg))
	})

	// Public browse surface, no auth.
	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/listings", controllers.BrowseListings(d.Listings, logg))
		r.Get("/listings/{listingID}", controllers.GetListing(d.Listings, logg))
		r.Get("/listings/{listingID}/reviews", controllers.ListListingReviews(d.Reviews, logg))
		r.Get("/categories", controllers.GetCategoryTree(d.Categories, logg))
		r.Get("/categories/{categoryID}/listings", controllers.ListCategoryListings(d.Categories, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/listings", func(r chi.Router) {
			r.Get("/mine", controllers.ListMyListings(d.Listings, logg))
			r.Post("/", controllers.CreateListing(d.Listings, logg))
			r.Patch("/{listingID}", controllers.UpdateListing(d.Listings, logg))
			r.Delete("/{listingID}", controllers.RemoveListing(d.Listings, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(d.Cart, logg))
			r.Post("/items", controllers.AddCartItem(d.Cart, logg))
			r.Patch("/items/{listingID}", controllers.UpdateCartItem(d.Cart, logg))
			r.Delete("/items/{listingID}", controllers.RemoveCartItem(d.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(d.Orders, logg))
			r.Get("/", controllers.ListMyOrders(d.Orders, logg))
			r.Get("/sales", controllers.ListMySales(d.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(d.Orders, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(d.Orders, logg))
			r.Post("/{orderID}/ship", controllers.ShipOrder(d.Orders, logg))
			r.Post("/{orderID}/complete", controllers.CompleteOrder(d.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/intents", controllers.CreatePaymentIntent(d.Payments, logg))
			r.Get("/transactions/{transactionID}", controllers.GetTransaction(d.Payments, logg))
			r.Post("/transactions/{transactionID}/refund", controllers.RefundPayment(d.Payments, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/plans", controllers.ListPlans(d.Subscriptions, logg))
			r.Get("/", controllers.GetSubscription(d.Subscriptions, logg))
			r.Post("/", controllers.Subscribe(d.Subscriptions, logg))
			r.Post("/cancel", controllers.CancelSubscription(d.Subscriptions, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(d.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.ListMyPayouts(d.Payouts, logg))
			r.Get("/{payoutID}", controllers.GetPayout(d.Payouts, logg))
		})

		r.Post("/reviews", controllers.CreateReview(d.Reviews, logg))
		r.Post("/reports", controllers.FlagListing(d.Reports, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.ListAllPayouts(d.Payouts, logg))
			r.Post("/{payoutID}/approve", controllers.ApprovePayout(d.Payouts, logg))
			r.Post("/{payoutID}/reject", controllers.RejectPayout(d.Payouts, logg))
			r.Post("/{payoutID}/process", controllers.ProcessPayout(d.Payouts, logg))
			r.Post("/{payoutID}/complete", controllers.CompletePayout(d.Payouts, logg))
			r.Post("/{payoutID}/fail", controllers.FailPayout(d.Payouts, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.CreateCategory(d.Categories, logg))
			r.Patch("/{categoryID}", controllers.RenameCategory(d.Categories, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", controllers.ListReports(d.Reports, logg))
			r.Post("/{reportID}/resolve", controllers.ResolveReport(d.Reports, logg))
		})
	})

	return r
}
