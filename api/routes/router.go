package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aakanshaa0/vestra/api/controllers"
	"github.com/aakanshaa0/vestra/api/middleware"
	"github.com/aakanshaa0/vestra/internal/auth"
	"github.com/aakanshaa0/vestra/internal/cart"
	"github.com/aakanshaa0/vestra/internal/catalog"
	"github.com/aakanshaa0/vestra/internal/orders"
	"github.com/aakanshaa0/vestra/internal/payments"
	"github.com/aakanshaa0/vestra/pkg/auth/session"
	"github.com/aakanshaa0/vestra/pkg/config"
	"github.com/aakanshaa0/vestra/pkg/db"
	"github.com/aakanshaa0/vestra/pkg/logger"
	"github.com/aakanshaa0/vestra/pkg/metrics"
	"github.com/aakanshaa0/vestra/pkg/redis"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	SessionManager  session.AccessSessionChecker
	HTTPMetrics     *metrics.HTTPMetrics
	MetricsGatherer prometheus.Gatherer

	AuthService          auth.Service
	RegisterService      auth.RegisterService
	AdminRegisterService auth.AdminRegisterService
	CartService          cart.Service
	CatalogService       catalog.Service
	OrderService         orders.Service
	PaymentService       payments.Service
}

// NewRouter mounts the full HTTP surface.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.AuthRegister(deps.RegisterService, deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
		r.With(middleware.Auth(cfg.JWT, deps.SessionManager, logg)).
			Get("/me", controllers.AuthMe(deps.AuthService, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.Post("/register", controllers.AdminAuthRegister(deps.AdminRegisterService, logg))
		}
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AdminAuthLogin(deps.AuthService, logg))
	})

	// Public storefront catalog.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.CatalogService, logg))
		r.Get("/{productId}", controllers.ProductDetail(deps.CatalogService, logg))
	})

	// Authenticated buyer surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/api/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.CartService, logg))
			r.Put("/", controllers.CartSync(deps.CartService, logg))
			r.Delete("/", controllers.CartClear(deps.CartService, logg))
			r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
			r.Put("/items", controllers.CartSetQuantity(deps.CartService, logg))
			r.Get("/count", controllers.CartCount(deps.CartService, logg))
			r.Get("/amount", controllers.CartAmount(deps.CartService, logg))
		})

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(deps.OrderService, logg))
			r.Get("/", controllers.OrderList(deps.OrderService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.OrderService, logg))
		})

		r.Route("/api/v1/payments", func(r chi.Router) {
			r.Post("/{orderId}/intent", controllers.PaymentIntentCreate(deps.PaymentService, logg))
			r.Post("/{orderId}/confirm", controllers.PaymentConfirm(deps.PaymentService, logg))
			r.Get("/{orderId}/status", controllers.PaymentStatus(deps.PaymentService, logg))
		})
	})

	// Admin fulfillment surface.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/api/admin/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(deps.OrderService, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(deps.OrderService, logg))
			r.Patch("/{orderId}/status", controllers.AdminOrderUpdateStatus(deps.OrderService, logg))
			r.Post("/{orderId}/refund", controllers.AdminOrderRefund(deps.PaymentService, logg))
		})

		r.Route("/api/admin/v1/products", func(r chi.Router) {
			r.Post("/", controllers.AdminProductCreate(deps.CatalogService, logg))
			r.Patch("/{productId}", controllers.AdminProductUpdate(deps.CatalogService, logg))
			r.Delete("/{productId}", controllers.AdminProductDelete(deps.CatalogService, logg))
		})
	})

	return r
}
