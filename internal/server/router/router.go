package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzpatryk/BuggyVege/internal/auth"
	"github.com/rzpatryk/BuggyVege/internal/domain/users"
	"github.com/rzpatryk/BuggyVege/internal/logger"
	"github.com/rzpatryk/BuggyVege/internal/metrics"
	"github.com/rzpatryk/BuggyVege/internal/server/handlers"
	"github.com/rzpatryk/BuggyVege/internal/storage"
)

type Options struct {
	log          *slog.Logger
	secret       []byte
	accessLog    bool
	metricsRoute bool
}

func NewRouter(store storage.Storage, engine handlers.Engine, opts ...Option) chi.Router {
	r := chi.NewRouter()

	rOpts := Options{
		log:          logger.Nop(),
		secret:       []byte(""),
		accessLog:    true,
		metricsRoute: true,
	}

	for _, opt := range opts {
		opt(&rOpts)
	}

	tokenAuth := jwtauth.New("HS256", rOpts.secret, nil)

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.StripSlashes,
		metrics.Middleware,
	)

	if rOpts.accessLog {
		r.Use(middleware.Logger)
	}

	h := handlers.NewHandlers(store, engine,
		handlers.WithLogger(rOpts.log.With(slog.String("module", "handlers"))),
		handlers.WithAuth(auth.NewJWTAuth(rOpts.secret)),
	)

	r.Get("/ping", h.Ping)

	if rOpts.metricsRoute {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Post("/api/user/register", h.UserRegister)
		r.Post("/api/user/login", h.UserLogin)

		r.Get("/api/products", h.ListProducts)
		r.Get("/api/products/{productID}", h.GetProduct)
		r.Get("/api/products/{productID}/reviews", h.ListProductReviews)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
		)

		r.Get("/api/wallet/balance", h.GetBalance)
		r.Post("/api/wallet/deposit", h.Deposit)
		r.Get("/api/wallet/transactions", h.GetTransactions)
		r.Post("/api/wallet/purchase", h.Purchase)
		r.Post("/api/wallet/refund", h.Refund)

		r.Get("/api/orders", h.ListOrders)
		r.Get("/api/orders/{orderID}", h.GetOrder)
		r.Post("/api/orders/{orderID}/cancel", h.CancelOrder)

		r.Post("/api/reviews", h.CreateReview)
		r.Get("/api/reviews/mine", h.ListMyReviews)
		r.Get("/api/reviews/to-review", h.ProductsToReview)
		r.Patch("/api/reviews/{reviewID}", h.UpdateReview)
		r.Delete("/api/reviews/{reviewID}", h.DeleteReview)
		r.Patch("/api/reviews/{reviewID}/helpful", h.MarkReviewHelpful)

		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireRole(users.RoleAdmin))

			r.Post("/api/products", h.CreateProduct)
			r.Patch("/api/products/{productID}", h.UpdateProduct)
			r.Delete("/api/products/{productID}", h.DeleteProduct)
			r.Patch("/api/admin/orders/{orderID}/status", h.UpdateOrderStatus)
			r.Get("/api/admin/reviews/pending", h.ListPendingReviews)
			r.Patch("/api/admin/reviews/{reviewID}/moderate", h.ModerateReview)
		})
	})

	return r
}

type Option func(r *Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.log = logger
	}
}

func WithSecret(secret []byte) Option {
	return func(o *Options) {
		o.secret = secret
	}
}

// WithAccessLog toggles the chi request logger.
func WithAccessLog(enabled bool) Option {
	return func(o *Options) {
		o.accessLog = enabled
	}
}

func WithMetricsRoute(enabled bool) Option {
	return func(o *Options) {
		o.metricsRoute = enabled
	}
}
