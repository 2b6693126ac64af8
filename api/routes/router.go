package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bakehouse-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/bakehouse-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/bakehouse-backend/api/controllers/orders"
	"github.com/angelmondragon/bakehouse-backend/api/middleware"
	"github.com/angelmondragon/bakehouse-backend/internal/auth"
	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/bakehouse-backend/internal/checkout"
	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/internal/paymentqr"
	"github.com/angelmondragon/bakehouse-backend/pkg/auth/session"
	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// redisStore is the slice of the redis client the HTTP layer needs for
// response replay and login throttling.
type redisStore interface {
	redis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

type paymentQRGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID, req paymentqr.Request) (*paymentqr.Result, error)
}

type actionVerifier interface {
	Verify(orderID uuid.UUID, action enums.ReviewAction, token, exp string, now time.Time) error
}

// Dependencies are the services the API routes dispatch to.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    redisStore
	Sessions sessionManager

	Auth     auth.Service
	Register auth.RegisterService
	Cart     cart.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
	QR       paymentQRGenerator
	Actions  actionVerifier

	// Metrics serves the Prometheus scrape endpoint when set.
	Metrics http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	readiness := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		if pinger, ok := deps.Redis.(controllers.Pinger); ok {
			readiness["redis"] = pinger
		}
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// One-click links from the operator e-mail carry their own HMAC token.
	r.Get("/api/v1/orders/{orderId}/email-action/{action}", ordercontrollers.EmailAction(deps.Orders, deps.Actions, logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Redis, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Sessions, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
			r.Put("/items", cartcontrollers.CartSetItem(deps.Cart, logg))
			r.Delete("/", cartcontrollers.CartClear(deps.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Post("/", controllers.CreateOrder(deps.Checkout, logg))
			r.Get("/{orderRef}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/{orderRef}/payment", ordercontrollers.SubmitPayment(deps.Orders, logg))
		})

		r.Post("/payments/qr", controllers.PaymentQR(deps.QR, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/review", ordercontrollers.AdminReviewQueue(deps.Orders, logg))
			r.Post("/{orderId}/verify", ordercontrollers.AdminVerify(deps.Orders, logg))
		})
	})

	return r
}
