package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakehouse-backend/api/routes"
	"github.com/angelmondragon/bakehouse-backend/internal/address"
	"github.com/angelmondragon/bakehouse-backend/internal/auth"
	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	"github.com/angelmondragon/bakehouse-backend/internal/checkout"
	"github.com/angelmondragon/bakehouse-backend/internal/checkout/helpers"
	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/internal/paymentqr"
	product "github.com/angelmondragon/bakehouse-backend/internal/products"
	"github.com/angelmondragon/bakehouse-backend/internal/users"
	"github.com/angelmondragon/bakehouse-backend/pkg/auth/actionlink"
	"github.com/angelmondragon/bakehouse-backend/pkg/auth/session"
	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	"github.com/angelmondragon/bakehouse-backend/pkg/db"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/metrics"
	"github.com/angelmondragon/bakehouse-backend/pkg/outbox"
	"github.com/angelmondragon/bakehouse-backend/pkg/redis"
)

// buildDependencies constructs every repository and service the router
// dispatches to.
func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	conn := dbClient.DB()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(promRegistry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("session manager: %w", err)
	}

	userRepo := users.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	productRepo := product.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("auth service: %w", err)
	}
	registerService, err := auth.NewRegisterService(userRepo, cfg.Password)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("register service: %w", err)
	}

	cartService, err := cart.NewService(cartRepo, productRepo)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("cart service: %w", err)
	}

	location, err := time.LoadLocation(cfg.Checkout.TimeZone)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("checkout timezone %q: %w", cfg.Checkout.TimeZone, err)
	}
	checkoutService, err := checkout.NewService(
		dbClient,
		cartRepo,
		ordersRepo,
		address.NewRepository(conn),
		productRepo,
		emitter,
		orderMetrics,
		logg,
		checkout.Options{
			Pricing: helpers.Pricing{
				FreeDeliveryThreshold: cfg.Checkout.FreeDeliveryThreshold,
				DeliveryFee:           cfg.Checkout.DeliveryFee,
				TaxRate:               decimal.NewFromFloat(cfg.Checkout.TaxRate),
			},
			Location: location,
		},
	)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("checkout service: %w", err)
	}

	ordersService, err := orders.NewService(
		ordersRepo,
		cartRepo,
		dbClient,
		emitter,
		orderMetrics,
		logg,
		orders.Options{TrustOnSubmit: cfg.Payments.TrustOnSubmit},
	)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("orders service: %w", err)
	}

	qrService, err := paymentqr.NewService(
		ordersRepo,
		newQRCache(cfg.Payments, redisClient),
		paymentqr.Config{
			PayeeID:   cfg.Payments.UPIPayeeID,
			PayeeName: cfg.Payments.UPIPayeeName,
			CacheTTL:  cfg.Payments.QRCacheTTL,
		},
		orderMetrics,
		logg,
	)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("payment qr service: %w", err)
	}

	signer, err := actionlink.NewSigner(cfg.Payments.ActionSecret, cfg.Payments.ActionTokenTTL, cfg.App.PublicBaseURL)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("action link signer: %w", err)
	}

	return routes.Dependencies{
		DB:       dbClient,
		Redis:    redisClient,
		Sessions: sessionManager,
		Auth:     authService,
		Register: registerService,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   ordersService,
		QR:       qrService,
		Actions:  signer,
		Metrics:  promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	}, nil
}

func newQRCache(cfg config.PaymentsConfig, redisClient *redis.Client) paymentqr.Cache {
	if strings.EqualFold(strings.TrimSpace(cfg.QRCacheBackend), config.QRCacheRedis) {
		return paymentqr.NewRedisCache(redisClient)
	}
	return paymentqr.NewMemoryCache(cfg.QRCacheMaxEntries)
}
