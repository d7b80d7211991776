package router

import (
	"context"
	"net/http"
	"time"

	"recipebox/internal/api/v1/handler"
	"recipebox/internal/billing"
	"recipebox/internal/config"
	"recipebox/internal/dedupe"
	"recipebox/internal/middleware"
	"recipebox/internal/moderation"
	"recipebox/internal/pubsub"
	"recipebox/internal/repository"
	"recipebox/internal/service"
	"recipebox/internal/stripeclient"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New builds the HTTP handler and its dependencies. The returned cleanup
// releases the database pool and any optional clients.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// 1. Database
	pool, err := repository.OpenPool(ctx, cfg.DBConnectionString, cfg.Environment)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, pool.Close)
	logger.Info().Msg("Database connection successful")

	// 2. Optional infrastructure
	var deduper dedupe.Deduper = dedupe.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		closers = append(closers, func() { _ = rdb.Close() })
		deduper = dedupe.NewRedisDeduper(rdb, "", time.Duration(cfg.WebhookDedupeTTLHours)*time.Hour)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Webhook event dedupe enabled")
	}

	notifier, closeNotifier, err := pubsub.NewNotifierFromConfig(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, closeNotifier)

	var stripeClient *stripeclient.Client
	var gateway service.StripeGateway
	if cfg.StripeEnabled() {
		stripeClient = stripeclient.New(cfg.StripeSecretKey)
		gateway = stripeClient
	} else {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set; checkout and portal are disabled")
	}

	// 3. Repositories, services, handlers
	validate := validator.New(validator.WithRequiredStructEnabled())
	profileRepo := repository.NewProfileRepo(pool)
	deadLetterRepo := repository.NewDeadLetterRepo(pool)

	var stripeAPI billing.StripeAPI
	if stripeClient != nil {
		stripeAPI = stripeClient
	}
	reconciler := billing.NewReconciler(profileRepo, stripeAPI, logger)
	webhookSvc := service.NewWebhookService(cfg.StripeWebhookSecret, reconciler, deduper, deadLetterRepo, notifier, logger)
	billingSvc := service.NewBillingService(service.BillingConfig{
		PriceMonthly:      cfg.StripePriceMonthly,
		PriceAnnual:       cfg.StripePriceAnnual,
		CheckoutReturnURL: cfg.StripeCheckoutReturnURL,
		PortalReturnURL:   cfg.StripePortalReturnURL,
	}, profileRepo, gateway, logger)
	userSvc := service.NewUserService(profileRepo, moderation.NewFilter(cfg.ModerationExtraKeywords))

	billingHandler := handler.NewBillingHandler(billingSvc, validate, logger)
	webhookHandler := handler.NewWebhookHandler(webhookSvc, logger)
	userHandler := handler.NewUserHandler(userSvc, validate, logger)

	// 4. Routes
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)

	r := chi.NewRouter()
	r.Use(middleware.LoggerMiddleware(logger))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/v1", func(r chi.Router) {
		webhookHandler.RegisterRoutes(r)
		billingHandler.RegisterRoutes(r, authMiddleware)
		userHandler.RegisterRoutes(r, authMiddleware)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(r), cleanup, nil
}
