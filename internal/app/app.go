package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/mixandtaste/internal/domain/auth"
	"github.com/xenking/mixandtaste/internal/domain/cart"
	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
	"github.com/xenking/mixandtaste/internal/domain/order"
	"github.com/xenking/mixandtaste/internal/handler"
	"github.com/xenking/mixandtaste/internal/storage/postgres"
	"github.com/xenking/mixandtaste/pkg/health"
	"github.com/xenking/mixandtaste/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m httpmiddleware.TelemetryProvider, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("policies", cfg.Policies.Source),
		zap.String("cart_store", cfg.Cart.Store),
	)

	merge, err := cfg.MergePolicy()
	if err != nil {
		return err
	}
	delivery, err := cfg.DeliveryPolicy()
	if err != nil {
		return err
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New(health.WithLogger(lg.Named("health")))
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool),
		health.WithFailureThreshold(2),
	)
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	categoryRepo := postgres.NewCategoryRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	offerRepo := postgres.NewOfferRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	var (
		policies customization.PolicySource
		options  *customization.Manager
	)
	switch cfg.Policies.Source {
	case PolicySourceStatic:
		policies = customization.DefaultPolicies(customization.DefaultCatalog())
	default:
		policyRepo := postgres.NewPolicyRepository(pool)
		policies = policyRepo
		options = customization.NewManager(policyRepo)
	}

	var carts cart.Store
	switch cfg.Cart.Store {
	case CartStoreMemory:
		carts = cart.NewMemoryStore()
	default:
		store := postgres.NewCartStore(pool)
		carts = store
		if cfg.Cart.StaleAfter > 0 && cfg.Cart.SweepEvery > 0 {
			go sweepCarts(ctx, lg.Named("carts"), store, cfg.Cart.StaleAfter, cfg.Cart.SweepEvery)
		}
	}

	// Domain services.
	orderService, err := order.NewService(orderRepo, delivery, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	cartService, err := cart.NewService(
		cart.Config{Merge: merge, Delivery: delivery},
		productRepo,
		policies,
		carts,
		orderService,
		m.MeterProvider(),
	)
	if err != nil {
		return errors.Wrap(err, "create cart service")
	}

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{
			ImageBaseURL: cfg.ImageBaseURL,
			CookieName:   cfg.Cart.CookieName,
			CookieTTL:    cfg.Cart.CookieTTL,
			SecureCookie: cfg.Cart.SecureCookie,
		},
		handler.Deps{
			Menu:     menu.NewService(categoryRepo, productRepo, offerRepo),
			Catalog:  menu.NewAdmin(categoryRepo, productRepo, offerRepo),
			Policies: policies,
			Options:  options,
			Carts:    cartService,
			Orders:   orderService,
			Auth:     auth.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper)),
		},
	)

	// Router: health endpoints + API routes on one server.
	router := chi.NewRouter()
	healthSvc.Routes(router)
	h.Routes(router)
	routeFinder := httpmiddleware.MakeRouteFinder(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key", "X-API-Key"},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Retry-After", "X-RateLimit-Remaining"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
				Skip:   isHealthCheck,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.Instrument("mixandtaste-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// isHealthCheck reports whether r targets a health endpoint, which is never rate limited.
func isHealthCheck(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/livez") || strings.HasPrefix(r.URL.Path, "/readyz")
}
