// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/partsinc/parts-server/api/openapi"
	"github.com/partsinc/parts-server/internal/catalog"
	"github.com/partsinc/parts-server/internal/config"
	"github.com/partsinc/parts-server/internal/identity"
	"github.com/partsinc/parts-server/internal/identity/jwt"
	"github.com/partsinc/parts-server/internal/orders"
	"github.com/partsinc/parts-server/internal/payments"
	"github.com/partsinc/parts-server/internal/pkg/cache"
	"github.com/partsinc/parts-server/internal/pkg/ctxlog"
	"github.com/partsinc/parts-server/internal/pkg/httputil"
	"github.com/partsinc/parts-server/internal/pkg/metrics"
	"github.com/partsinc/parts-server/internal/reviews"
	"github.com/partsinc/parts-server/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const banner = "Parts Inc Server Is Running!"

// docsPage renders Swagger UI over /api/openapi.yaml.
const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Parts Inc API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <main id="api-docs"></main>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = () => SwaggerUIBundle({url: "/api/openapi.yaml", dom_id: "#api-docs"});
  </script>
</body>
</html>`

// App wires the store, services and HTTP servers of one process.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	store         *Store
	cache         cache.Cache
	redis         *cache.Redis
	bridge        payments.Bridge
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// Option customizes an App built by NewWithStore.
type Option func(*App)

// WithCache replaces the part cache.
func WithCache(c cache.Cache) Option {
	return func(a *App) { a.cache = c }
}

// WithPaymentBridge replaces the payment processor bridge.
func WithPaymentBridge(b payments.Bridge) Option {
	return func(a *App) { a.bridge = b }
}

// New connects to the configured database and creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	store, err := OpenStore(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var opts []Option

	if cfg.Cache.Enabled {
		redis := cache.NewRedis(cache.Config{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
			Prefix:   "parts-server:",
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redis.Ping(pingCtx); err != nil {
			logger.Warn("redis unavailable, part reads will fall back to the database", "addr", cfg.Cache.RedisAddr, "error", err)
		}
		cancel()

		opts = append(opts, WithCache(redis), func(a *App) { a.redis = redis })
	}

	bridge, err := payments.NewStripeBridge(payments.Config{
		SecretKey:         cfg.Payments.StripeSecretKey,
		APIURL:            cfg.Payments.StripeAPIURL,
		Currency:          cfg.Payments.Currency,
		MaxNetworkRetries: 2,
	})
	switch {
	case errors.Is(err, payments.ErrNotConfigured):
		logger.Warn("stripe secret key is not set: payment intents are disabled")
	case err != nil:
		_ = store.Close(context.Background())
		return nil, fmt.Errorf("create payment bridge: %w", err)
	default:
		// Assigned only when non-nil so the interface stays nil otherwise.
		opts = append(opts, WithPaymentBridge(bridge))
	}

	app, err := NewWithStore(cfg, store, logger, opts...)
	if err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}
	return app, nil
}

// NewWithStore creates an application on top of an already opened store.
func NewWithStore(cfg *config.Config, store *Store, logger *slog.Logger, opts ...Option) (*App, error) {
	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		store:         store,
		cache:         cache.Nop{},
		metricsCancel: metricsCancel,
	}
	for _, opt := range opts {
		opt(app)
	}

	if store.Pool != nil {
		go app.collectDBMetrics(metricsCtx)
	}

	router, err := app.setupRouter()
	if err != nil {
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", promhttp.Handler())
	app.metricsServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"driver", a.config.Database.Driver,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown drains both listeners, then releases the cache and the store.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")
	a.metricsCancel()

	servers := map[string]*http.Server{"server": a.server, "metrics server": a.metricsServer}
	results := make(chan error, len(servers))
	for name, srv := range servers {
		go func() {
			if err := srv.Shutdown(ctx); err != nil {
				results <- fmt.Errorf("shutdown %s: %w", name, err)
				return
			}
			results <- nil
		}()
	}

	var errs []error
	for range servers {
		errs = append(errs, <-results)
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.store.Pool)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.store.Pool)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the API handler without the listener around it.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Store returns the database store the application serves from.
func (a *App) Store() *Store {
	return a.store
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httputil.Text(w, http.StatusOK, banner)
	})
	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(openapi.Spec)
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(docsPage))
	})

	jwtAuth, err := jwt.NewAuthenticator(jwt.Config{
		SecretKey:           a.config.JWT.SecretKey,
		Issuer:              a.config.JWT.Issuer,
		AccessTokenDuration: a.config.JWT.AccessTokenDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("create authenticator: %w", err)
	}

	identityService := identity.NewService(a.store.Identity, jwtAuth)
	identityHandler := identity.NewHandler(identityService)

	catalogService := catalog.NewService(a.store.Catalog, a.cache, catalog.Paging{
		DefaultSize: a.config.Catalog.DefaultPageSize,
		MaxSize:     a.config.Catalog.MaxPageSize,
		LegacySkip:  a.config.Catalog.LegacyPageSkip,
	})
	catalogHandler := catalog.NewHandler(catalogService)

	ordersHandler := orders.NewHandler(orders.NewService(a.store.Orders))
	reviewsHandler := reviews.NewHandler(reviews.NewService(a.store.Reviews))
	paymentsHandler := payments.NewHandler(a.bridge)

	loginLimiter := httputil.NewRateLimiter(a.config.Server.LoginRateLimit, a.config.Server.LoginRateBurst)

	identityHandler.RegisterLoginRoutes(r.With(loginLimiter.Middleware))
	reviewsHandler.RegisterPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(httputil.AuthMiddleware(jwtAuth))

		identityHandler.RegisterRoutes(r)
		catalogHandler.RegisterRoutes(r)
		ordersHandler.RegisterRoutes(r)
		reviewsHandler.RegisterRoutes(r)
		paymentsHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequireAdmin(identityService))
			identityHandler.RegisterAdminRoutes(r)
			ordersHandler.RegisterAdminRoutes(r)
		})
	})

	return r, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, versionInfo{
		Version:   version.Version,
		Commit:    version.GitCommit,
		BuildDate: version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
