package app

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/toko-tierprice/internal/audit"
	"github.com/noah-isme/toko-tierprice/internal/auth"
	"github.com/noah-isme/toko-tierprice/internal/cart"
	"github.com/noah-isme/toko-tierprice/internal/catalog"
	"github.com/noah-isme/toko-tierprice/internal/checkout"
	"github.com/noah-isme/toko-tierprice/internal/common"
	"github.com/noah-isme/toko-tierprice/internal/crossvariant"
	"github.com/noah-isme/toko-tierprice/internal/grouppurchase"
	"github.com/noah-isme/toko-tierprice/internal/health"
	"github.com/noah-isme/toko-tierprice/internal/lock"
	"github.com/noah-isme/toko-tierprice/internal/obs"
	"github.com/noah-isme/toko-tierprice/internal/pricing"
	"github.com/noah-isme/toko-tierprice/internal/ratelimit"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
	"github.com/noah-isme/toko-tierprice/internal/security"
	"github.com/noah-isme/toko-tierprice/internal/settings"
	"github.com/noah-isme/toko-tierprice/internal/storefront"
)

// NewRouter wires the pricing services onto a chi router.
func NewRouter(d *Dependencies) (http.Handler, error) {
	cfg := d.Config
	logger := d.Logger

	authService, err := auth.NewService(auth.Config{
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.AccessTokenTTL,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Admins:   auth.ParseAdmins(cfg.AdminUsers),
	})
	if err != nil {
		return nil, err
	}
	authMiddleware := auth.Middleware{Service: authService}
	authHandler := &auth.Handler{Service: authService, Validate: d.Validator}

	defaults := salesctx.Defaults{
		TaxState:         salesctx.ParseTaxState(cfg.DefaultTaxState),
		CurrencyDecimals: cfg.CurrencyDecimals,
		CurrencyID:       cfg.CurrencyID,
	}
	settingsStore := settings.NewRedisStore(d.Redis, cfg.SettingsCacheTTL, settings.Values{
		GroupByPrice: cfg.DefaultGroupByPrice,
		Blacklist:    cfg.DefaultBlacklist,
		Whitelist:    cfg.DefaultWhitelist,
	}.Normalize())

	lookup := catalog.NewLookup(d.Products)
	calculator := pricing.Calculator{}
	checkoutService := &checkout.Service{
		Processors: []cart.Processor{
			&checkout.ProductProcessor{Products: lookup, Calculator: calculator, Logger: logger},
			crossvariant.NewProcessor(crossvariant.Config{
				Products:   lookup,
				Settings:   settingsStore,
				Calculator: calculator,
				Namespace:  cfg.SettingsNamespace,
				Logger:     logger,
			}),
		},
		Validators: []cart.Validator{grouppurchase.NewValidator(logger)},
		Logger:     logger,
	}
	checkoutHandler := checkout.NewHandler(checkout.HandlerConfig{Service: checkoutService, Validator: d.Validator, Defaults: defaults})
	settingsHandler := &checkout.SettingsHandler{
		Store:     settingsStore,
		Namespace: cfg.SettingsNamespace,
		Locker:    lock.Locker{R: d.Redis, Prefix: "tierprice:lock:"},
		LockTTL:   cfg.SettingsLockTTL,
		Validate:  d.Validator,
		Logger:    logger,
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Lookup: lookup, Defaults: defaults})
	storefrontHandler := &storefront.Handler{Validate: d.Validator, Logger: logger}

	auditStore := audit.RedisStore{Client: d.Redis, Stream: cfg.AuditStream, MaxLen: int64(cfg.AuditMaxLen)}
	auditRecorder := audit.HTTPRecorder{
		Service: &audit.Service{Store: auditStore, Enabled: cfg.AuditEnabled},
		OnError: func(err error) { logger.Error().Err(err).Msg("record audit entry") },
	}
	auditSettings := func(action string) func(http.Handler) http.Handler {
		return auditRecorder.Middleware(audit.HTTPConfig{
			Action:          action,
			ResourceType:    "settings",
			ResourceIDParam: "salesChannelId",
			MetadataFunc: func(*http.Request, int) map[string]any {
				return map[string]any{"namespace": cfg.SettingsNamespace}
			},
		})
	}

	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL, Prefix: "tierprice:idem:"}
	limit := ratelimit.Handler{
		Limiter: d.Limiter,
		Config:  ratelimit.Config{Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.MetricsEnabled {
		var reg prometheus.Registerer
		if d.Registry != nil {
			reg = d.Registry
		}
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, reg)
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), reg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production", FrameAncestors: cfg.DesignerFrameOrigins}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: allowedHeaders,
		ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))
	r.Use(authMiddleware.Authenticate)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)

	if httpMetrics != nil {
		if d.Registry != nil {
			r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	healthHandler := health.Handler{Probes: probes(d)}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/sales-channels/{salesChannelId}", func(sc chi.Router) {
			sc.With(limit.Middleware).Post("/cart/calculate", checkoutHandler.Calculate)
			sc.Get("/products/{productId}/prices", catalogHandler.Prices)
		})
		v.Post("/storefront/design-price", storefrontHandler.DesignPrice)

		v.Route("/admin", func(admin chi.Router) {
			admin.Post("/login", authHandler.Login)
			admin.Group(func(g chi.Router) {
				g.Use(authMiddleware.RequireAdmin)
				g.Get("/settings/{salesChannelId}", settingsHandler.Get)
				g.With(idem.Middleware, auditSettings("settings.replace")).Put("/settings/{salesChannelId}", settingsHandler.Put)
				g.With(auditSettings("settings.patch")).Patch("/settings/{salesChannelId}", settingsHandler.Patch)
				g.With(auditSettings("settings.delete")).Delete("/settings/{salesChannelId}", settingsHandler.Delete)
				g.Get("/audit", audit.Handler{Store: auditStore}.List)
			})
		})
	})

	return r, nil
}

var allowedHeaders = []string{
	"Accept", "Authorization", "Content-Type", common.IdempotencyHeader,
	salesctx.HeaderCurrencyID, salesctx.HeaderDomainID, salesctx.HeaderVersionID, salesctx.HeaderRuleIDs, salesctx.HeaderTaxState,
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func probes(d *Dependencies) map[string]health.Probe {
	out := map[string]health.Probe{}
	if d.DB != nil {
		out["db"] = func(ctx context.Context) error { return d.DB.Ping(ctx) }
	}
	if d.Redis != nil {
		out["redis"] = func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() }
	}
	return out
}
