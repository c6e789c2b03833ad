package app

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/noah-isme/chowpati-api/internal/address"
	"github.com/noah-isme/chowpati-api/internal/cart"
	"github.com/noah-isme/chowpati-api/internal/catalog"
	"github.com/noah-isme/chowpati-api/internal/common"
	"github.com/noah-isme/chowpati-api/internal/delivery"
	"github.com/noah-isme/chowpati-api/internal/health"
	"github.com/noah-isme/chowpati-api/internal/obs"
	"github.com/noah-isme/chowpati-api/internal/order"
	"github.com/noah-isme/chowpati-api/internal/ratelimit"
	"github.com/noah-isme/chowpati-api/internal/security"
)

// RouterOptions holds the optional observability hooks for NewRouter.
type RouterOptions struct {
	Metrics        *obs.HTTPMetrics
	MetricsHandler http.Handler
	Tracing        bool
	EnableHSTS     bool
}

// NewRouter mounts every API route on a chi router.
func NewRouter(d *Dependencies, opts RouterOptions) (http.Handler, error) {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{EnableHSTS: opts.EnableHSTS}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", common.IdempotencyHeader},
		ExposedHeaders: []string{"Location", "X-Total-Count", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))

	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}
	healthHandler := health.Handler{Probes: d.Probes()}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	apiLimiter, err := d.apiLimiter()
	if err != nil {
		return nil, err
	}
	orderLimiter, err := ratelimit.NewFixedWindow(d.Redis, cfg.OrderRateLimit, "ratelimit:orders")
	if err != nil {
		return nil, fmt.Errorf("order rate limit: %w", err)
	}
	limitLogger := d.Logger.With().Str("component", "ratelimit").Logger()

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: d.Catalog})
	cartHandler := &cart.Handler{Svc: d.Carts}
	deliveryHandler := &delivery.Handler{Svc: d.Delivery}
	addressHandler := &address.Handler{Svc: d.Addresses}
	orderHandler := &order.Handler{Svc: d.Orders}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: security.DefaultBodyLimit}.Middleware)
		v.Use(ratelimit.Handler{Limiter: apiLimiter, Logger: limitLogger}.Middleware)

		v.Get("/categories", catalogHandler.Categories)
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.ProductDetail)
		v.Get("/cone-candy", catalogHandler.ConeCandy)
		v.Post("/admin/catalog/invalidate", catalogHandler.Invalidate)

		v.Get("/pincodes", deliveryHandler.PinCodes)
		v.Get("/pincodes/{pin}", deliveryHandler.Check)

		v.Route("/carts", func(c chi.Router) {
			c.Post("/", cartHandler.Create)
			c.Get("/{id}", cartHandler.Get)
			c.Delete("/{id}", cartHandler.Delete)
			c.Post("/{id}/items", cartHandler.AddItem)
			c.Delete("/{id}/items", cartHandler.RemoveItem)
			c.Post("/{id}/items/increase", cartHandler.Increase)
			c.Post("/{id}/items/decrease", cartHandler.Decrease)
			c.Post("/{id}/clear", cartHandler.Clear)
		})

		v.Route("/customers/{customerId}/addresses", func(a chi.Router) {
			a.Get("/", addressHandler.List)
			a.Post("/", addressHandler.Add)
			a.Get("/default", addressHandler.Default)
			a.Patch("/{addressId}", addressHandler.Update)
			a.Delete("/{addressId}", addressHandler.Delete)
			a.Post("/{addressId}/default", addressHandler.SetDefault)
		})

		v.Route("/orders", func(o chi.Router) {
			o.With(
				ratelimit.Handler{Limiter: orderLimiter, Logger: limitLogger}.Middleware,
				idem.Middleware,
			).Post("/", orderHandler.Place)
			o.Get("/", orderHandler.List)
			o.Get("/{id}", orderHandler.Get)
		})
	})
	return r, nil
}

// apiLimiter uses the Redis sliding window when Redis is configured and a
// process-local fixed window otherwise. A zero max disables limiting.
func (d *Dependencies) apiLimiter() (ratelimit.Allower, error) {
	cfg := d.Config
	if cfg.RateLimitMax <= 0 {
		return nil, nil
	}
	if d.Redis != nil {
		return ratelimit.SlidingWindow{
			Client: d.Redis,
			Prefix: "ratelimit:api:",
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		}, nil
	}
	fw, err := ratelimit.NewFixedWindowPeriod(nil, cfg.RateLimitMax, cfg.RateLimitWindow, "ratelimit:api")
	if err != nil {
		return nil, fmt.Errorf("api rate limit: %w", err)
	}
	return fw, nil
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
