package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/chowpati-api/internal/address"
	"github.com/noah-isme/chowpati-api/internal/cart"
	"github.com/noah-isme/chowpati-api/internal/catalog"
	"github.com/noah-isme/chowpati-api/internal/config"
	"github.com/noah-isme/chowpati-api/internal/delivery"
	"github.com/noah-isme/chowpati-api/internal/events"
	"github.com/noah-isme/chowpati-api/internal/health"
	"github.com/noah-isme/chowpati-api/internal/lock"
	"github.com/noah-isme/chowpati-api/internal/obs"
	"github.com/noah-isme/chowpati-api/internal/order"
	"github.com/noah-isme/chowpati-api/internal/resilience"
)

// Options tweak how Open connects to backing services.
type Options struct {
	// InstrumentRedis enables redisotel tracing and metrics hooks.
	InstrumentRedis bool
	// ConnectTimeout bounds the initial database and Redis pings.
	ConnectTimeout time.Duration
	// MeterProvider receives the Redis client metrics. Defaults to the
	// global provider.
	MeterProvider metric.MeterProvider
}

// Dependencies holds the services shared by the HTTP layer. Redis and
// Postgres are optional; without them carts, caches, events and orders
// live in process memory.
type Dependencies struct {
	Config        *config.Config
	Logger        zerolog.Logger
	DB            *pgxpool.Pool
	Redis         *redis.Client
	MeterProvider metric.MeterProvider

	Catalog   *catalog.Service
	Delivery  *delivery.Service
	Events    *events.Bus
	Carts     *cart.Service
	Addresses *address.Service
	Orders    *order.Service

	closers []func()
}

// Open connects the configured backing services and builds the domain
// services on top of them. Call Close when done.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := &Dependencies{Config: cfg, Logger: logger, MeterProvider: opts.MeterProvider}
	if d.MeterProvider == nil {
		d.MeterProvider = otel.GetMeterProvider()
	}

	if cfg.UseRedis() {
		client, err := openRedis(ctx, cfg.RedisURL, timeout, opts.InstrumentRedis, d.MeterProvider, logger)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Redis = client
		d.closers = append(d.closers, func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		})
	}
	if cfg.UsePostgres() {
		pool, err := openPostgres(ctx, cfg.DatabaseURL, timeout)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.DB = pool
		d.closers = append(d.closers, pool.Close)
	}

	if err := d.buildServices(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func openRedis(ctx context.Context, url string, timeout time.Duration, instrument bool, mp metric.MeterProvider, logger zerolog.Logger) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if instrument {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
		if err := redisotel.InstrumentMetrics(client, redisotel.WithMeterProvider(mp)); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func openPostgres(ctx context.Context, url string, timeout time.Duration) (*pgxpool.Pool, error) {
	if err := order.Migrate(url); err != nil {
		return nil, err
	}
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "chowpati-api"

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (d *Dependencies) upstreamClient(name string) resilience.HTTPClient {
	return resilience.NewHTTPClient(resilience.HTTPClientConfig{
		Name:        name,
		Timeout:     d.Config.UpstreamTimeout,
		MaxAttempts: d.Config.UpstreamMaxAttempts,
		BaseBackoff: 200 * time.Millisecond,
		Jitter:      0.2,
		Logger:      &d.Logger,
	})
}

func (d *Dependencies) buildServices() error {
	cfg := d.Config

	catalogLogger := d.Logger.With().Str("component", "catalog").Logger()
	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Remote: catalog.RemoteSource{
			Client:  d.upstreamClient("catalog-api"),
			BaseURL: cfg.UpstreamBaseURL,
			Path:    cfg.CatalogAPIPath,
		},
		Cache:  catalog.NewCache(d.Redis, cfg.CatalogCacheTTL),
		Logger: &catalogLogger,
	})
	if err != nil {
		return fmt.Errorf("initialise catalog service: %w", err)
	}
	d.Catalog = catalogSvc

	d.Delivery = &delivery.Service{
		Client:  d.upstreamClient("pincode-api"),
		BaseURL: cfg.UpstreamBaseURL,
		Path:    cfg.PinCodeAPIPath,
		Cache:   d.Redis,
		TTL:     cfg.PinCodeCacheTTL,
		Logger:  d.Logger.With().Str("component", "delivery").Logger(),
	}

	var eventStore events.EventStore = &events.MemoryStore{}
	if d.Redis != nil {
		eventStore = events.StreamStore{Client: d.Redis, MaxLen: cfg.EventStreamLen}
	}
	d.Events = &events.Bus{
		Store:     eventStore,
		Notifiers: []events.Notifier{events.LogNotifier{Logger: d.Logger.With().Str("component", "events").Logger()}},
	}

	var (
		cartStore    cart.Store    = cart.NewMemoryStore()
		addressStore address.Store = address.NewMemoryStore()
		locker       cart.Locker   = &lock.Local{}
	)
	if d.Redis != nil {
		cartStore = cart.RedisStore{Client: d.Redis, TTL: cfg.CartTTL, Logger: d.Logger.With().Str("component", "cart").Logger()}
		addressStore = address.RedisStore{Client: d.Redis}
		locker = lock.Locker{Client: d.Redis}
	}
	d.Carts = &cart.Service{
		Store:   cartStore,
		Catalog: catalogSvc,
		Locker:  locker,
		Events:  d.Events,
		Logger:  d.Logger.With().Str("component", "cart").Logger(),
		LockTTL: cfg.CartLockTTL,
	}

	d.Addresses = &address.Service{
		Store:    addressStore,
		PinCodes: d.Delivery,
		Locker:   locker,
		LockTTL:  cfg.CartLockTTL,
		Logger:   d.Logger.With().Str("component", "address").Logger(),
	}

	var orderStore order.Store = order.NewMemoryStore()
	switch {
	case d.DB != nil:
		orderStore = order.PostgresStore{Pool: d.DB}
	case d.Redis != nil:
		orderStore = order.RedisStore{Client: d.Redis}
	}
	d.Orders = &order.Service{
		Store:     orderStore,
		Carts:     d.Carts,
		Addresses: d.Addresses,
		PinCodes:  d.Delivery,
		Catalog:   catalogSvc,
		Events:    d.Events,
		Logger:    d.Logger.With().Str("component", "order").Logger(),
	}
	return nil
}

// Probes lists readiness checks for the configured backing services.
func (d *Dependencies) Probes() []health.Probe {
	var probes []health.Probe
	if d.DB != nil {
		probes = append(probes, health.Probe{
			Name:    "postgres",
			Timeout: 500 * time.Millisecond,
			Check:   d.DB.Ping,
		})
	}
	if d.Redis != nil {
		probes = append(probes, health.Probe{
			Name:    "redis",
			Timeout: 300 * time.Millisecond,
			Check:   func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() },
		})
	}
	return probes
}

// Close releases connections in reverse order of opening.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
