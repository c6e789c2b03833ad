package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const defaultUpstreamBaseURL = "https://shribombaychowpati.com/AdminPanel/WebApi/"

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	UpstreamBaseURL     string
	CatalogAPIPath      string
	PinCodeAPIPath      string
	UpstreamTimeout     time.Duration
	UpstreamMaxAttempts int
	CatalogCacheTTL     time.Duration
	PinCodeCacheTTL     time.Duration

	CartTTL        time.Duration
	CartLockTTL    time.Duration
	IdempotencyTTL time.Duration
	EventStreamLen int64

	RateLimitMax    int
	RateLimitWindow time.Duration
	OrderRateLimit  string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) { return LoadWith(nil) }

// LoadWith reads the environment and then applies overrides on top of it.
// An empty override removes the key so its default applies. The process
// environment is left untouched.
func LoadWith(overrides map[string]string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	for key, value := range overrides {
		if value == "" {
			k.Delete(key)
			continue
		}
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("override %s: %w", key, err)
		}
	}

	e := envReader{k: k}
	cfg := &Config{
		AppEnv:             e.str("APP_ENV", "development"),
		Port:               e.str("PORT", "8080"),
		DatabaseURL:        e.str("DATABASE_URL", ""),
		RedisURL:           e.str("REDIS_URL", ""),
		CORSAllowedOrigins: e.list("CORS_ALLOWED_ORIGINS"),

		UpstreamBaseURL:     e.str("CATALOG_API_BASE_URL", defaultUpstreamBaseURL),
		CatalogAPIPath:      e.str("CATALOG_API_PATH", "getProducts.php"),
		PinCodeAPIPath:      e.str("PINCODE_API_PATH", "getPinCodes.php"),
		UpstreamTimeout:     e.duration("UPSTREAM_TIMEOUT", 5*time.Second),
		UpstreamMaxAttempts: e.integer("UPSTREAM_MAX_ATTEMPTS", 3),
		CatalogCacheTTL:     e.duration("CATALOG_CACHE_TTL", 5*time.Minute),
		PinCodeCacheTTL:     e.duration("PINCODE_CACHE_TTL", time.Hour),

		CartTTL:        e.duration("CART_TTL", 7*24*time.Hour),
		CartLockTTL:    e.duration("CART_LOCK_TTL", 5*time.Second),
		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		EventStreamLen: int64(e.integer("EVENT_STREAM_MAXLEN", 10000)),

		RateLimitMax:    e.integer("RATE_LIMIT_MAX", 120),
		RateLimitWindow: e.duration("RATE_LIMIT_WINDOW", time.Minute),
		OrderRateLimit:  e.str("ORDER_RATE_LIMIT", "10-M"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("CATALOG_API_BASE_URL must be an absolute URL")
	}
	if _, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(c.Port), ":")); err != nil {
		return fmt.Errorf("PORT must be numeric: %w", err)
	}
	if c.UpstreamMaxAttempts < 1 {
		return errors.New("UPSTREAM_MAX_ATTEMPTS must be at least 1")
	}
	if c.RateLimitMax < 0 {
		return errors.New("RATE_LIMIT_MAX must not be negative")
	}
	return nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// UseRedis reports whether Redis backs carts, caches and events.
func (c *Config) UseRedis() bool { return c.RedisURL != "" }

// UsePostgres reports whether orders are stored in Postgres.
func (c *Config) UsePostgres() bool { return c.DatabaseURL != "" }

// envReader reads trimmed string values and falls back on blanks or
// unparsable input.
type envReader struct{ k *koanf.Koanf }

func (e envReader) raw(key string) string { return strings.TrimSpace(e.k.String(key)) }

func (e envReader) str(key, fallback string) string {
	if v := e.raw(key); v != "" {
		return v
	}
	return fallback
}

func (e envReader) list(key string) []string {
	var out []string
	for part := range strings.SplitSeq(e.raw(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e envReader) duration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(e.raw(key))
	if err != nil {
		return fallback
	}
	return d
}

func (e envReader) integer(key string, fallback int) int {
	n, err := strconv.Atoi(e.raw(key))
	if err != nil {
		return fallback
	}
	return n
}
