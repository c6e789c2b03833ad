package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/chowpati-api/internal/common"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Allower decides whether a request identified by key may proceed.
type Allower interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Handler enforces rate limits before delegating to the next handler.
// Limiter errors let the request through.
type Handler struct {
	Limiter Allower
	Key     func(*http.Request) string
	Logger  zerolog.Logger
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		keyFn := h.Key
		if keyFn == nil {
			keyFn = ClientIP
		}
		d, err := h.Limiter.Allow(r.Context(), keyFn(r))
		if err != nil {
			h.Logger.Warn().Err(err).Msg("rate limiter unavailable")
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(d.Limit, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			retryAfter := max(int(time.Until(d.Reset).Seconds()), 0)
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP keys requests by remote host. Run it after middleware.RealIP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
