package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader is the request header carrying the client supplied key.
const IdempotencyHeader = "Idempotency-Key"

// Idem provides an Idempotency-Key middleware backed by Redis. A nil client
// disables the check.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func hashKey(r *http.Request, key string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + "\n" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware rejects a second request carrying the same key with 409
// IDEMPOTENT_REPLAY. Keys of requests that failed with a 5xx are released so
// the client may retry.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		key := hashKey(r, header)
		ok, err := i.R.SetNX(r.Context(), key, "locked", ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, CodeInternal, "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			if ww.Status() >= http.StatusInternalServerError {
				_ = i.R.Del(context.WithoutCancel(r.Context()), key).Err()
			}
		}()
		next.ServeHTTP(ww, r)
	})
}
