package security

import (
	"net/http"
	"strconv"
)

// Headers attaches security headers to API responses.
type Headers struct {
	EnableHSTS bool
	HSTSMaxAge int
}

// Middleware sets the headers on every response. API payloads carry cart
// state, so they are never cached by intermediaries.
func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Cache-Control", "no-store")
		headers.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if h.EnableHSTS && r.TLS != nil {
			maxAge := h.HSTSMaxAge
			if maxAge <= 0 {
				maxAge = 31536000
			}
			headers.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(maxAge))
		}
		next.ServeHTTP(w, r)
	})
}
