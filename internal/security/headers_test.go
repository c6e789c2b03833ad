package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeadersMiddlewareSetsSecurityHeaders(t *testing.T) {
	handler := Headers{EnableHSTS: true}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "https://example.com/api/v1/products", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Contains(t, rr.Header().Get("Content-Security-Policy"), "default-src 'none'")
	require.Equal(t, "max-age=31536000", rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersMiddlewareSkipsHSTSOverPlainHTTP(t *testing.T) {
	handler := Headers{EnableHSTS: true}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}
