package obs_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/chowpati-api/internal/obs"
)

func TestHTTPMetricsUseRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("chowpati", []float64{1, 10}, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/api/v1/carts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/carts/abc", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/carts/{id}", "204"))
	require.Equal(t, float64(1), total)
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPMetricsReuseRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("chowpati", nil, registry)
	second := obs.NewHTTPMetrics("chowpati", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, obs.ParseBucketsCSV(" "))
	require.Equal(t, []float64{5, 50.5}, obs.ParseBucketsCSV("5, x, -1, 50.5,"))
}

func TestTracingMiddlewareContinuesRemoteTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceparent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	var got trace.SpanContext
	h := obs.TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = trace.SpanContextFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("traceparent", traceparent)
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got.TraceID().String())
}

func TestRequestLoggerWritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	h := obs.RequestLogger{Logger: zerolog.New(&buf)}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusAccepted)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)

	out := buf.String()
	require.Contains(t, out, `"message":"inside"`)
	require.Contains(t, out, `"message":"http_request"`)
	require.Contains(t, out, `"status":202`)
	require.Contains(t, out, `"path":"/api/v1/carts"`)
}

func TestRoutePatternContext(t *testing.T) {
	ctx := obs.WithRoutePattern(context.Background(), "/x/{id}")
	require.Equal(t, "/x/{id}", obs.RoutePatternFromContext(ctx))
	require.Empty(t, obs.RoutePatternFromContext(context.Background()))
}
