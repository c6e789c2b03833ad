package resilience_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chowpati-api/internal/resilience"
)

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	t.Cleanup(srv.Close)

	client := resilience.NewHTTPClient(resilience.HTTPClientConfig{
		Name:                "retry-test",
		MaxAttempts:         3,
		BaseBackoff:         time.Millisecond,
		Timeout:             time.Second,
		BreakerMinRequests:  10,
		BreakerFailureRatio: 1,
	})
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
	require.EqualValues(t, 3, calls.Load())
}

func TestHTTPClientOpenBreakerUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := resilience.NewHTTPClient(resilience.HTTPClientConfig{
		Name:                "fallback-test",
		MaxAttempts:         1,
		BreakerMinRequests:  1,
		BreakerFailureRatio: 0.5,
		BreakerOpenFor:      time.Minute,
	})
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(context.Background(), req)
	require.Error(t, err)

	_, err = client.Do(context.Background(), req)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)

	var fallbackErr error
	client.Fallback = func(_ context.Context, _ *http.Request, err error) (*http.Response, error) {
		fallbackErr = err
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}
	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.ErrorIs(t, fallbackErr, resilience.ErrOpenCircuit)
}
