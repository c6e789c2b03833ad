package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPClientConfig configures NewHTTPClient.
type HTTPClientConfig struct {
	// Name labels breaker metrics and logs, e.g. "catalog-api".
	Name        string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	Logger      *zerolog.Logger
	// Breaker thresholds. Zero values take NewBreaker defaults.
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration
}

// HTTPClient wraps an http.Client with retry, timeout and circuit-breaker logic.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
	Fallback    func(context.Context, *http.Request, error) (*http.Response, error)
}

// NewHTTPClient builds an HTTPClient with a named breaker. Outgoing requests
// carry trace context and produce client spans.
func NewHTTPClient(cfg HTTPClientConfig) HTTPClient {
	breaker := NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).WithTarget(cfg.Name)
	if cfg.Logger != nil {
		breaker = breaker.WithLogger(*cfg.Logger)
	}
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return cfg.Name + " " + r.Method
		}),
	)
	return HTTPClient{
		Client:      &http.Client{Transport: transport},
		Breaker:     breaker,
		BaseBackoff: cfg.BaseBackoff,
		MaxAttempts: cfg.MaxAttempts,
		Jitter:      cfg.Jitter,
		Timeout:     cfg.Timeout,
	}
}

// Do executes the request applying retry semantics. The request body is
// buffered so it can be replayed. When the breaker is open ErrOpenCircuit is
// returned unless a fallback is configured.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		breaker = NewBreaker(1, 1, time.Second)
	}
	maxAttempts := cl.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	baseBackoff := cl.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	originalBody, err := ensureReplayableBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if !breaker.Allow(ctx) {
			lastErr = ErrOpenCircuit
			break
		}
		attemptReq := cloneRequestWithContext(ctx, req, originalBody)
		resp, err := cl.doOnce(ctx, attemptReq)
		if err == nil && !retryableStatus(resp.StatusCode) {
			breaker.Report(ctx, true)
			return resp, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("upstream status %s", resp.Status)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		} else {
			lastErr = err
		}
		breaker.Report(ctx, false)
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(Backoff(baseBackoff, attempt, cl.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if cl.Fallback != nil {
		return cl.Fallback(ctx, req, lastErr)
	}
	return nil, lastErr
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// doOnce keeps the attempt context alive until the body is closed.
func (cl HTTPClient) doOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		timeout = cl.Client.Timeout
	}
	if timeout <= 0 {
		return cl.Client.Do(req.WithContext(ctx))
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := cl.Client.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func ensureReplayableBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	src := req.Body
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		src = body
	}
	data, err := io.ReadAll(src)
	_ = src.Close()
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return data, nil
}

func cloneRequestWithContext(ctx context.Context, req *http.Request, body []byte) *http.Request {
	clone := req.Clone(ctx)
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	return clone
}
