package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chowpati-api/internal/common"
	"github.com/noah-isme/chowpati-api/internal/obs"
)

const (
	defaultPinCodesPath = "getPinCodes.php"
	pinCodesCacheKey    = "delivery:pincodes"
	pinCodeLength       = 6
)

var (
	// ErrPinCodeRequired is returned for an empty pin code.
	ErrPinCodeRequired = errors.New("pin code is required")
	// ErrPinCodeFormat is returned when the pin code does not have six digits.
	ErrPinCodeFormat = errors.New("pin code must have 6 digits")
	// ErrPinCodeNotServed is returned when the area is outside the delivery list.
	ErrPinCodeNotServed = errors.New("pin code is not in the delivery area")
)

// FallbackPinCodes is served when the pin code API is unavailable.
var FallbackPinCodes = []string{
	"360001", "360002", "360003", "360004", "360005",
	"360006", "360007", "360020", "360022", "360023",
	"360024", "360311", "360030",
}

// Doer executes HTTP requests.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Service serves the list of delivery pin codes.
type Service struct {
	Client  Doer
	BaseURL string
	Path    string
	Cache   *redis.Client
	TTL     time.Duration
	Logger  zerolog.Logger
}

type pinCodesResponse struct {
	Code string `json:"code"`
	Data []struct {
		PinCode string `json:"pinCode"`
	} `json:"Data"`
}

// PinCodes returns the served pin codes from cache, the remote API, or the
// built-in list.
func (s *Service) PinCodes(ctx context.Context) []string {
	if codes := s.cached(ctx); len(codes) > 0 {
		return codes
	}
	codes, err := s.fetch(ctx)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("pin code api failed, serving fallback")
		if obs.PinCodeFallbackTotal != nil {
			obs.PinCodeFallbackTotal.Inc()
		}
		return slices.Clone(FallbackPinCodes)
	}
	s.store(ctx, codes)
	return codes
}

// Validate checks a pin code and returns its digits-only form.
func (s *Service) Validate(ctx context.Context, pin string) (string, error) {
	if strings.TrimSpace(pin) == "" {
		return "", ErrPinCodeRequired
	}
	digits := common.DigitsOnly(pin)
	if len(digits) != pinCodeLength {
		return "", ErrPinCodeFormat
	}
	served := s.PinCodes(ctx)
	if len(served) > 0 && !slices.Contains(served, digits) {
		return "", fmt.Errorf("%s: %w", digits, ErrPinCodeNotServed)
	}
	return digits, nil
}

func (s *Service) fetch(ctx context.Context) ([]string, error) {
	if s.Client == nil || strings.TrimSpace(s.BaseURL) == "" {
		return nil, errors.New("pin code api not configured")
	}
	path := s.Path
	if strings.TrimSpace(path) == "" {
		path = defaultPinCodesPath
	}
	url := strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("pin code api status %d", resp.StatusCode)
	}
	var payload pinCodesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode pin codes: %w", err)
	}
	if payload.Code != "200" || len(payload.Data) == 0 {
		return nil, fmt.Errorf("pin code api returned code %q with %d entries", payload.Code, len(payload.Data))
	}
	codes := make([]string, 0, len(payload.Data))
	for _, item := range payload.Data {
		codes = append(codes, item.PinCode)
	}
	return codes, nil
}

func (s *Service) cached(ctx context.Context) []string {
	if s.Cache == nil {
		return nil
	}
	codes, err := s.Cache.LRange(ctx, pinCodesCacheKey, 0, -1).Result()
	if err != nil {
		s.Logger.Warn().Err(err).Msg("pin code cache read")
		return nil
	}
	return codes
}

func (s *Service) store(ctx context.Context, codes []string) {
	if s.Cache == nil || len(codes) == 0 {
		return
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	values := make([]any, len(codes))
	for i, c := range codes {
		values[i] = c
	}
	_, err := s.Cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, pinCodesCacheKey)
		pipe.RPush(ctx, pinCodesCacheKey, values...)
		pipe.Expire(ctx, pinCodesCacheKey, ttl)
		return nil
	})
	if err != nil {
		s.Logger.Warn().Err(err).Msg("pin code cache write")
	}
}
