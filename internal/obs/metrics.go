package obs

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// defaultBucketsMS covers in-memory cart reads through upstream catalog
// fetches that hit the retry budget.
var defaultBucketsMS = []float64{2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// HTTPMetrics groups the request collectors used by HTTPObs.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers the HTTP collectors on reg, or on the default
// registerer when reg is nil. Registering twice returns the existing ones.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = defaultBucketsMS
	}
	buckets = slices.Sorted(slices.Values(buckets))

	return &HTTPMetrics{
		ReqTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"})),
		ReqDur: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"})),
		InFlight: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Requests currently being served.",
		})),
	}
}

// ParseBucketsCSV reads positive bucket bounds from "5,10,25". Invalid
// entries are skipped.
func ParseBucketsCSV(csv string) []float64 {
	var out []float64
	for part := range strings.SplitSeq(csv, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || v <= 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// DurationMillis converts d to fractional milliseconds.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// register adds c to reg, returning the collector already registered under
// the same descriptor when there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
	return c
}
