package resilience

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	// BreakerState reports the state per upstream: 0 closed, 1 open, 2 half-open.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitions counts state changes per upstream.
	BreakerTransitions *prometheus.CounterVec
	// BreakerOpenedTotal counts how often each upstream breaker opened.
	BreakerOpenedTotal *prometheus.CounterVec
)

// RegisterMetrics creates the breaker collectors and registers them once.
// Breakers created before registration do not report.
func RegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		BreakerState = reuse(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_breaker_state",
			Help:      "Current upstream breaker state: 0=closed,1=open,2=half-open.",
		}, []string{"target"}))
		BreakerTransitions = reuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_breaker_transitions_total",
			Help:      "Count of upstream breaker state transitions.",
		}, []string{"target", "from", "to"}))
		BreakerOpenedTotal = reuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_breaker_open_total",
			Help:      "Number of times an upstream breaker opened.",
		}, []string{"target"}))
	})
}

func reuse[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
