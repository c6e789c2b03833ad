package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart mutations by operation.
	CartMutationsTotal *prometheus.CounterVec
	// CartWholesaleCarts counts saved carts by whether wholesale pricing is active.
	CartWholesaleCarts *prometheus.CounterVec
	// OrdersPlacedTotal counts placed orders by outcome.
	OrdersPlacedTotal *prometheus.CounterVec
	// CatalogFallbackTotal counts reads served from the bundled catalog.
	CatalogFallbackTotal prometheus.Counter
	// PinCodeFallbackTotal counts reads served from the built-in pin code list.
	PinCodeFallbackTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation.",
		}, []string{"op"}))
		CartWholesaleCarts = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_saves_total",
			Help:      "Count of cart saves labelled by wholesale pricing state.",
		}, []string{"wholesale"}))
		OrdersPlacedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of order placement outcomes.",
		}, []string{"result"}))
		CatalogFallbackTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fallback_total",
			Help:      "Number of catalog reads served from bundled fallback data.",
		}))
		PinCodeFallbackTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pincode_fallback_total",
			Help:      "Number of pin code reads served from the built-in list.",
		}))
	})
}
