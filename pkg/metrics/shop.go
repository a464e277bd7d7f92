package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics covers catalog composition, cart mutations and checkout outcomes.
type ShopMetrics struct {
	compose  *prometheus.HistogramVec
	cart     *prometheus.CounterVec
	checkout *prometheus.CounterVec
}

func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	compose := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_compose_duration_seconds",
		Help:    "Time spent loading and composing catalog views.",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})
	cart := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and storage kind.",
	}, []string{"op", "kind"})
	checkout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout steps by outcome.",
	}, []string{"step", "outcome"})
	reg.MustRegister(compose, cart, checkout)
	return &ShopMetrics{compose: compose, cart: cart, checkout: checkout}
}

func (m *ShopMetrics) ObserveCompose(view string, elapsed time.Duration) {
	if m == nil || m.compose == nil {
		return
	}
	m.compose.WithLabelValues(normalizeLabel(view)).Observe(elapsed.Seconds())
}

func (m *ShopMetrics) IncCartMutation(op, kind string) {
	if m == nil || m.cart == nil {
		return
	}
	m.cart.WithLabelValues(normalizeLabel(op), normalizeLabel(kind)).Inc()
}

func (m *ShopMetrics) IncCheckout(step, outcome string) {
	if m == nil || m.checkout == nil {
		return
	}
	m.checkout.WithLabelValues(normalizeLabel(step), normalizeLabel(outcome)).Inc()
}
