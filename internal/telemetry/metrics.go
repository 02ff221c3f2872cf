// Package telemetry holds the Prometheus metrics for cart, coupon, checkout and
// order event activity.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "checkout_core"

// Metrics holds the business metrics. Create one per registry; tests pass a fresh
// prometheus.NewRegistry().
type Metrics struct {
	// Cart
	CartMutations      *prometheus.CounterVec
	CartVersionRetries *prometheus.CounterVec

	// Coupons
	CouponRedemptions *prometheus.CounterVec

	// Checkout
	CheckoutsTotal     *prometheus.CounterVec
	CheckoutDuration   prometheus.Histogram
	StockCompensations *prometheus.CounterVec
	CheckoutOrderValue prometheus.Histogram
	OrderStatusChanges *prometheus.CounterVec

	// Outbox
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
}

// NewMetrics creates and registers all metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CartMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "mutations_total",
				Help:      "Cart mutations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		CartVersionRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "version_retries_total",
				Help:      "Cart writes retried after losing a version check",
			},
			[]string{"operation"},
		),
		CouponRedemptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "coupon",
				Name:      "redemptions_total",
				Help:      "Coupon application attempts by result",
			},
			[]string{"result"},
		),
		CheckoutsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "runs_total",
				Help:      "Checkout runs by final state and error kind",
			},
			[]string{"state", "reason"},
		),
		CheckoutDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "duration_seconds",
				Help:      "Checkout run latency",
				Buckets:   prometheus.DefBuckets,
			},
		),
		StockCompensations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "stock_compensations_total",
				Help:      "Stock increments issued to undo a failed checkout",
			},
			[]string{"outcome"},
		),
		CheckoutOrderValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "order_value",
				Help:      "Order total distribution",
				Buckets:   []float64{10, 25, 50, 75, 100, 150, 250, 500, 1000},
			},
		),
		OrderStatusChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "order",
				Name:      "status_changes_total",
				Help:      "Order status transitions by target status",
			},
			[]string{"status"},
		),
		OutboxPublished: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "outbox",
				Name:      "published_total",
				Help:      "Order events published to the broker",
			},
		),
		OutboxFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "outbox",
				Name:      "failures_total",
				Help:      "Order events that failed to publish",
			},
		),
	}
}

// Outcome maps an error to a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
