package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medimart",
		Subsystem: "orders",
		Name:      "created_total",
		Help:      "Orders created, labelled by payment method.",
	}, []string{"payment_method"})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "medimart",
		Subsystem: "orders",
		Name:      "cancelled_total",
		Help:      "Orders cancelled by buyers.",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medimart",
		Subsystem: "orders",
		Name:      "status_transitions_total",
		Help:      "Seller-driven order status transitions.",
	}, []string{"from", "to"})

	PaymentsVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medimart",
		Subsystem: "payments",
		Name:      "verified_total",
		Help:      "Payment signature verifications, labelled by outcome.",
	}, []string{"outcome"})

	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medimart",
		Subsystem: "notifications",
		Name:      "side_effect_failures_total",
		Help:      "Notification channel failures swallowed by the dispatcher.",
	}, []string{"channel"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medimart",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status class.",
	}, []string{"route", "status"})
)

// Handler exposes the default registry over HTTP.
func Handler() http.Handler {
	return promhttp.Handler()
}
