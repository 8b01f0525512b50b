package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pos"

// Checkout outcomes recorded in CheckoutTotal.
const (
	OutcomeSuccess           = "success"
	OutcomeEmptyCart         = "empty_cart"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeVariantInactive   = "variant_inactive"
	OutcomeContention        = "contention"
	OutcomeError             = "error"
)

type Metrics struct {
	reg prometheus.Gatherer

	Requests        *prometheus.CounterVec
	Latency         *prometheus.HistogramVec
	CheckoutTotal   *prometheus.CounterVec
	CheckoutLatency prometheus.Histogram
	SessionsExpired prometheus.Counter
}

// New registers the collectors on reg. Each registry may only be used once.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		CheckoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		CheckoutLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "Duration of successful checkouts.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kiosk_sessions_expired_total",
			Help:      "Kiosk sessions transitioned to EXPIRED on access.",
		}),
	}

	reg.MustRegister(m.Requests, m.Latency, m.CheckoutTotal, m.CheckoutLatency, m.SessionsExpired)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
