package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prediction outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeFallback = "fallback"
)

// PricingMetrics records model calls made while pricing carts.
type PricingMetrics struct {
	latency     *prometheus.HistogramVec
	predictions *prometheus.CounterVec
	carts       *prometheus.CounterVec
	quotes      prometheus.Counter
}

// NewPricingMetrics registers the pricing metrics on the provided registerer.
// A nil registerer yields a collector that records nothing.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "partquote_prediction_duration_seconds",
		Help:    "Duration of price model calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})
	predictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "partquote_predictions_total",
		Help: "Per-item price predictions by outcome.",
	}, []string{"model", "outcome"})
	carts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "partquote_carts_priced_total",
		Help: "Pricing runs by whether every item received a price.",
	}, []string{"complete"})
	quotes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "partquote_quotes_logged_total",
		Help: "Quotes written to the quote log.",
	})
	reg.MustRegister(latency, predictions, carts, quotes)
	return &PricingMetrics{
		latency:     latency,
		predictions: predictions,
		carts:       carts,
		quotes:      quotes,
	}
}

// ObservePrediction records one model call.
func (m *PricingMetrics) ObservePrediction(model, outcome string, d time.Duration) {
	if m == nil || m.predictions == nil {
		return
	}
	model = normalizeLabel(model)
	m.predictions.WithLabelValues(model, normalizeLabel(outcome)).Inc()
	m.latency.WithLabelValues(model).Observe(d.Seconds())
}

// IncCart counts one pricing run.
func (m *PricingMetrics) IncCart(complete bool) {
	if m == nil || m.carts == nil {
		return
	}
	label := "false"
	if complete {
		label = "true"
	}
	m.carts.WithLabelValues(label).Inc()
}

// IncQuoteLogged counts one quote persisted to the log.
func (m *PricingMetrics) IncQuoteLogged() {
	if m == nil || m.quotes == nil {
		return
	}
	m.quotes.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
