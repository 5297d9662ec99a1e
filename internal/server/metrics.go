package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsRegistry struct {
	registry          *prometheus.Registry
	mintRequestsTotal *prometheus.CounterVec
	sendsTotal        *prometheus.CounterVec
	priceSourceTotal  *prometheus.CounterVec
	mintDuration      prometheus.Histogram
}

func newMetricsRegistry() *metricsRegistry {
	mints := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridgemint_mint_requests_total",
		Help: "Mint requests by outcome",
	}, []string{"status"})

	sends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridgemint_sends_total",
		Help: "Token transfers by outcome",
	}, []string{"status"})

	priceSources := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridgemint_price_source_total",
		Help: "Price snapshots by source (feed or fallback)",
	}, []string{"source"})

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridgemint_mint_duration_seconds",
		Help:    "End-to-end mint pipeline duration",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	r := prometheus.NewRegistry()
	r.MustRegister(mints, sends, priceSources, duration)

	return &metricsRegistry{
		registry:          r,
		mintRequestsTotal: mints,
		sendsTotal:        sends,
		priceSourceTotal:  priceSources,
		mintDuration:      duration,
	}
}

func (m *metricsRegistry) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metricsRegistry) incMint(status string) {
	m.mintRequestsTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incSend(status string) {
	m.sendsTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incPriceSource(source string) {
	m.priceSourceTotal.WithLabelValues(source).Inc()
}

func (m *metricsRegistry) observeMintDuration(seconds float64) {
	m.mintDuration.Observe(seconds)
}
