package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	TradesTotal   *prometheus.CounterVec
	TradeDuration *prometheus.HistogramVec
	HTTPLatency   *prometheus.HistogramVec
}

// New creates the collectors and registers them on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trades_total",
				Help: "Submitted trades by outcome and rejection reason.",
			},
			[]string{"outcome", "reason"},
		),
		TradeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trade_duration_seconds",
				Help:    "Time spent in a trade submission, lock waits included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		HTTPLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_requests_latency_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	m.registry.MustRegister(
		m.TradesTotal,
		m.TradeDuration,
		m.HTTPLatency,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveTrade implements trade.Recorder.
func (m *Metrics) ObserveTrade(outcome, reason string, elapsed time.Duration) {
	m.TradesTotal.WithLabelValues(outcome, reason).Inc()
	m.TradeDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
