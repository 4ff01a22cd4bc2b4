// Package metrics exposes the service's Prometheus counters on a private
// registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gptcatalog"

// Metrics implements the gate, auth, webhook and rate limit recorders.
type Metrics struct {
	registry    *prometheus.Registry
	gate        *prometheus.CounterVec
	auth        *prometheus.CounterVec
	webhook     *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		gate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Access gate decisions by outcome.",
		}, []string{"outcome"}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Login and signup attempts by result.",
		}, []string{"operation", "result"}),
		webhook: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries by kind and outcome.",
		}, []string{"kind", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_blocks_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"route"}),
	}
	reg.MustRegister(
		m.gate, m.auth, m.webhook, m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveGate(outcome string) {
	m.gate.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAuth(operation, result string) {
	m.auth.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveWebhook(kind, outcome string) {
	m.webhook.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveRateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
