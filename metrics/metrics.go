// Package metrics holds the prometheus collectors for button dispatch and discovery traffic.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "farremote"

// Metrics is the set of counters exported at /metrics
type Metrics struct {
	reg       *prometheus.Registry
	buttons   *prometheus.CounterVec
	actions   *prometheus.CounterVec
	discovery *prometheus.CounterVec
	reloads   *prometheus.CounterVec
}

// New builds the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		buttons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buttons_total",
			Help:      "Button presses received, by whether they were dispatched.",
		}, []string{"state"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Rule actions executed, by kind and result.",
		}, []string{"kind", "result"}),
		discovery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ssdp_messages_total",
			Help:      "SSDP datagrams, by message type and result.",
		}, []string{"message", "result"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_reloads_total",
			Help:      "Rule set reloads, by result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(m.buttons, m.actions, m.discovery, m.reloads)
	return m
}

// Handler serves the registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Button counts a button press; dispatched is false when execution is disabled
func (m *Metrics) Button(dispatched bool) {
	if m == nil {
		return
	}
	state := "dispatched"
	if !dispatched {
		state = "disabled"
	}
	m.buttons.WithLabelValues(state).Inc()
}

// Action counts one executed action
func (m *Metrics) Action(kind string, ok bool) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(kind, result(ok)).Inc()
}

// Discovery counts one SSDP datagram: "search", "notify" or "response"
func (m *Metrics) Discovery(message string, ok bool) {
	if m == nil {
		return
	}
	m.discovery.WithLabelValues(message, result(ok)).Inc()
}

// Reload counts one rule set reload
func (m *Metrics) Reload(ok bool) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
