package dev

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records dev server activity. A nil *Metrics records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	clients    prometheus.Gauge
	broadcasts *prometheus.CounterVec
	changes    *prometheus.CounterVec
}

// NewMetrics registers the dev server metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enhance",
			Subsystem: "dev",
			Name:      "hmr_requests_total",
			Help:      "Hot update document requests by status code.",
		}, []string{"status"}),
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "enhance",
			Subsystem: "dev",
			Name:      "socket_clients",
			Help:      "Connected socket clients.",
		}),
		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enhance",
			Subsystem: "dev",
			Name:      "broadcasts_total",
			Help:      "Messages fanned out to socket clients by type.",
		}, []string{"type"}),
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enhance",
			Subsystem: "dev",
			Name:      "file_changes_total",
			Help:      "Watched file changes by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) request(status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) setClients(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}

func (m *Metrics) broadcast(typ string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(typ).Inc()
}

func (m *Metrics) change(c Change) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(c.Type.String()).Inc()
}
