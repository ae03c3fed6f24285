package hmr

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the update cycle metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "enhance").
	Namespace string

	// Subsystem is the metrics subsystem (default: "hmr").
	Subsystem string

	// Buckets are the histogram buckets for cycle duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the update cycle metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics records update cycles. A nil *Metrics records nothing.
type Metrics struct {
	cycles      *prometheus.CounterVec
	duration    prometheus.Histogram
	phaseErrors *prometheus.CounterVec
	scripts     *prometheus.CounterVec
	stylesheets prometheus.Counter
}

// NewMetrics registers the update cycle metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := MetricsConfig{
		Namespace: "enhance",
		Subsystem: "hmr",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "cycles_total",
			Help:      "Total number of update cycles by result",
		}, []string{"result"}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of update cycles from fetch to reinitialize",
			Buckets:   config.Buckets,
		}),

		phaseErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "phase_errors_total",
			Help:      "Total number of update cycle errors by phase",
		}, []string{"phase"}),

		scripts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "scripts_total",
			Help:      "Inline scripts handled during updates by outcome",
		}, []string{"outcome"}),

		stylesheets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "stylesheets_swapped_total",
			Help:      "Total number of stylesheet links swapped",
		}),
	}
}

func (m *Metrics) observeCycle(success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "error"
	}
	m.cycles.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) phaseError(p Phase) {
	if m == nil {
		return
	}
	m.phaseErrors.WithLabelValues(p.String()).Inc()
}

func (m *Metrics) observeScripts(r ScriptReport) {
	if m == nil {
		return
	}
	m.scripts.WithLabelValues("executed").Add(float64(r.Executed))
	m.scripts.WithLabelValues("skipped").Add(float64(r.Skipped))
	m.scripts.WithLabelValues("failed").Add(float64(len(r.Errors)))
}

func (m *Metrics) observeStylesheets(n int) {
	if m == nil {
		return
	}
	m.stylesheets.Add(float64(n))
}
