package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "navsync").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for report handling duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "navsync",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the registered metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	reportsTotal   *prometheus.CounterVec
	reportErrors   *prometheus.CounterVec
	reportDuration prometheus.Histogram
	navigations    *prometheus.CounterVec
	commandsSent   *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// New registers the collectors and returns them.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		reportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reports_total",
			Help:        "Total number of location reports received",
			ConstLabels: config.ConstLabels,
		}, []string{"cause"}),

		reportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "report_errors_total",
			Help:        "Total number of location reports that could not be processed",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		reportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "report_duration_seconds",
			Help:        "Time spent handling a location report",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of push/replace calls by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "result"}),

		commandsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commands_sent_total",
			Help:        "Total number of navigation commands sent to clients",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected transport sessions",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// RecordReport records a report handled in d.
func (c *Collector) RecordReport(cause string, d time.Duration) {
	if c == nil {
		return
	}
	c.reportsTotal.WithLabelValues(cause).Inc()
	c.reportDuration.Observe(d.Seconds())
}

// RecordReportError records a report that failed. errType must be a
// small fixed vocabulary ("decode", "handler", ...).
func (c *Collector) RecordReportError(errType string) {
	if c == nil {
		return
	}
	c.reportErrors.WithLabelValues(errType).Inc()
}

// RecordNavigation implements navigate.Recorder.
func (c *Collector) RecordNavigation(op, result string) {
	if c == nil {
		return
	}
	c.navigations.WithLabelValues(op, result).Inc()
}

// RecordCommand records a navigation command sent to a client.
func (c *Collector) RecordCommand(replace bool) {
	if c == nil {
		return
	}
	op := "push"
	if replace {
		op = "replace"
	}
	c.commandsSent.WithLabelValues(op).Inc()
}

// SessionOpened increments the active session gauge.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.activeSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
}
