// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/hr-engine/leave"
)

// Collector implements leave.Recorder on a private registry.
type Collector struct {
	registry            *prometheus.Registry
	handler             http.Handler
	submitted           *prometheus.CounterVec
	validationFailures  *prometheus.CounterVec
	ledgersCreated      *prometheus.CounterVec
	notificationsFailed prometheus.Counter
}

// New registers the engine collectors plus Go runtime metrics.
func New() *Collector {
	registry := prometheus.NewRegistry()

	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hr_requests_submitted_total",
		Help: "Leave and overtime submissions by outcome",
	}, []string{"kind", "outcome"})

	validationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hr_validation_failures_total",
		Help: "Validation messages by request kind and field",
	}, []string{"kind", "field"})

	ledgersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hr_ledgers_created_total",
		Help: "Annual leave ledgers created",
	}, []string{"category"})

	notificationsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hr_notifications_failed_total",
		Help: "Notifications that could not be delivered",
	})

	registry.MustRegister(
		submitted,
		validationFailures,
		ledgersCreated,
		notificationsFailed,
		collectors.NewGoCollector(),
	)

	return &Collector{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		submitted:           submitted,
		validationFailures:  validationFailures,
		ledgersCreated:      ledgersCreated,
		notificationsFailed: notificationsFailed,
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return c.handler
}

// Registry is the underlying registry, for extra collectors and tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) RequestSubmitted(kind, outcome string) {
	c.submitted.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) ValidationFailed(kind, field string) {
	c.validationFailures.WithLabelValues(kind, field).Inc()
}

func (c *Collector) LedgerCreated(category string) {
	c.ledgersCreated.WithLabelValues(category).Inc()
}

func (c *Collector) NotificationFailed() {
	c.notificationsFailed.Inc()
}

var _ leave.Recorder = (*Collector)(nil)
