// Package metrics provides Prometheus metrics for the access layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "access"

// Metrics holds all Prometheus collectors for the access layer. It satisfies
// access.Recorder and login.Recorder.
type Metrics struct {
	enabled bool

	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Session metrics
	sessionInvalidations *prometheus.CounterVec

	// Login metrics
	loginTransitions *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// If reg is nil, returns a no-op Metrics instance.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{enabled: reg != nil}
	if !m.enabled {
		return m
	}
	factory := promauto.With(reg)

	m.requestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total operation calls, by operation and outcome.",
	}, []string{"operation", "outcome"})

	m.requestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Operation call duration in seconds, including local rejections.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	m.sessionInvalidations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_invalidations_total",
		Help:      "Sessions removed from the credential store, by reason.",
	}, []string{"reason"})

	m.loginTransitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_transitions_total",
		Help:      "Login state machine transitions.",
	}, []string{"from", "to"})

	return m
}

// ObserveRequest records one operation call.
func (m *Metrics) ObserveRequest(operation, outcome string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.requestsTotal.WithLabelValues(operation, outcome).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveSessionInvalidated records a session removal.
func (m *Metrics) ObserveSessionInvalidated(reason string) {
	if !m.enabled {
		return
	}
	m.sessionInvalidations.WithLabelValues(reason).Inc()
}

// ObserveLoginTransition records a login state change.
func (m *Metrics) ObserveLoginTransition(from, to string) {
	if !m.enabled {
		return
	}
	m.loginTransitions.WithLabelValues(from, to).Inc()
}
