package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryMetrics records transition, read-degradation and notification outcomes.
type DeliveryMetrics struct {
	transitions   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	degradedReads *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_transitions_total",
		Help: "Delivery status transitions by source, target status and result.",
	}, []string{"source", "status", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "delivery_transition_duration_seconds",
		Help:    "Time spent committing a delivery transition.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	degradedReads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_degraded_reads_total",
		Help: "Source queries or statistics that failed and were reported as degraded.",
	}, []string{"component"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_notifications_total",
		Help: "Delivery notifications by type and dispatch outcome.",
	}, []string{"type", "outcome"})
	reg.MustRegister(transitions, duration, degradedReads, notifications)
	return &DeliveryMetrics{
		transitions:   transitions,
		duration:      duration,
		degradedReads: degradedReads,
		notifications: notifications,
	}
}

// IncTransition counts one transition attempt.
func (m *DeliveryMetrics) IncTransition(source, status, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(source), normalizeLabel(status), normalizeLabel(result)).Inc()
}

// ObserveTransition records how long the named operation took.
func (m *DeliveryMetrics) ObserveTransition(operation string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

// IncDegraded counts a degraded source or statistic.
func (m *DeliveryMetrics) IncDegraded(component string) {
	if m == nil || m.degradedReads == nil {
		return
	}
	m.degradedReads.WithLabelValues(normalizeLabel(component)).Inc()
}

// IncNotification counts a notification outcome such as queued, sent, dropped or failed.
func (m *DeliveryMetrics) IncNotification(notificationType, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(notificationType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
