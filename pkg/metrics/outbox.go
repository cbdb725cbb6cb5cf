package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the relay loop of the outbox publisher.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	dlq       *prometheus.CounterVec
	pruned    prometheus.Counter
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox rows relayed to Pub/Sub.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Retryable outbox publish failures.",
	}, []string{"event_type"})
	dlq := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_dlq_total",
		Help: "Outbox rows parked in the dead letter table.",
	}, []string{"event_type", "reason"})
	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_pruned_total",
		Help: "Published outbox rows removed by retention.",
	})
	reg.MustRegister(published, failed, dlq, pruned)
	return &OutboxMetrics{published: published, failed: failed, dlq: dlq, pruned: pruned}
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDLQ(eventType, reason string) {
	if m == nil || m.dlq == nil {
		return
	}
	m.dlq.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}

func (m *OutboxMetrics) AddPruned(n int64) {
	if m == nil || m.pruned == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}
