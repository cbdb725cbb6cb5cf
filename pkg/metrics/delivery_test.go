package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestDeliveryMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDeliveryMetrics(reg)

	m.IncTransition("artwork_order", "accepted", "ok")
	m.IncTransition("artwork_order", "accepted", "ok")
	m.IncTransition("commission_request", "accepted", "state_conflict")
	m.ObserveTransition("accept", 120*time.Millisecond)
	m.IncDegraded("commission_request")
	m.IncNotification("delivery_accepted", "dropped")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "delivery_transitions_total", map[string]string{"source": "artwork_order", "result": "ok"})
	require.NoError(t, err)
	require.Equal(t, 2.0, got)

	got, err = fetchCounterValue(mfs, "delivery_transitions_total", map[string]string{"result": "state_conflict"})
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "delivery_degraded_reads_total", map[string]string{"component": "commission_request"})
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "delivery_notifications_total", map[string]string{"type": "delivery_accepted", "outcome": "dropped"})
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	sum, err := fetchHistogramSum(mfs, "delivery_transition_duration_seconds", map[string]string{"operation": "accept"})
	require.NoError(t, err)
	require.Greater(t, sum, 0.0)
}

func TestNilRecordersAreNoops(t *testing.T) {
	var d *DeliveryMetrics
	d.IncTransition("a", "b", "c")
	d.ObserveTransition("accept", time.Second)
	d.IncDegraded("x")
	d.IncNotification("x", "y")

	empty := NewDeliveryMetrics(nil)
	empty.IncTransition("a", "b", "c")

	var o *OutboxMetrics
	o.IncPublished("x")
	o.AddPruned(3)
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("delivery_status_changed")
	m.IncFailed("delivery_status_changed")
	m.IncDLQ("delivery_status_changed", "max_attempts")
	m.AddPruned(4)
	m.AddPruned(0)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "outbox_dlq_total", map[string]string{"reason": "max_attempts"})
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "outbox_pruned_total", nil)
	require.NoError(t, err)
	require.Equal(t, 4.0, got)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for name, value := range want {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == name && pair.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
