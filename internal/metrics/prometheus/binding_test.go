package prometheus

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ara-ipcbinding/internal/metrics"
)

func TestNewBindingMetricsDisabled(t *testing.T) {
	metrics.InitRegistry(false)
	require.Nil(t, NewBindingMetrics())
}

func TestNewBindingMetricsRecordsConnections(t *testing.T) {
	metrics.InitRegistry(true)
	t.Cleanup(func() { metrics.InitRegistry(false) })

	m := NewBindingMetrics()
	require.NotNil(t, m)

	m.RecordConnectionAccepted()
	m.RecordConnectionAccepted()
	m.RecordConnectionClosed()
	m.SetActiveConnections(3)

	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)

	counter := findMetric(t, families, "ara_ipcbinding_connections_accepted_total")
	require.Equal(t, float64(2), counter.GetCounter().GetValue())

	gauge := findMetric(t, families, "ara_ipcbinding_active_connections")
	require.Equal(t, float64(3), gauge.GetGauge().GetValue())
}

func TestNewBindingMetricsRecordsMessagesByVariant(t *testing.T) {
	metrics.InitRegistry(true)
	t.Cleanup(func() { metrics.InitRegistry(false) })

	m := NewBindingMetrics()
	m.RecordMessageSent("request", 128)
	m.RecordMessageReceived("response", 64)

	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)

	sent := findMetric(t, families, "ara_ipcbinding_bytes_sent_total")
	require.Equal(t, float64(128), sent.GetCounter().GetValue())
}

func TestNewBindingMetricsRecordsTPAndAccessOutcomes(t *testing.T) {
	metrics.InitRegistry(true)
	t.Cleanup(func() { metrics.InitRegistry(false) })

	m := NewBindingMetrics()
	m.RecordTPSegmentAccepted("complete")
	m.RecordTPAllocatorExhausted()
	m.RecordAccessDecision("deny")

	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)

	require.NotNil(t, findMetric(t, families, "ara_ipcbinding_tp_allocator_exhausted_total"))
}

// TestNilBindingMetricsIsSafe exercises the nil-receiver contract every method must
// honor so callers never need to guard a possibly-disabled BindingMetrics.
func TestNilBindingMetricsIsSafe(t *testing.T) {
	var m *bindingMetrics
	require.NotPanics(t, func() {
		m.RecordConnectionAccepted()
		m.RecordConnectionClosed()
		m.SetActiveConnections(1)
		m.RecordMessageSent("request", 1)
		m.RecordMessageReceived("request", 1)
		m.SetSendQueueDepth(1)
		m.RecordTPSegmentAccepted("pending")
		m.RecordTPAllocatorExhausted()
		m.RecordAccessDecision("allow")
	})
}

func findMetric(t *testing.T, families []*dto.MetricFamily, name string) *dto.Metric {
	t.Helper()
	for _, f := range families {
		if f.GetName() == name {
			require.NotEmpty(t, f.Metric)
			return f.Metric[0]
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}
