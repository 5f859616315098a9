// Package prometheus implements internal/metrics.BindingMetrics with
// Prometheus client collectors, grounded on the teacher's pkg/metrics/prometheus
// implementations of the same interface-plus-registry pattern.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/ara-ipcbinding/internal/metrics"
)

// bindingMetrics is the Prometheus implementation of metrics.BindingMetrics.
type bindingMetrics struct {
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	activeConnections   prometheus.Gauge
	messagesSent        *prometheus.CounterVec
	bytesSent           *prometheus.CounterVec
	messagesReceived    *prometheus.CounterVec
	bytesReceived       *prometheus.CounterVec
	sendQueueDepth      prometheus.Gauge
	tpSegments          *prometheus.CounterVec
	tpAllocatorExhausted prometheus.Counter
	accessDecisions     *prometheus.CounterVec
}

// NewBindingMetrics creates a new Prometheus-backed BindingMetrics
// instance. Returns nil if metrics are not enabled (metrics.InitRegistry
// not called with true), so that callers can pass the result straight
// through to every component without a conditional.
func NewBindingMetrics() metrics.BindingMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &bindingMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ara_ipcbinding_connections_accepted_total",
			Help: "Total number of Unix-socket connections accepted.",
		}),
		connectionsClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ara_ipcbinding_connections_closed_total",
			Help: "Total number of connections torn down.",
		}),
		activeConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ara_ipcbinding_active_connections",
			Help: "Current number of live connections.",
		}),
		messagesSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ara_ipcbinding_messages_sent_total",
			Help: "Total number of wire messages transmitted, by variant.",
		}, []string{"variant"}),
		bytesSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ara_ipcbinding_bytes_sent_total",
			Help: "Total number of payload bytes transmitted, by variant.",
		}, []string{"variant"}),
		messagesReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ara_ipcbinding_messages_received_total",
			Help: "Total number of wire messages received, by variant.",
		}, []string{"variant"}),
		bytesReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ara_ipcbinding_bytes_received_total",
			Help: "Total number of payload bytes received, by variant.",
		}, []string{"variant"}),
		sendQueueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ara_ipcbinding_send_queue_depth",
			Help: "Most recently observed connection Handler send-queue depth.",
		}),
		tpSegments: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ara_ipcbinding_tp_segments_total",
			Help: "Total number of SOME/IP-TP segments processed, by outcome.",
		}, []string{"outcome"}), // pending, complete, dropped
		tpAllocatorExhausted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ara_ipcbinding_tp_allocator_exhausted_total",
			Help: "Total number of deterministic TP allocator exhaustion events.",
		}),
		accessDecisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ara_ipcbinding_access_decisions_total",
			Help: "Total number of access-control decisions, by outcome.",
		}, []string{"decision"}), // allow, deny
	}
}

func (m *bindingMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *bindingMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *bindingMetrics) SetActiveConnections(count int) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

func (m *bindingMetrics) RecordMessageSent(variant string, bytes int) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(variant).Inc()
	m.bytesSent.WithLabelValues(variant).Add(float64(bytes))
}

func (m *bindingMetrics) RecordMessageReceived(variant string, bytes int) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(variant).Inc()
	m.bytesReceived.WithLabelValues(variant).Add(float64(bytes))
}

func (m *bindingMetrics) SetSendQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.sendQueueDepth.Set(float64(depth))
}

func (m *bindingMetrics) RecordTPSegmentAccepted(outcome string) {
	if m == nil {
		return
	}
	m.tpSegments.WithLabelValues(outcome).Inc()
}

func (m *bindingMetrics) RecordTPAllocatorExhausted() {
	if m == nil {
		return
	}
	m.tpAllocatorExhausted.Inc()
}

func (m *bindingMetrics) RecordAccessDecision(decision string) {
	if m == nil {
		return
	}
	m.accessDecisions.WithLabelValues(decision).Inc()
}
