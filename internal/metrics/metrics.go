// Package metrics defines the optional observability surface for the IPC
// binding daemon: connection lifecycle, message throughput, send-queue
// depth, and TP reassembly outcomes. Passing nil wherever a BindingMetrics
// is accepted disables collection with zero overhead, the same contract
// the ambient pkg/metrics interfaces use.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// BindingMetrics is the observability surface for components C5-C12.
// Implementations can collect metrics about connection lifecycle,
// message throughput, and TP reassembly outcomes. This interface is
// optional - pass nil to disable metrics collection with zero overhead.
type BindingMetrics interface {
	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()

	// SetActiveConnections updates the current live-connection gauge.
	SetActiveConnections(count int)

	// RecordMessageSent records one transmitted wire message by variant
	// ("request", "response", "error_response", "application_error",
	// "notification", "subscribe_ack", "subscribe_nack") and its length.
	RecordMessageSent(variant string, bytes int)

	// RecordMessageReceived records one received wire message by variant.
	RecordMessageReceived(variant string, bytes int)

	// SetSendQueueDepth updates the current Handler send-queue depth gauge.
	SetSendQueueDepth(depth int)

	// RecordTPSegmentAccepted records the outcome ("pending", "complete",
	// "dropped") of one TP segment's pass through Assembler.Accept.
	RecordTPSegmentAccepted(outcome string)

	// RecordTPAllocatorExhausted records a deterministic-allocator
	// exhaustion event (arena capacity reached, segment dropped).
	RecordTPAllocatorExhausted()

	// RecordAccessDecision records one access-control decision ("allow" or
	// "deny") for a request or subscribe/unsubscribe attempt.
	RecordAccessDecision(decision string)
}

var (
	mu       sync.Mutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry enables metrics collection and creates the Prometheus
// registry that every BindingMetrics implementation registers its
// collectors against. Calling it with enabled=false (or not calling it
// at all) leaves IsEnabled false and GetRegistry nil.
func InitRegistry(metricsEnabled bool) *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	enabled = metricsEnabled
	if !enabled {
		registry = nil
		return nil
	}
	registry = prometheus.NewRegistry()
	return registry
}

// IsEnabled reports whether InitRegistry was last called with true.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the active registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}
