// Package router implements SkeletonRouter and the SkeletonBackendRouter
// contract (spec.md §4.3, component C7): a two-level map from
// service-instance identifier to per-instance dispatcher, fanning requests,
// fire-and-forget requests and subscriptions out to generated-service
// backends, and scrubbing a departing connection from every backend's
// subscriber table.
//
// Grounded in the teacher's registry-style component maps (pkg/registry)
// for the "owns a map, register-at-most-once, double-register is fatal"
// shape.
package router

import (
	"sync"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/fatal"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
)

// Remote bundles a received request/subscription with enough context for a
// backend to reply: the connection id, the payload view, and a handle back
// to the owning connection (spec.md §4.2: "connection-weak-ptr"). The
// decoded header is passed to the backend separately, not carried here.
type Remote struct {
	ConnectionID uint32
	Payload      []byte
	Reply        ReplySender
}

// ReplySender is the subset of ConnectionSkeleton a backend needs to answer
// a request or notify a subscriber, kept as a narrow interface so this
// package never imports connection (which imports router).
type ReplySender interface {
	SendResponse(req message.RequestHeader, payload *message.RefBuffer)
	SendErrorResponse(req message.RequestHeader, code message.ReturnCode)
	SendApplicationError(hdr message.ApplicationErrorHeader, payload *message.RefBuffer)
	SendNotification(hdr message.NotificationHeader, payload *message.RefBuffer)
	SendSubscribeAck(hdr message.SubscribeHeader)
	SendSubscribeNAck(hdr message.SubscribeHeader)
}

// BackendRouter is SkeletonBackendRouterInterface (spec.md §4.3):
// implemented per generated service, one instance per offered
// ServiceInstanceIdentifier.
type BackendRouter interface {
	OnRequestReceived(hdr message.RequestHeader, r Remote)
	OnRequestNoReturnReceived(hdr message.RequestHeader, r Remote)
	OnSubscribeEventReceived(hdr message.SubscribeHeader, connectionID uint32, reply ReplySender)
	OnUnsubscribeEventReceived(hdr message.SubscribeHeader, connectionID uint32)
	StartOffering()
	StopOffering()
	RemoveConnection(connectionID uint32)
}

// Router is SkeletonRouter: an ordered map from ServiceInstanceIdentifier to
// the BackendRouter offering it.
type Router struct {
	mu       sync.RWMutex
	backends map[message.ServiceInstanceIdentifier]BackendRouter
	order    []message.ServiceInstanceIdentifier // registration order, for deterministic RemoveConnection fan-out
}

// New creates an empty Router.
func New() *Router {
	return &Router{backends: make(map[message.ServiceInstanceIdentifier]BackendRouter)}
}

// Register binds id to backend. Double-registering the same id is a fatal
// invariant violation (spec.md §4.3: "Register must be called at most once
// per identifier; double-register is a fatal invariant violation").
func (rt *Router) Register(id message.ServiceInstanceIdentifier, backend BackendRouter) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, exists := rt.backends[id]; exists {
		fatal.Abort("router: double-register of service instance", "instance", id.String())
		return
	}
	rt.backends[id] = backend
	rt.order = append(rt.order, id)
	backend.StartOffering()
}

// Deregister removes id. Missing id is a fatal invariant violation (spec.md
// §4.3: "Deregister must find the entry; otherwise violation").
func (rt *Router) Deregister(id message.ServiceInstanceIdentifier) {
	rt.mu.Lock()
	backend, exists := rt.backends[id]
	if !exists {
		rt.mu.Unlock()
		fatal.Abort("router: deregister of unknown service instance", "instance", id.String())
		return
	}
	delete(rt.backends, id)
	for i, o := range rt.order {
		if o == id {
			rt.order = append(rt.order[:i], rt.order[i+1:]...)
			break
		}
	}
	rt.mu.Unlock()
	backend.StopOffering()
}

// Get returns the backend for id, or (nil, false) if no service is
// currently registered for it — not a fatal violation (spec.md §4.3:
// "returns a not-found result (no abort)"); callers reply with an error
// variant instead.
func (rt *Router) Get(id message.ServiceInstanceIdentifier) (BackendRouter, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	b, ok := rt.backends[id]
	return b, ok
}

// RemoveConnection scrubs connectionID from every registered backend's
// subscriber table (spec.md §4.3/§4.2 teardown step b, and testable
// property I-router-scrub).
func (rt *Router) RemoveConnection(connectionID uint32) {
	rt.mu.RLock()
	backends := make([]BackendRouter, 0, len(rt.order))
	for _, id := range rt.order {
		backends = append(backends, rt.backends[id])
	}
	rt.mu.RUnlock()

	for _, b := range backends {
		b.RemoveConnection(connectionID)
	}
}

// Len reports the number of currently registered service instances. Used by
// tests and by server bookkeeping.
func (rt *Router) Len() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.backends)
}
