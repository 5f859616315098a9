// Package discovery defines the IpcServiceDiscovery external-collaborator
// contract composed by LifeCycleManager (spec.md §2 component C12: "composes
// ... plus an external IpcServiceDiscovery"). The SD multicast state machine
// itself is an explicit Non-goal (spec.md §1); this package only carries the
// minimal offer/stop-offer signal surface named in SPEC_FULL.md §10,
// grounded in the original's service_discovery_socket.h offer/stop-offer
// vocabulary.
package discovery

import "github.com/marmos91/ara-ipcbinding/internal/ipc/message"

// ServiceDiscovery is the external collaborator LifeCycleManager notifies
// whenever a service instance starts or stops being offered, so that an SD
// implementation (out of scope here) can announce or withdraw it over the
// network.
type ServiceDiscovery interface {
	OfferService(addr message.IpcUnicastAddress, id message.ProvidedServiceInstanceID, integrityLevel string)
	StopOfferService(id message.ServiceInstanceIdentifier)
}

// Noop is a ServiceDiscovery that does nothing, the default for a daemon
// running with no SD integration (local-only IPC use).
type Noop struct{}

func (Noop) OfferService(message.IpcUnicastAddress, message.ProvidedServiceInstanceID, string) {}
func (Noop) StopOfferService(message.ServiceInstanceIdentifier)                                {}
