package server

import (
	"fmt"
	"sync"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
)

// ErrServiceAlreadyOffered is returned by CreateServer when the service is
// already offered on any address managed by this ConnectionManagerSkeleton
// (spec.md §4.4).
var ErrServiceAlreadyOffered = fmt.Errorf("server: service already offered on another address")

// ErrServiceNotOffered is returned by DisconnectServer when no managed
// Server currently hosts the given service instance.
var ErrServiceNotOffered = fmt.Errorf("server: service not offered")

// ServerFactory builds a new Server for an address the first time it is
// needed. Injected so ConnectionManagerSkeleton does not need to know how
// to construct an acceptor/reactor/router for each address.
type ServerFactory func(addr message.IpcUnicastAddress) (*Server, error)

// Manager is ConnectionManagerSkeleton (spec.md §4.4): owns a set of
// Servers keyed by local address and manages offer/stop-offer lifecycle.
type Manager struct {
	newServer ServerFactory

	mu      sync.Mutex
	servers map[message.IpcUnicastAddress]*Server
}

// NewManager creates an empty Manager. factory is called whenever
// CreateServer needs a Server for an address that has none: on first use,
// and again after the previous Server there was destroyed or failed Init.
func NewManager(factory ServerFactory) *Manager {
	return &Manager{newServer: factory, servers: make(map[message.IpcUnicastAddress]*Server)}
}

// CreateServer offers service on addr: creates a Server for addr on first
// use, registers the service with it, and returns ErrServiceAlreadyOffered
// if the service is already offered on any managed address (spec.md §4.4).
func (m *Manager) CreateServer(addr message.IpcUnicastAddress, service message.ProvidedServiceInstanceID) (*Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for a, srv := range m.servers {
		if a == addr {
			continue
		}
		if srv.offersLocked(service.ServiceInstanceIdentifier) {
			return nil, ErrServiceAlreadyOffered
		}
	}

	srv, exists := m.servers[addr]
	if !exists {
		var err error
		srv, err = m.newServer(addr)
		if err != nil {
			return nil, fmt.Errorf("server: creating server for %s: %w", addr, err)
		}
		if err := srv.Init(); err != nil {
			return nil, err
		}
		m.servers[addr] = srv
	}

	if err := srv.AddProvidedServiceInstance(service); err != nil {
		return nil, err
	}
	return srv, nil
}

// DisconnectServer finds the Server hosting service and removes that one
// instance; when the Server then offers zero services it is destroyed
// (spec.md §4.4).
func (m *Manager) DisconnectServer(service message.ServiceInstanceIdentifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for addr, srv := range m.servers {
		if srv.RemoveProvidedServiceInstance(service) {
			if srv.OfferedCount() == 0 {
				_ = srv.Close()
				delete(m.servers, addr)
			}
			return nil
		}
	}
	return ErrServiceNotOffered
}

// offersLocked reports whether srv currently offers id. Exposed via a
// lowercase helper on Server so Manager can check across addresses without
// taking Server's own lock twice in a deadlock-prone order; Server's lock is
// taken internally.
func (s *Server) offersLocked(id message.ServiceInstanceIdentifier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.offered {
		if o.ServiceInstanceIdentifier == id {
			return true
		}
	}
	return false
}

// Close tears down every managed Server.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for addr, srv := range m.servers {
		if err := srv.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.servers, addr)
	}
	return firstErr
}

// ServerCount reports the number of currently managed Servers. Test/
// diagnostic helper.
func (m *Manager) ServerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.servers)
}
