// Package server implements Server and ConnectionManagerSkeleton (spec.md
// §4.4, components C8/C9): one listening acceptor per local address, the
// set of offered service instances it carries, live/terminated connection
// tracking with deferred reclamation, and the manager multiplexing many
// Servers by address.
//
// Grounded in the teacher's internal/protocol/portmap/server.go Server
// (ServerConfig, Serve(ctx), accept-loop-plus-shutdown-channel shape).
package server

import (
	"fmt"
	"sync"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/accesscontrol"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/connection"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/reactor"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/router"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/tp"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/trace"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/transport"
	"github.com/marmos91/ara-ipcbinding/internal/logger"
	"github.com/marmos91/ara-ipcbinding/internal/metrics"
)

// ErrAlreadyOffered is returned by AddProvidedServiceInstance when the
// instance is already offered on this Server (spec.md §4.4: "refuses
// duplicates").
var ErrAlreadyOffered = fmt.Errorf("server: service instance already offered")

// Server owns one listening Acceptor for one local address (spec.md §4.4).
type Server struct {
	addr     message.IpcUnicastAddress
	acceptor transport.Acceptor
	reactor  *reactor.Reactor
	router   *router.Router
	trace    *trace.Monitor
	access   accesscontrol.Checker
	audit    accesscontrol.AuditSink
	metrics  metrics.BindingMetrics
	tp       *tp.Mapping

	mu         sync.Mutex
	offered    []message.ProvidedServiceInstanceID
	live       map[uint32]*connection.Skeleton
	terminated []*connection.Skeleton
}

// Config bundles Server's collaborators.
type Config struct {
	Address  message.IpcUnicastAddress
	Acceptor transport.Acceptor
	Reactor  *reactor.Reactor
	Router   *router.Router
	Trace    *trace.Monitor
	Access   accesscontrol.Checker
	Audit    accesscontrol.AuditSink
	Metrics  metrics.BindingMetrics
	TP       *tp.Mapping // nil disables SOME/IP-TP reassembly
}

// New creates a Server for one local address. Init must be called before
// accepting connections.
func New(cfg Config) *Server {
	return &Server{
		addr:     cfg.Address,
		acceptor: cfg.Acceptor,
		reactor:  cfg.Reactor,
		router:   cfg.Router,
		trace:    cfg.Trace,
		access:   cfg.Access,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
		tp:       cfg.TP,
		live:     make(map[uint32]*connection.Skeleton),
	}
}

// Init begins listening and arms the first AcceptAsync.
func (s *Server) Init() error {
	if err := s.acceptor.Init(); err != nil {
		return fmt.Errorf("server: init acceptor for %s: %w", s.addr, err)
	}
	return s.armAccept()
}

func (s *Server) armAccept() error {
	return s.acceptor.AcceptAsync(s.onAccepted)
}

func (s *Server) onAccepted(ep transport.Endpoint, err error) {
	if err != nil {
		if err == transport.ErrDisconnected {
			return // acceptor closed; stop re-arming
		}
		logger.Error("server: accept failed", "address", s.addr.String(), "error", err)
		s.reactor.Post(func() { _ = s.armAccept() })
		return
	}

	handler := connection.NewHandler(ep, s.reactor)
	skel := connection.NewSkeleton(connection.Config{
		Handler: handler,
		Reactor: s.reactor,
		Router:  s.router,
		Trace:   s.trace,
		Access:  s.access,
		Audit:   s.audit,
		Owner:   s,
		Metrics: s.metrics,
		TP:      s.tp,
	})

	s.mu.Lock()
	s.live[skel.GetID()] = skel
	activeCount := len(s.live)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordConnectionAccepted()
		s.metrics.SetActiveConnections(activeCount)
	}

	if err := skel.ReceiveAsync(); err != nil {
		logger.Error("server: starting reception failed", "connection_id", skel.GetID(), "error", err)
	}

	s.reactor.Post(func() { _ = s.armAccept() })
}

// OnDisconnect implements connection.ConnectionObserver (spec.md §4.4:
// "moves the shared pointer from live to terminated and triggers a reactor
// software event that empties the terminated list").
func (s *Server) OnDisconnect(skel *connection.Skeleton) {
	s.mu.Lock()
	delete(s.live, skel.GetID())
	s.terminated = append(s.terminated, skel)
	activeCount := len(s.live)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordConnectionClosed()
		s.metrics.SetActiveConnections(activeCount)
	}

	s.reactor.Post(s.reclaim)
}

// reclaim empties the terminated list (spec.md I1: a terminated skeleton
// lives in the reclamation list for at most one reactor tick).
func (s *Server) reclaim() {
	s.mu.Lock()
	s.terminated = nil
	s.mu.Unlock()
}

// AddProvidedServiceInstance offers id on this Server. Refuses duplicates
// (spec.md §4.4).
func (s *Server) AddProvidedServiceInstance(id message.ProvidedServiceInstanceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.offered {
		if o.ServiceInstanceIdentifier == id.ServiceInstanceIdentifier {
			return ErrAlreadyOffered
		}
	}
	s.offered = append(s.offered, id)
	return nil
}

// RemoveProvidedServiceInstance removes id; linear search (spec.md §4.4:
// "removal is O(n) linear search").
func (s *Server) RemoveProvidedServiceInstance(id message.ServiceInstanceIdentifier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.offered {
		if o.ServiceInstanceIdentifier == id {
			s.offered = append(s.offered[:i], s.offered[i+1:]...)
			return true
		}
	}
	return false
}

// OfferedCount reports how many service instances this Server currently
// offers. ConnectionManagerSkeleton destroys a Server once this reaches
// zero.
func (s *Server) OfferedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offered)
}

// LiveCount reports the number of connections currently in the live set.
func (s *Server) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Close stops the acceptor and tears down every live connection.
func (s *Server) Close() error {
	err := s.acceptor.Close()
	s.mu.Lock()
	live := make([]*connection.Skeleton, 0, len(s.live))
	for _, skel := range s.live {
		live = append(live, skel)
	}
	s.mu.Unlock()
	for _, skel := range live {
		skel.Close()
	}
	return err
}
