// Package binding implements LifeCycleManager / AraComIpcBinding (spec.md
// §2/§4, component C12): the façade composing the reactor, router, and
// server manager into one object with a unique-ownership tree, plus an
// external IpcServiceDiscovery collaborator.
package binding

import (
	"context"
	"fmt"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/accesscontrol"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/discovery"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/reactor"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/router"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/server"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/synctask"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/tp"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/trace"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/transport"
	"github.com/marmos91/ara-ipcbinding/internal/logger"
	"github.com/marmos91/ara-ipcbinding/internal/metrics"
)

// AcceptorFactory builds the concrete Acceptor for a local address. Kept
// injectable so the binding itself never hardcodes a Unix-socket path
// convention; cmd/ipcbindingd supplies one derived from the runtime
// Config's IpcUnicastAddress table.
type AcceptorFactory func(addr message.IpcUnicastAddress) (transport.Acceptor, error)

// LifeCycleManager is AraComIpcBinding (spec.md §2/§4.4): owns the reactor,
// the router, the server manager, the trace monitor, and an optional
// service-discovery collaborator, and drives offer/stop-offer calls onto
// the reactor thread via a ReactorSyncTask.
type LifeCycleManager struct {
	Reactor  *reactor.Reactor
	Router   *router.Router
	Manager  *server.Manager
	Trace    *trace.Monitor
	Access   accesscontrol.Checker
	Audit    accesscontrol.AuditSink
	SD       discovery.ServiceDiscovery
	Metrics  metrics.BindingMetrics
	TP       *tp.Mapping

	offerTask *synctask.Task[any]
	cancel    context.CancelFunc
}

// Config bundles LifeCycleManager's construction-time dependencies.
type Config struct {
	ReactorQueueDepth int
	AcceptorFactory   AcceptorFactory
	Access            accesscontrol.Checker
	Audit             accesscontrol.AuditSink
	SD                discovery.ServiceDiscovery
	Metrics           metrics.BindingMetrics
	TP                *tp.Mapping // nil disables SOME/IP-TP reassembly
}

// New composes a LifeCycleManager. The reactor is not yet running; call
// Start to begin its loop goroutine.
func New(cfg Config) *LifeCycleManager {
	if cfg.SD == nil {
		cfg.SD = discovery.Noop{}
	}
	r := reactor.New(cfg.ReactorQueueDepth)
	rt := router.New()
	tm := trace.New()

	lcm := &LifeCycleManager{
		Reactor: r,
		Router:  rt,
		Trace:   tm,
		Access:  cfg.Access,
		Audit:   cfg.Audit,
		SD:      cfg.SD,
		Metrics: cfg.Metrics,
		TP:      cfg.TP,
	}

	lcm.Manager = server.NewManager(func(addr message.IpcUnicastAddress) (*server.Server, error) {
		acceptor, err := cfg.AcceptorFactory(addr)
		if err != nil {
			return nil, fmt.Errorf("binding: building acceptor for %s: %w", addr, err)
		}
		return server.New(server.Config{
			Address:  addr,
			Acceptor: acceptor,
			Reactor:  r,
			Router:   rt,
			Trace:    tm,
			Access:   lcm.Access,
			Audit:    lcm.Audit,
			Metrics:  lcm.Metrics,
			TP:       lcm.TP,
		}), nil
	})
	lcm.offerTask = synctask.NewThreadDriven(r)
	return lcm
}

// Start runs the reactor loop on a new goroutine until ctx is canceled.
func (l *LifeCycleManager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	go l.Reactor.Run(ctx)
}

// Stop cancels the reactor loop and tears down every managed Server.
func (l *LifeCycleManager) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.Reactor.Stop()
	if err := l.Manager.Close(); err != nil {
		logger.Error("binding: closing server manager", "error", err)
	}
}

// OfferService registers id's backend with the router, creates (or reuses)
// the Server for addr, offers the instance on it, and notifies the SD
// collaborator — all re-dispatched onto the reactor thread via a
// ReactorSyncTask (spec.md §5: "offer / stop-offer APIs, which are
// re-dispatched to the reactor via ReactorSyncTask (blocking)").
func (l *LifeCycleManager) OfferService(addr message.IpcUnicastAddress, id message.ProvidedServiceInstanceID, integrityLevel string, backend router.BackendRouter) error {
	result := l.offerTask.Run(func() any {
		l.Router.Register(id.ServiceInstanceIdentifier, backend)
		if _, err := l.Manager.CreateServer(addr, id); err != nil {
			l.Router.Deregister(id.ServiceInstanceIdentifier)
			return err
		}
		l.SD.OfferService(addr, id, integrityLevel)
		return nil
	})
	return asError(result)
}

// StopOfferService withdraws id from its Server and deregisters its
// backend from the router, likewise dispatched through the reactor.
func (l *LifeCycleManager) StopOfferService(id message.ServiceInstanceIdentifier) error {
	result := l.offerTask.Run(func() any {
		err := l.Manager.DisconnectServer(id)
		l.Router.Deregister(id)
		l.SD.StopOfferService(id)
		return err
	})
	return asError(result)
}

func asError(v any) error {
	if v == nil {
		return nil
	}
	if err, ok := v.(error); ok {
		return err
	}
	return nil
}
