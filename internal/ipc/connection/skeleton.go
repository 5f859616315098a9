package connection

import (
	"sync"
	"sync/atomic"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/accesscontrol"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/reactor"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/router"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/tp"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/trace"
	"github.com/marmos91/ara-ipcbinding/internal/logger"
	"github.com/marmos91/ara-ipcbinding/internal/metrics"
)

// Router is the subset of router.Router that Skeleton needs: looking a
// service instance up to dispatch into it, and scrubbing a departed
// connection on teardown. A narrow interface, so tests can substitute a
// stub without constructing a full router.Router.
type Router interface {
	Get(id message.ServiceInstanceIdentifier) (router.BackendRouter, bool)
	RemoveConnection(connectionID uint32)
}

// ConnectionObserver receives the deferred-teardown notification (spec.md
// §4.2: "notifies the owning Server to move the shared pointer from the
// live list to the reclamation list"). Implemented by server.Server.
type ConnectionObserver interface {
	OnDisconnect(skeleton *Skeleton)
}

// nextConnectionID hands out the process-wide monotonic connection id
// named in spec.md §3 ("connection_id: process-wide unique u32").
var nextConnectionID atomic.Uint32

// Skeleton is ConnectionSkeleton (spec.md §4.2): a server-side
// per-connection session wrapping a Handler with decode/dispatch and typed
// reply helpers.
type Skeleton struct {
	id              uint32
	peerCredentials uint64

	handler *Handler
	reactor *reactor.Reactor
	router  Router
	trace   *trace.Monitor
	access  accesscontrol.Checker
	audit   accesscontrol.AuditSink
	owner   ConnectionObserver
	metrics metrics.BindingMetrics
	tp      *tp.Mapping

	mu          sync.Mutex
	connected   bool
	teardownOne sync.Once
}

// Config bundles Skeleton's collaborators; all fields except
// Access/Audit/Owner/Metrics/TP are required.
type Config struct {
	Handler *Handler
	Reactor *reactor.Reactor
	Router  Router
	Trace   *trace.Monitor
	Access  accesscontrol.Checker // nil means accesscontrol.AllowAll
	Audit   accesscontrol.AuditSink
	Owner   ConnectionObserver
	Metrics metrics.BindingMetrics
	TP      *tp.Mapping // nil disables SOME/IP-TP reassembly: segmented traffic is then dispatched unassembled
}

// NewSkeleton creates a Skeleton with a fresh process-wide connection id and
// wires the handler's callbacks to the skeleton's decode/dispatch and
// teardown logic.
func NewSkeleton(cfg Config) *Skeleton {
	access := cfg.Access
	if access == nil {
		access = accesscontrol.AllowAll
	}
	s := &Skeleton{
		id:        nextConnectionID.Add(1),
		handler:   cfg.Handler,
		reactor:   cfg.Reactor,
		router:    cfg.Router,
		trace:     cfg.Trace,
		access:    access,
		audit:     cfg.Audit,
		owner:     cfg.Owner,
		metrics:   cfg.Metrics,
		tp:        cfg.TP,
		connected: true,
	}
	s.handler.OnMessageReceivedCallback = s.onMessageReceived
	s.handler.OnErrorCallback = s.onTransportError
	s.handler.Metrics = cfg.Metrics
	s.peerCredentials = cfg.Handler.ep.GetPeerIdentity()
	return s
}

// GetID returns the process-wide unique connection id (spec.md §4.2).
func (s *Skeleton) GetID() uint32 { return s.id }

// ReceiveAsync starts the receive loop. Idempotent after the first
// successful call (delegates to Handler.StartReception).
func (s *Skeleton) ReceiveAsync() error {
	return s.handler.StartReception()
}

// onMessageReceived is the decoding algorithm of spec.md §4.2: deserialize
// the generic header, switch on MessageType, and dispatch.
func (s *Skeleton) onMessageReceived(buf []byte) {
	hdr, err := message.DecodeGenericMessageHeader(buf)
	if err != nil {
		logger.Warn("ipc skeleton: malformed generic header, discarding", "connection_id", s.id, "error", err)
		return
	}
	body := buf[message.HeaderSize:]
	if s.metrics != nil {
		s.metrics.RecordMessageReceived(hdr.MessageType.WithoutTP().String(), len(body))
	}

	switch hdr.MessageType.WithoutTP() {
	case message.TypeRequest:
		s.handleRequest(hdr, body, true)
	case message.TypeRequestNoReturn:
		s.handleRequest(hdr, body, false)
	case message.TypeSubscribeEvent:
		s.handleSubscribe(body)
	case message.TypeUnsubscribeEvent:
		s.handleUnsubscribe(body)
	default:
		logger.Warn("ipc skeleton: unexpected message variant on skeleton side, discarding",
			"connection_id", s.id, "type", hdr.MessageType.String())
	}
}

func (s *Skeleton) handleRequest(hdr message.GenericMessageHeader, body []byte, incoming bool) {
	req, err := message.DecodeRequestHeader(body)
	if err != nil {
		logger.Warn("ipc skeleton: malformed request header, discarding", "connection_id", s.id, "error", err)
		return
	}
	payload := body[message.RequestHeaderSize:]
	instance := message.ServiceInstanceIdentifier{ServiceID: req.ServiceID, InstanceID: req.InstanceID, MajorVer: req.MajorVer}

	if s.tp != nil {
		reassembled, ready := s.reassemble(hdr, req, payload)
		if !ready {
			return
		}
		payload = reassembled
	}

	decision := s.access.Check(s.peerCredentials, instance, req.MethodID, incoming)
	if s.audit != nil {
		s.audit.RecordAccessDecision(s.peerCredentials, instance, req.MethodID, decision)
	}
	if s.metrics != nil {
		if decision == accesscontrol.Deny {
			s.metrics.RecordAccessDecision("deny")
		} else {
			s.metrics.RecordAccessDecision("allow")
		}
	}
	if decision == accesscontrol.Deny {
		if incoming {
			s.SendErrorResponse(req, message.ReturnNotOk)
		}
		return
	}

	if incoming {
		s.trace.TraceMethodCall(trace.RX, req, payload)
	} else {
		s.trace.TraceMethodNoReturnCall(trace.RX, req, payload)
	}

	backend, ok := s.router.Get(instance)
	if !ok {
		if incoming {
			s.SendErrorResponse(req, message.ReturnNotOk)
		}
		return
	}

	remote := router.Remote{ConnectionID: s.id, Payload: payload, Reply: s}
	if incoming {
		backend.OnRequestReceived(req, remote)
	} else {
		backend.OnRequestNoReturnReceived(req, remote)
	}
}

// reassemble implements the SOME/IP-TP reassembly step of the decoding
// algorithm (spec.md §4.5): non-segmented traffic first invalidates any
// in-progress reassembly sharing its logical key, then segmented traffic is
// fed through the AssemblerMapping until a Complete result yields the full
// payload. Returns (payload, true) once dispatch should proceed, or
// (nil, false) if the message was a segment that is still pending, was
// dropped, or came from an unconfigured key.
func (s *Skeleton) reassemble(hdr message.GenericMessageHeader, req message.RequestHeader, body []byte) ([]byte, bool) {
	messageType := hdr.MessageType.WithoutTP()
	if !s.tp.RequiresAssembly(s.id, req.InstanceID, req, hdr.MessageType) {
		return body, true
	}

	tpHdr, segment, ok := tp.DecodeTpHeader(body)
	if !ok {
		logger.Warn("ipc skeleton: truncated tp segment header, discarding", "connection_id", s.id)
		return nil, false
	}

	key := tp.Key{
		InstanceID:   req.InstanceID,
		ServiceID:    req.ServiceID,
		MethodID:     req.MethodID,
		ClientID:     req.ClientID,
		MajorVer:     req.MajorVer,
		MessageType:  messageType,
		ConnectionID: s.id,
	}
	assembler, ok := s.tp.GetAssembler(key)
	if !ok {
		logger.Warn("ipc skeleton: tp segment for unconfigured key, discarding",
			"connection_id", s.id, "service_id", req.ServiceID, "method_id", req.MethodID)
		return nil, false
	}

	result, reassembled := assembler.Accept(tpHdr, segment)
	if result != tp.Pending {
		s.tp.Complete(key)
	}
	if result != tp.Complete {
		return nil, false
	}
	return reassembled, true
}

func (s *Skeleton) handleSubscribe(body []byte) {
	hdr, err := message.DecodeSubscribeHeader(body)
	if err != nil {
		logger.Warn("ipc skeleton: malformed subscribe header, discarding", "connection_id", s.id, "error", err)
		return
	}
	s.trace.TraceSubscribeEvent(trace.RX, hdr)
	instance := message.ServiceInstanceIdentifier{ServiceID: hdr.ServiceID, InstanceID: hdr.InstanceID, MajorVer: hdr.MajorVer}
	backend, ok := s.router.Get(instance)
	if !ok {
		s.SendSubscribeNAck(hdr)
		return
	}
	backend.OnSubscribeEventReceived(hdr, s.id, s)
}

func (s *Skeleton) handleUnsubscribe(body []byte) {
	hdr, err := message.DecodeSubscribeHeader(body)
	if err != nil {
		logger.Warn("ipc skeleton: malformed unsubscribe header, discarding", "connection_id", s.id, "error", err)
		return
	}
	s.trace.TraceUnsubscribeEvent(trace.RX, hdr)
	instance := message.ServiceInstanceIdentifier{ServiceID: hdr.ServiceID, InstanceID: hdr.InstanceID, MajorVer: hdr.MajorVer}
	backend, ok := s.router.Get(instance)
	if !ok {
		return
	}
	backend.OnUnsubscribeEventReceived(hdr, s.id)
}

// --- router.ReplySender ---

func (s *Skeleton) SendResponse(req message.RequestHeader, payload *message.RefBuffer) {
	s.trace.TraceMethodResponse(trace.TX, req, payload.Bytes())
	s.send(message.TypeResponse, message.ReturnOK, req.Encode(), payload)
}

func (s *Skeleton) SendErrorResponse(req message.RequestHeader, code message.ReturnCode) {
	s.trace.TraceMethodErrorResponse(trace.TX, req, code, nil)
	s.send(message.TypeErrorResponse, code, req.Encode(), nil)
}

func (s *Skeleton) SendApplicationError(hdr message.ApplicationErrorHeader, payload *message.RefBuffer) {
	s.trace.TraceApplicationError(trace.TX, hdr, payload.Bytes())
	s.send(message.TypeApplicationError, message.ReturnOK, hdr.Encode(), payload)
}

func (s *Skeleton) SendNotification(hdr message.NotificationHeader, payload *message.RefBuffer) {
	s.trace.TraceNotification(trace.TX, hdr, payload.Bytes())
	s.send(message.TypeNotification, message.ReturnOK, hdr.Encode(), payload)
}

func (s *Skeleton) SendSubscribeAck(hdr message.SubscribeHeader) {
	s.trace.TraceSubscribeEventAck(trace.TX, hdr)
	s.send(message.TypeSubscribeEventAck, message.ReturnOK, hdr.Encode(), nil)
}

func (s *Skeleton) SendSubscribeNAck(hdr message.SubscribeHeader) {
	s.trace.TraceSubscribeEventNAck(trace.TX, hdr)
	s.send(message.TypeSubscribeEventNAck, message.ReturnOK, hdr.Encode(), nil)
}

func (s *Skeleton) send(mt message.MessageType, code message.ReturnCode, variantHeader []byte, payload *message.RefBuffer) {
	length := uint32(len(variantHeader))
	if payload != nil {
		length += uint32(payload.Len())
	}
	p := &message.IpcPacket{
		Header: message.GenericMessageHeader{
			ProtocolVersion: 1,
			MessageType:     mt,
			ReturnCode:      code,
			PayloadLength:   length,
		},
		VariantHeader: variantHeader,
		Payload:       payload,
	}
	s.handler.Send(p)
}

// onTransportError implements HandleIpcErrorAndTerminateDeferred (spec.md
// §4.2): schedule a reactor software event that closes the transport,
// scrubs this connection from every backend router, and notifies the
// owning Server.
func (s *Skeleton) onTransportError(err error, where string) {
	logger.Error("ipc skeleton: transport error, scheduling deferred teardown",
		"connection_id", s.id, "where", where, "error", err)
	s.reactor.Post(s.teardown)
}

func (s *Skeleton) teardown() {
	s.teardownOne.Do(func() {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()

		_ = s.handler.Close()
		s.router.RemoveConnection(s.id)
		if s.owner != nil {
			s.owner.OnDisconnect(s)
		}
	})
}

// Close tears down the connection immediately (used by graceful shutdown
// paths, as opposed to the error-triggered deferred teardown).
func (s *Skeleton) Close() {
	s.teardown()
}

// Connected reports whether the connection is still live.
func (s *Skeleton) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
