// Package trace implements TraceMonitor (spec.md §4.7, component C4): a
// read-mostly, thread-safe wrapper dispatching every in/out IPC message to
// an optional user-installed trace sink.
//
// Grounded in original_source's trace_monitor.h (the shared/exclusive-lock
// access pattern: SetTraceIf takes exclusive, every Trace* method takes
// shared) and in the teacher's general preference for small, explicit
// interfaces over a reflective dispatch table.
package trace

import (
	"sync"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
)

// Direction distinguishes an outbound (TX) from an inbound (RX) message.
type Direction int

const (
	TX Direction = iota
	RX
)

func (d Direction) String() string {
	if d == TX {
		return "TX"
	}
	return "RX"
}

// Record is the typed trace entry forwarded to the sink for every traced
// message variant.
type Record struct {
	Direction   Direction
	MessageType message.MessageType
	ServiceID   uint16
	InstanceID  uint16
	MethodID    uint16 // method id, or event id for Notification/Subscribe variants
	ClientID    uint16
	SessionID   uint16
	ReturnCode  message.ReturnCode
	Payload     []byte // const view; the sink must not retain it past the call
}

// Sink is the user-installed trace callback contract. The sink MUST NOT
// call back into Monitor.SetTraceIf — doing so would deadlock against the
// shared lock SetTraceIf takes exclusively (spec.md §5: "the trace sink
// contract forbids calling back into TraceMonitor::SetTraceIf").
type Sink interface {
	Trace(Record)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Record)

func (f SinkFunc) Trace(r Record) { f(r) }

// Monitor is the thread-safe trace dispatcher. The zero value is usable
// (with no sink installed, every Trace* call is a no-op).
type Monitor struct {
	mu   sync.RWMutex
	sink Sink
}

// New creates a Monitor with no sink installed.
func New() *Monitor { return &Monitor{} }

// SetTraceIf installs (or, passed nil, removes) the trace sink. Takes the
// exclusive lock.
func (m *Monitor) SetTraceIf(sink Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// dispatch forwards r to the installed sink, if any, holding the shared
// lock for the duration of the sink call (spec.md §5: "the trace monitor's
// shared lock... is held for the duration of a trace-sink call").
func (m *Monitor) dispatch(r Record) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sink == nil {
		return
	}
	m.sink.Trace(r)
}

// TraceMethodCall records an outbound/inbound Request.
func (m *Monitor) TraceMethodCall(dir Direction, h message.RequestHeader, payload []byte) {
	m.dispatch(Record{Direction: dir, MessageType: message.TypeRequest, ServiceID: h.ServiceID, InstanceID: h.InstanceID, MethodID: h.MethodID, ClientID: h.ClientID, SessionID: h.SessionID, Payload: payload})
}

// TraceMethodNoReturnCall records an outbound/inbound RequestNoReturn.
func (m *Monitor) TraceMethodNoReturnCall(dir Direction, h message.RequestHeader, payload []byte) {
	m.dispatch(Record{Direction: dir, MessageType: message.TypeRequestNoReturn, ServiceID: h.ServiceID, InstanceID: h.InstanceID, MethodID: h.MethodID, ClientID: h.ClientID, SessionID: h.SessionID, Payload: payload})
}

// TraceMethodResponse records an outbound/inbound Response.
func (m *Monitor) TraceMethodResponse(dir Direction, h message.RequestHeader, payload []byte) {
	m.dispatch(Record{Direction: dir, MessageType: message.TypeResponse, ServiceID: h.ServiceID, InstanceID: h.InstanceID, MethodID: h.MethodID, ClientID: h.ClientID, SessionID: h.SessionID, Payload: payload})
}

// TraceMethodErrorResponse records an outbound/inbound ErrorResponse.
func (m *Monitor) TraceMethodErrorResponse(dir Direction, h message.RequestHeader, retCode message.ReturnCode, payload []byte) {
	m.dispatch(Record{Direction: dir, MessageType: message.TypeErrorResponse, ServiceID: h.ServiceID, InstanceID: h.InstanceID, MethodID: h.MethodID, ClientID: h.ClientID, SessionID: h.SessionID, ReturnCode: retCode, Payload: payload})
}

// TraceApplicationError records an outbound/inbound ApplicationError.
func (m *Monitor) TraceApplicationError(dir Direction, h message.ApplicationErrorHeader, payload []byte) {
	m.dispatch(Record{Direction: dir, MessageType: message.TypeApplicationError, ServiceID: h.ServiceID, InstanceID: h.InstanceID, MethodID: h.MethodID, ClientID: h.ClientID, SessionID: h.SessionID, Payload: payload})
}

// TraceNotification records an outbound/inbound Notification.
func (m *Monitor) TraceNotification(dir Direction, h message.NotificationHeader, payload []byte) {
	m.dispatch(Record{Direction: dir, MessageType: message.TypeNotification, ServiceID: h.ServiceID, InstanceID: h.InstanceID, MethodID: h.EventID, SessionID: h.SessionID, Payload: payload})
}

// TraceSubscribeEvent records an outbound/inbound SubscribeEvent.
func (m *Monitor) TraceSubscribeEvent(dir Direction, h message.SubscribeHeader) {
	m.dispatch(Record{Direction: dir, MessageType: message.TypeSubscribeEvent, ServiceID: h.ServiceID, InstanceID: h.InstanceID, MethodID: h.EventID, ClientID: h.ClientID})
}

// TraceSubscribeEventAck records an outbound/inbound SubscribeEventAck.
func (m *Monitor) TraceSubscribeEventAck(dir Direction, h message.SubscribeHeader) {
	m.dispatch(Record{Direction: dir, MessageType: message.TypeSubscribeEventAck, ServiceID: h.ServiceID, InstanceID: h.InstanceID, MethodID: h.EventID, ClientID: h.ClientID})
}

// TraceSubscribeEventNAck records an outbound/inbound SubscribeEventNAck.
func (m *Monitor) TraceSubscribeEventNAck(dir Direction, h message.SubscribeHeader) {
	m.dispatch(Record{Direction: dir, MessageType: message.TypeSubscribeEventNAck, ServiceID: h.ServiceID, InstanceID: h.InstanceID, MethodID: h.EventID, ClientID: h.ClientID})
}

// TraceUnsubscribeEvent records an outbound/inbound UnsubscribeEvent.
func (m *Monitor) TraceUnsubscribeEvent(dir Direction, h message.SubscribeHeader) {
	m.dispatch(Record{Direction: dir, MessageType: message.TypeUnsubscribeEvent, ServiceID: h.ServiceID, InstanceID: h.InstanceID, MethodID: h.EventID, ClientID: h.ClientID})
}
