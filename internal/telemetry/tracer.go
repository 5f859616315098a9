package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for ara::com IPC binding operations, following
// OpenTelemetry semantic-convention naming where applicable.
const (
	AttrConnectionID  = "ipc.connection_id"
	AttrPeerUID       = "ipc.peer_uid"
	AttrServiceID     = "ipc.service_id"
	AttrInstanceID    = "ipc.instance_id"
	AttrMethodID      = "ipc.method_id"
	AttrEventID       = "ipc.event_id"
	AttrMajorVersion  = "ipc.major_version"
	AttrClientID      = "ipc.client_id"
	AttrMessageType   = "ipc.message_type"
	AttrReturnCode    = "ipc.return_code"
	AttrPayloadLength = "ipc.payload_length"
	AttrTPOffset      = "ipc.tp_offset"
	AttrTPMore        = "ipc.tp_more"
	AttrIntegrityLvl  = "ipc.integrity_level"
)

// Span names for binding operations.
const (
	SpanConnectionAccept  = "ipc.connection.accept"
	SpanConnectionReceive = "ipc.connection.receive"
	SpanRequestDispatch   = "ipc.request.dispatch"
	SpanNotificationSend  = "ipc.notification.send"
	SpanTPReassembly      = "ipc.tp.reassemble"
	SpanOfferService      = "ipc.service.offer"
	SpanStopOfferService  = "ipc.service.stop_offer"
)

func ConnectionID(id uint32) attribute.KeyValue { return attribute.Int64(AttrConnectionID, int64(id)) }
func PeerUID(uid uint64) attribute.KeyValue     { return attribute.Int64(AttrPeerUID, int64(uid)) }
func ServiceID(id uint16) attribute.KeyValue    { return attribute.Int64(AttrServiceID, int64(id)) }
func InstanceID(id uint16) attribute.KeyValue   { return attribute.Int64(AttrInstanceID, int64(id)) }
func MethodID(id uint16) attribute.KeyValue     { return attribute.Int64(AttrMethodID, int64(id)) }
func EventID(id uint16) attribute.KeyValue      { return attribute.Int64(AttrEventID, int64(id)) }
func MajorVersion(v uint8) attribute.KeyValue   { return attribute.Int64(AttrMajorVersion, int64(v)) }
func ClientID(id uint16) attribute.KeyValue     { return attribute.Int64(AttrClientID, int64(id)) }
func MessageType(t uint8) attribute.KeyValue    { return attribute.Int64(AttrMessageType, int64(t)) }
func ReturnCode(code uint8) attribute.KeyValue  { return attribute.Int64(AttrReturnCode, int64(code)) }
func PayloadLength(n uint32) attribute.KeyValue { return attribute.Int64(AttrPayloadLength, int64(n)) }
func TPOffset(offset uint32) attribute.KeyValue { return attribute.Int64(AttrTPOffset, int64(offset)) }
func TPMore(more bool) attribute.KeyValue       { return attribute.Bool(AttrTPMore, more) }
func IntegrityLevel(level string) attribute.KeyValue {
	return attribute.String(AttrIntegrityLvl, level)
}

// StartConnectionSpan starts a span for an accepted connection.
func StartConnectionSpan(ctx context.Context, connectionID uint32, peerUID uint64) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanConnectionAccept, trace.WithAttributes(ConnectionID(connectionID), PeerUID(peerUID)))
}

// StartRequestSpan starts a span for a dispatched request/fire-and-forget message.
func StartRequestSpan(ctx context.Context, serviceID, instanceID, methodID uint16, majorVer uint8, clientID uint16) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanRequestDispatch, trace.WithAttributes(
		ServiceID(serviceID), InstanceID(instanceID), MethodID(methodID), MajorVersion(majorVer), ClientID(clientID),
	))
}

// StartTPReassemblySpan starts a span for one TP segment's acceptance into an assembler.
func StartTPReassemblySpan(ctx context.Context, connectionID uint32, offset uint32, more bool) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanTPReassembly, trace.WithAttributes(ConnectionID(connectionID), TPOffset(offset), TPMore(more)))
}

// StartOfferSpan starts a span for an offer/stop-offer lifecycle call.
func StartOfferSpan(ctx context.Context, name string, serviceID, instanceID uint16, integrityLevel string) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(ServiceID(serviceID), InstanceID(instanceID), IntegrityLevel(integrityLevel)))
}
