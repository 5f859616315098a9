package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the IPC binding.
// Use these keys consistently across all log statements for log
// aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Connection & Session
	// ========================================================================
	KeyConnectionID     = "connection_id"     // process-wide unique connection id
	KeyServiceInstance  = "service_instance"  // "service:instance:major.minor"
	KeyPeerCredentials  = "peer_credentials"  // opaque peer credential (SO_PEERCRED-derived)
	KeyIntegrityLevel   = "integrity_level"   // peer integrity classification (QM, ...)
	KeyLocalAddress     = "local_address"     // IpcUnicastAddress domain:port

	// ========================================================================
	// Message identity
	// ========================================================================
	KeyMessageType = "message_type" // GenericMessageHeader message type
	KeyServiceID   = "service_id"
	KeyInstanceID  = "instance_id"
	KeyMajorVer    = "major_version"
	KeyMinorVer    = "minor_version"
	KeyMethodID    = "method_id"
	KeyEventID     = "event_id"
	KeyClientID    = "client_id"
	KeySessionID   = "session_id"
	KeyReturnCode  = "return_code"
	KeyPayloadLen  = "payload_length"

	// ========================================================================
	// TP reassembly
	// ========================================================================
	KeyTPOffset    = "tp_offset"
	KeyTPMore      = "tp_more"
	KeyAssemblerKey = "assembler_key"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeyOperation  = "operation"   // Sub-operation / state-machine transition name
	KeyAttempt    = "attempt"     // Retry attempt number
)

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Connection & Session
// ----------------------------------------------------------------------------

// ConnectionID returns a slog.Attr for the connection identifier.
func ConnectionID(id uint32) slog.Attr {
	return slog.Uint64(KeyConnectionID, uint64(id))
}

// ServiceInstance returns a slog.Attr for a service-instance identifier string.
func ServiceInstance(s string) slog.Attr {
	return slog.String(KeyServiceInstance, s)
}

// PeerCredentials returns a slog.Attr for an opaque peer credential value.
func PeerCredentials(cred uint64) slog.Attr {
	return slog.Uint64(KeyPeerCredentials, cred)
}

// IntegrityLevel returns a slog.Attr for a peer integrity classification.
func IntegrityLevel(level string) slog.Attr {
	return slog.String(KeyIntegrityLevel, level)
}

// LocalAddress returns a slog.Attr for an IpcUnicastAddress rendered as text.
func LocalAddress(addr string) slog.Attr {
	return slog.String(KeyLocalAddress, addr)
}

// ----------------------------------------------------------------------------
// Message identity
// ----------------------------------------------------------------------------

// MessageType returns a slog.Attr for the GenericMessageHeader message type.
func MessageType(t uint8) slog.Attr {
	return slog.Int(KeyMessageType, int(t))
}

// ServiceID returns a slog.Attr for a SOME/IP service id.
func ServiceID(id uint16) slog.Attr {
	return slog.Uint64(KeyServiceID, uint64(id))
}

// InstanceID returns a slog.Attr for a SOME/IP instance id.
func InstanceID(id uint16) slog.Attr {
	return slog.Uint64(KeyInstanceID, uint64(id))
}

// MethodID returns a slog.Attr for a method or event id.
func MethodID(id uint16) slog.Attr {
	return slog.Uint64(KeyMethodID, uint64(id))
}

// EventID returns a slog.Attr for an event id.
func EventID(id uint16) slog.Attr {
	return slog.Uint64(KeyEventID, uint64(id))
}

// ClientID returns a slog.Attr for a client id.
func ClientID(id uint16) slog.Attr {
	return slog.Uint64(KeyClientID, uint64(id))
}

// SessionID returns a slog.Attr for a session id.
func SessionID(id uint16) slog.Attr {
	return slog.Uint64(KeySessionID, uint64(id))
}

// ReturnCode returns a slog.Attr for a SOME/IP return code.
func ReturnCode(code uint8) slog.Attr {
	return slog.Int(KeyReturnCode, int(code))
}

// PayloadLen returns a slog.Attr for a payload length in bytes.
func PayloadLen(n int) slog.Attr {
	return slog.Int(KeyPayloadLen, n)
}

// ----------------------------------------------------------------------------
// TP reassembly
// ----------------------------------------------------------------------------

// TPOffset returns a slog.Attr for a TP segment byte offset.
func TPOffset(off uint32) slog.Attr {
	return slog.Uint64(KeyTPOffset, uint64(off))
}

// TPMore returns a slog.Attr for the TP more-segments flag.
func TPMore(more bool) slog.Attr {
	return slog.Bool(KeyTPMore, more)
}

// AssemblerKey returns a slog.Attr for a rendered AssemblerMapping key.
func AssemblerKey(key string) slog.Attr {
	return slog.String(KeyAssemblerKey, key)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Operation returns a slog.Attr for sub-operation / transition name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
