package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for ConnContext in context.Context
var logContextKey = contextKey{}

// ConnContext holds connection/request-scoped logging context. It is
// attached to a context.Context so every log line emitted while servicing
// one IPC connection or request carries the same correlation fields.
type ConnContext struct {
	TraceID         string    // OpenTelemetry trace ID
	SpanID          string    // OpenTelemetry span ID
	ConnectionID    uint32    // process-wide unique connection id
	ServiceInstance string    // "service:instance:major.minor" for log readability
	PeerCredentials uint64    // opaque peer credential obtained at accept time
	MethodID        uint32    // method/event id of the request being handled
	StartTime       time.Time // for duration calculation
}

// WithContext returns a new context with the given ConnContext attached.
func WithContext(ctx context.Context, lc *ConnContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the ConnContext from ctx, or nil if not present.
func FromContext(ctx context.Context) *ConnContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*ConnContext)
	return lc
}

// NewConnContext creates a new ConnContext for a just-accepted connection.
func NewConnContext(connectionID uint32) *ConnContext {
	return &ConnContext{
		ConnectionID: connectionID,
		StartTime:    time.Now(),
	}
}

// Clone creates a copy of the ConnContext.
func (lc *ConnContext) Clone() *ConnContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithServiceInstance returns a copy with the service instance set.
func (lc *ConnContext) WithServiceInstance(instance string) *ConnContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ServiceInstance = instance
	}
	return clone
}

// WithPeerCredentials returns a copy with the peer credential set.
func (lc *ConnContext) WithPeerCredentials(cred uint64) *ConnContext {
	clone := lc.Clone()
	if clone != nil {
		clone.PeerCredentials = cred
	}
	return clone
}

// WithMethod returns a copy with the method/event id set.
func (lc *ConnContext) WithMethod(methodID uint32) *ConnContext {
	clone := lc.Clone()
	if clone != nil {
		clone.MethodID = methodID
	}
	return clone
}

// WithTrace returns a copy with trace info set.
func (lc *ConnContext) WithTrace(traceID, spanID string) *ConnContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *ConnContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
