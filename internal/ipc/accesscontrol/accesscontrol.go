// Package accesscontrol implements the incoming-request access-control gate
// named in spec.md §4.2 step 2 ("consult access-control (peer_credentials,
// service_instance, method_id, incoming)") and the AuditSink supplement from
// SPEC_FULL.md §10, grounded in the original's auditing.h vocabulary.
package accesscontrol

import (
	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
	"github.com/marmos91/ara-ipcbinding/internal/logger"
)

// Decision is the outcome of an access-control check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Checker decides whether a peer may invoke a method on a service instance.
// incoming distinguishes a Request (true) from a RequestNoReturn (false) —
// mirrored from spec.md's "(peer_credentials, service_instance, method_id,
// incoming)" tuple.
type Checker interface {
	Check(peerCredentials uint64, instance message.ServiceInstanceIdentifier, methodID uint16, incoming bool) Decision
}

// CheckerFunc adapts a plain function to the Checker interface.
type CheckerFunc func(peerCredentials uint64, instance message.ServiceInstanceIdentifier, methodID uint16, incoming bool) Decision

func (f CheckerFunc) Check(peerCredentials uint64, instance message.ServiceInstanceIdentifier, methodID uint16, incoming bool) Decision {
	return f(peerCredentials, instance, methodID, incoming)
}

// AllowAll is the permissive default Checker: every request is allowed.
// Suitable for a daemon not configured with an access-control policy.
var AllowAll Checker = CheckerFunc(func(uint64, message.ServiceInstanceIdentifier, uint16, bool) Decision {
	return Allow
})

// AuditSink records every access-control decision for audit trails,
// supplementing the distilled spec.md with the original's auditing.h
// feature (SPEC_FULL.md §10). The zero value (nil) means no auditing.
type AuditSink interface {
	RecordAccessDecision(peerCredentials uint64, instance message.ServiceInstanceIdentifier, methodID uint16, decision Decision)
}

// LoggingAuditSink is a minimal AuditSink that logs every decision via
// internal/logger, the default when a caller wants auditing without a
// dedicated backing store.
type LoggingAuditSink struct{}

func (LoggingAuditSink) RecordAccessDecision(peerCredentials uint64, instance message.ServiceInstanceIdentifier, methodID uint16, decision Decision) {
	verb := "allowed"
	if decision == Deny {
		verb = "denied"
	}
	logger.Info("access control decision",
		"peer_credentials", peerCredentials,
		"instance", instance.String(),
		"method_id", methodID,
		"decision", verb)
}
