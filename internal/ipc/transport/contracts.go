// Package transport defines the TransportEndpoint and Acceptor external
// collaborators named in spec.md §6 (components C1, consumed not owned by
// the core), plus a concrete Unix-domain-socket realization so the
// middleware actually runs end to end (SPEC_FULL.md §4.9).
package transport

import "errors"

// SendStatus is the synchronous outcome of a Send call.
type SendStatus int

const (
	// SendCompleted means the transport already transmitted the packet;
	// no completion callback will follow.
	SendCompleted SendStatus = iota
	// SendAsyncPending means transmission is in progress; the completion
	// callback passed to Send will be invoked later. UnixConnection invokes
	// it from the goroutine that performed the write, not on the reactor.
	SendAsyncPending
)

// Errors returned by the Endpoint and Acceptor methods, corresponding to
// spec.md §6's Send error enumeration. ErrBusy is returned by
// Acceptor.AcceptAsync while an accept is already pending; the other five
// are treated as fatal for the owning connection (spec.md §4.1:
// "kDisconnected, kProtocolError, kSize, kResource, and kUninitialized are
// all fatal for the connection").
var (
	ErrUninitialized = errors.New("transport: uninitialized")
	ErrBusy          = errors.New("transport: busy")
	ErrSize          = errors.New("transport: message exceeds maximum size")
	ErrDisconnected  = errors.New("transport: disconnected")
	ErrResource      = errors.New("transport: resource exhausted")
	ErrProtocolError = errors.New("transport: protocol error")
)

// MaxMessageSize bounds a single Send; exceeding it is rejected at Send
// time with ErrSize and no partial transmission is attempted (spec.md
// §4.1 edge case).
const MaxMessageSize = 16 << 20

// Endpoint is the consumed TransportEndpoint contract (spec.md §6,
// component C1): a connection-oriented byte stream with length-delimited
// messages, asynchronous send/receive completions, and a peer credentials
// query.
type Endpoint interface {
	// Send transmits iovec (one or more buffers logically concatenated).
	// If it returns (SendCompleted, nil), the transport already sent the
	// data and completion will NOT be called. If it returns
	// (SendAsyncPending, nil), completion is invoked exactly once, later,
	// with the final error (nil on success). Any other returned error is
	// one of the sentinel Err* values above and is final: completion is
	// not invoked.
	Send(iovec [][]byte, completion func(err error)) (SendStatus, error)

	// ReceiveAsync registers the receive loop described in spec.md §4.1:
	// onAvailable(len) is called when a message of length len is announced
	// and must return a buffer of exactly len bytes for the transport to
	// fill; onCompleted(n, err) is called once the buffer is filled
	// (n == len) or an error occurred. The two calls alternate and never
	// overlap; UnixConnection makes both from its receive goroutine, not
	// on the reactor. ReceiveAsync re-arms itself after each completed
	// message; callers do not need to call it again.
	ReceiveAsync(onAvailable func(length uint32) []byte, onCompleted func(n int, err error)) error

	// CheckPeerIntegrityLevel reports whether the peer satisfies the given
	// integrity classification (spec.md GLOSSARY: absent OS support, every
	// peer is QM).
	CheckPeerIntegrityLevel(level string) bool

	// GetPeerIdentity returns an opaque credential obtained at accept
	// time (spec.md §3 ConnectionSkeleton state: "peer_credentials: opaque
	// u64").
	GetPeerIdentity() uint64

	// Close tears down the endpoint. Idempotent.
	Close() error

	// IsInUse reports whether a send or receive completion is still
	// in-flight (spec.md §4.1 edge case: the destructor waits for this to
	// clear before freeing the handler).
	IsInUse() bool
}

// Acceptor is the consumed Acceptor contract (spec.md §6, component C1).
type Acceptor interface {
	// Init begins listening.
	Init() error
	// AcceptAsync arranges for completion to be called exactly once with
	// the next accepted Endpoint, or an error. Only one pending accept is
	// permitted at a time.
	AcceptAsync(completion func(Endpoint, error)) error
	// Close stops listening. Idempotent.
	Close() error
	// IsInUse reports whether an accept is still pending.
	IsInUse() bool
}
