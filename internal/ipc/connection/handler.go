// Package connection implements ConnectionMessageHandler (spec.md §4.1,
// component C5) and ConnectionSkeleton (spec.md §4.2, component C6): the
// per-connection send state machine and asynchronous receive loop over one
// transport.Endpoint, plus the server-side decode/dispatch layer built on
// top of it.
//
// Grounded in the teacher's pkg/adapter/smb Connection (session-tracking,
// mutex-guarded send path) and internal/protocol/portmap/server.go's
// reactor-dispatched completion pattern.
package connection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/fatal"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/reactor"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/transport"
	"github.com/marmos91/ara-ipcbinding/internal/logger"
	"github.com/marmos91/ara-ipcbinding/internal/metrics"
)

// SendState is the three-state send machine named in spec.md I3: once Error
// is entered it never leaves and no subsequent Send succeeds.
type SendState int

const (
	Idle SendState = iota
	Sending
	Error
)

func (s SendState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Sending:
		return "Sending"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// ErrHandlerInError is returned by Send once the handler has entered the
// terminal Error state (spec.md I3).
var ErrHandlerInError = errors.New("connection: handler is in Error state")

// Handler is ConnectionMessageHandler: a thread-safe transmission queue plus
// an asynchronous, transport-driven reception loop over one transport.Endpoint.
type Handler struct {
	ep      transport.Endpoint
	reactor *reactor.Reactor

	// OnErrorCallback is invoked at most once (spec.md I-once-only-error),
	// with the precise location of the failing call, whenever a transport
	// error is fatal for the connection.
	OnErrorCallback func(err error, where string)

	// OnMessageReceivedCallback is invoked for every completed receive, on
	// the goroutine from which the transport reports receive completions
	// (not the reactor), delivering the exact n-byte buffer (spec.md I5).
	OnMessageReceivedCallback func(buf []byte)

	// Metrics is optional; nil disables collection (zero overhead).
	Metrics metrics.BindingMetrics

	mu        sync.Mutex
	state     SendState
	queue     []*message.IpcPacket
	inFlight  *message.IpcPacket
	errNotified bool

	receiving   bool
	pendingRecv []byte // the buffer handed to the transport by onMessageAvailable, consumed by onReceiveCompleted; touched only from the transport's non-overlapping receive callbacks, so no lock is needed
}

// NewHandler wires a Handler to an already-accepted transport endpoint.
// reactor is the single cooperative event loop this connection's deferred
// work (SendNextQueued, error notification) is scheduled onto.
func NewHandler(ep transport.Endpoint, r *reactor.Reactor) *Handler {
	return &Handler{ep: ep, reactor: r}
}

// Send implements spec.md §4.1's Send operation. Under the lock: if Error,
// drop; if Sending, enqueue; if Idle, transition to Sending and call the
// transport outside the lock.
func (h *Handler) Send(p *message.IpcPacket) {
	h.mu.Lock()
	switch h.state {
	case Error:
		h.mu.Unlock()
		p.Release()
		return
	case Sending:
		h.queue = append(h.queue, p)
		depth := len(h.queue)
		h.mu.Unlock()
		if h.Metrics != nil {
			h.Metrics.SetSendQueueDepth(depth)
		}
		return
	default: // Idle
		h.state = Sending
		h.inFlight = p
		h.mu.Unlock()
	}
	h.transmit(p)
}

// transmit calls the transport's Send for p, outside the send-state lock
// (spec.md §4.1: "release the lock, call transport Send").
func (h *Handler) transmit(p *message.IpcPacket) {
	h.recordSent(p)
	status, err := h.ep.Send(p.GetPacket(), func(err error) {
		h.onSendCompleted(p, err)
	})
	if err != nil {
		h.onSendCompleted(p, err)
		return
	}
	if status == transport.SendCompleted {
		h.onSendCompleted(p, nil)
	}
	// status == SendAsyncPending: stay in Sending, wait for the callback.
}

// onSendCompleted handles both the synchronous-completion path and the
// asynchronous completion callback. A nil err means success.
func (h *Handler) onSendCompleted(p *message.IpcPacket, err error) {
	p.Release()
	if err != nil {
		h.enterError(err, "Handler.Send")
		return
	}

	h.mu.Lock()
	h.inFlight = nil
	if len(h.queue) == 0 {
		h.state = Idle
		h.mu.Unlock()
		return
	}
	h.state = Idle
	h.mu.Unlock()

	// Never resume draining on the calling thread (spec.md §4.1); always
	// via a reactor software event.
	h.reactor.Post(h.SendNextQueued)
}

// SendNextQueued pops the head of the queue under the lock, transitions to
// Sending, and calls the transport; on immediate success it loops, on async
// pending it returns, on error it transitions to Error (spec.md §4.1).
func (h *Handler) SendNextQueued() {
	for {
		h.mu.Lock()
		if h.state == Error {
			h.mu.Unlock()
			return
		}
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return
		}
		p := h.queue[0]
		h.queue = h.queue[1:]
		depth := len(h.queue)
		h.state = Sending
		h.inFlight = p
		h.mu.Unlock()

		if h.Metrics != nil {
			h.Metrics.SetSendQueueDepth(depth)
		}
		h.recordSent(p)
		status, err := h.ep.Send(p.GetPacket(), func(err error) {
			h.onSendCompleted(p, err)
		})
		if err != nil {
			h.enterError(err, "Handler.SendNextQueued")
			p.Release()
			return
		}
		if status == transport.SendAsyncPending {
			return
		}
		// Synchronous completion: release this packet's reference, loop to
		// check the queue again without going back through the reactor.
		p.Release()
		h.mu.Lock()
		h.inFlight = nil
		h.state = Idle
		h.mu.Unlock()
	}
}

// recordSent reports one outgoing wire message to Metrics, if configured.
func (h *Handler) recordSent(p *message.IpcPacket) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.RecordMessageSent(p.Header.MessageType.String(), p.Payload.Len())
}

// enterError transitions the handler to the terminal Error state and
// notifies the owner exactly once (spec.md I-once-only-error).
func (h *Handler) enterError(err error, where string) {
	h.mu.Lock()
	h.state = Error
	dropped := h.queue
	h.queue = nil
	alreadyNotified := h.errNotified
	h.errNotified = true
	h.mu.Unlock()

	for _, p := range dropped {
		p.Release()
	}
	if alreadyNotified {
		return
	}
	logger.Error("ipc connection: transport error, entering Error state", "where", where, "error", err)
	if h.OnErrorCallback != nil {
		h.OnErrorCallback(err, where)
	}
}

// State returns the current send state. Exposed for tests and diagnostics.
func (h *Handler) State() SendState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// StartReception registers the message-available handler with the
// transport and begins the transport-driven receive loop (spec.md §4.1 receive
// side). Idempotent after the first successful call (spec.md's "Idempotent
// StartReception" testable property — this implementation picks "silently
// idempotent").
func (h *Handler) StartReception() error {
	h.mu.Lock()
	if h.receiving {
		h.mu.Unlock()
		return nil
	}
	h.receiving = true
	h.mu.Unlock()

	return h.ep.ReceiveAsync(h.onMessageAvailable, h.onReceiveCompleted)
}

// onMessageAvailable allocates a buffer of exactly length bytes (spec.md
// §4.1 step 2) and remembers it so onReceiveCompleted can hand it onward;
// the transport.Endpoint contract guarantees these two calls alternate
// without interleaving, so no lock is needed here.
func (h *Handler) onMessageAvailable(length uint32) []byte {
	buf := make([]byte, length)
	h.pendingRecv = buf
	return buf
}

// onReceiveCompleted asserts n == len(allocated) (spec.md I5: "the
// completed size must match the allocated size" — a violation is fatal),
// delivers the buffer, and implicitly re-registers for the next receive
// because the transport's ReceiveAsync re-arms itself.
func (h *Handler) onReceiveCompleted(n int, err error) {
	buf := h.pendingRecv
	h.pendingRecv = nil
	if err != nil {
		h.enterError(err, "Handler.ReceiveAsync")
		return
	}
	if n != len(buf) {
		fatal.Abort("connection: receive size mismatch", "expected", len(buf), "got", n)
		return
	}
	if h.OnMessageReceivedCallback != nil {
		h.OnMessageReceivedCallback(buf)
	}
}

// Close closes the underlying transport. Idempotent via the transport's own
// Close contract.
func (h *Handler) Close() error {
	return h.ep.Close()
}

// IsInUse reports whether the underlying transport still has a send or
// receive in flight (spec.md §4.1 edge case: the destructor waits for this
// before freeing the handler).
func (h *Handler) IsInUse() bool {
	return h.ep.IsInUse()
}

// String aids debugging/logging.
func (h *Handler) String() string {
	return fmt.Sprintf("Handler{state=%s, queued=%d}", h.State(), len(h.queue))
}
