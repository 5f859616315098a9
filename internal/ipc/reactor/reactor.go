// Package reactor implements the single-threaded cooperative event loop
// named as an external collaborator in spec.md §2/§6 (component C2): one
// goroutine draining software events (one-shot schedulable closures) and
// one-shot timers. Deferred work — SendNextQueued, connection reclamation,
// and the offer/stop-offer closures run through ReactorSyncTask — is
// submitted to a Reactor as closures. Transport I/O does not pass through
// it: send and receive completions run on the transport's own goroutines,
// and the state they touch (send queues, assembler state) is guarded by
// mutexes rather than confined to the reactor goroutine.
//
// Grounded in the teacher's per-server shutdown/wg goroutine pattern
// (internal/protocol/portmap/server.go) and the single consumer-goroutine
// shape used throughout the retrieved corpus's daemon code.
package reactor

import (
	"context"
	"sync"
	"sync/atomic"
)

// Reactor is a single-goroutine event loop. All of its exported methods are
// safe to call from any goroutine; the work they schedule always executes
// on the reactor's own loop goroutine.
type Reactor struct {
	tasks    chan func()
	stopped  atomic.Bool
	wg       sync.WaitGroup
	runOnce  sync.Once
}

// New creates a Reactor with the given pending-task queue depth. A depth of
// zero is valid but means Post blocks until the loop is actively draining.
func New(queueDepth int) *Reactor {
	if queueDepth < 0 {
		queueDepth = 0
	}
	return &Reactor{tasks: make(chan func(), queueDepth)}
}

// Run drains the task queue on the calling goroutine until ctx is canceled
// or Stop is called. Callers invoke this exactly once, typically as
// `go reactor.Run(ctx)`.
func (r *Reactor) Run(ctx context.Context) {
	r.runOnce.Do(func() {
		r.wg.Add(1)
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				r.drainRemaining()
				return
			case fn, ok := <-r.tasks:
				if !ok {
					return
				}
				fn()
			}
		}
	})
}

// drainRemaining runs any tasks already queued at shutdown time so deferred
// teardown closures (connection reclamation, assembler cleanup) still fire
// instead of leaking.
func (r *Reactor) drainRemaining() {
	for {
		select {
		case fn, ok := <-r.tasks:
			if !ok {
				return
			}
			fn()
		default:
			return
		}
	}
}

// Stop closes the task queue; any Post after Stop is silently dropped. Stop
// does not block — pair it with canceling the context passed to Run if the
// caller needs to wait for the loop goroutine to exit.
func (r *Reactor) Stop() {
	if r.stopped.CompareAndSwap(false, true) {
		close(r.tasks)
	}
}

// Post schedules fn to run on the reactor's loop goroutine. Post never runs
// fn on the calling goroutine (spec.md §4.1: "schedule SendNextQueued via a
// reactor software event... never on the calling thread").
func (r *Reactor) Post(fn func()) {
	if r.stopped.Load() {
		return
	}
	defer func() {
		// Stop() may have closed the channel between the Load check above
		// and this send; recover rather than propagate a send-on-closed-channel
		// panic to an unrelated caller.
		_ = recover()
	}()
	r.tasks <- fn
}

// SoftwareEvent is a reactor-schedulable token whose handler fires once per
// Trigger call, always on the reactor thread (spec.md GLOSSARY). Handles
// are owned by the registering component and must be Unregistered before
// the component is torn down (spec.md §9 design note and Open Question:
// "An implementation must unregister in the destructor... to avoid reactor
// callbacks firing on freed memory").
type SoftwareEvent struct {
	reactor *Reactor
	mu      sync.Mutex
	handler func()
}

// RegisterSoftwareEvent creates a SoftwareEvent bound to this reactor.
func (r *Reactor) RegisterSoftwareEvent(handler func()) *SoftwareEvent {
	return &SoftwareEvent{reactor: r, handler: handler}
}

// Trigger schedules the event's handler to run on the reactor thread. A
// Trigger after Unregister is a silent no-op. The handler is looked up again
// when the posted closure runs, so a Trigger still queued when Unregister is
// called does not run it either.
func (e *SoftwareEvent) Trigger() {
	e.mu.Lock()
	registered := e.handler != nil
	e.mu.Unlock()
	if !registered {
		return
	}
	e.reactor.Post(func() {
		e.mu.Lock()
		handler := e.handler
		e.mu.Unlock()
		if handler != nil {
			handler()
		}
	})
}

// Unregister detaches the handler so a subsequent Trigger (possibly already
// in flight on the channel) becomes a no-op. Unregister is idempotent.
func (e *SoftwareEvent) Unregister() {
	e.mu.Lock()
	e.handler = nil
	e.mu.Unlock()
}
