// Package synctask implements ReactorSyncTask (spec.md §4.6, component C3):
// a one-shot cross-thread bridge that submits a closure to the single
// cooperative reactor and blocks the calling (application) thread until the
// reactor has executed it, returning its result — or aborts the process if
// the reactor never gets to it within the hard timeout.
//
// The original is a C++ template parameterized on the closure's result
// type; spec.md §9 names Go generics as the idiomatic translation, so Task
// is generic over Result instead of being instantiated per call site.
//
// Grounded in original_source/.../ipc_binding_core/internal/reactor_sync_task.h.
package synctask

import (
	"sync"
	"time"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/fatal"
	"github.com/marmos91/ara-ipcbinding/internal/ipc/reactor"
)

// Timeout is the hard cross-thread wait bound named by spec.md I7/§4.6/§7:
// exceeding it is a fatal invariant violation (process abort), not a silent
// failure.
const Timeout = 10 * time.Second

// Mode selects how a Task executes its closure.
type Mode int

const (
	// ThreadDriven executes the closure on the reactor thread via a
	// registered software event, and blocks the caller for it.
	ThreadDriven Mode = iota
	// Polling executes the closure directly on the calling thread while
	// holding the single process-wide polling-mode lock (spec.md §4.6:
	// "acquire the process-wide polling-mode lock, invoke the closure,
	// return"). Injected via NewPollingLock rather than reached through a
	// package-level singleton, per spec.md §9's "Global mutable singleton"
	// re-architecture note.
	Polling
)

// PollingLock is the process-wide lock used by every polling-mode Task.
// Exactly one PollingLock should exist per process; callers construct it
// once at startup and pass it to every Task built in Polling mode.
type PollingLock struct {
	mu sync.Mutex
}

// NewPollingLock creates a fresh process-wide polling lock.
func NewPollingLock() *PollingLock { return &PollingLock{} }

// Task is a one-shot reactor/application-thread synchronization point,
// generic over the closure's result type (spec.md §9's Go translation of
// the original's template<typename Result>).
type Task[Result any] struct {
	mode        Mode
	reactor     *reactor.Reactor
	pollingLock *PollingLock
	event       *reactor.SoftwareEvent

	mu       sync.Mutex
	cond     *sync.Cond
	done     bool
	result   Result
}

// NewThreadDriven creates a Task that executes its closures on r's reactor
// thread. No software event is registered at construction: each Run
// registers its own event, triggers it, and unregisters it before
// returning, and Close unregisters the most recently registered one
// (spec.md Open Question: the software event handle must be unregistered
// before the task's storage is freed, to avoid a reactor callback firing
// on freed memory).
func NewThreadDriven(r *reactor.Reactor) *Task[any] {
	t := &Task[any]{mode: ThreadDriven, reactor: r}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// NewPolling creates a Task that executes its closures synchronously on the
// calling thread, serialized by lock.
func NewPolling[Result any](lock *PollingLock) *Task[Result] {
	return &Task[Result]{mode: Polling, pollingLock: lock}
}

// Run executes fn according to the Task's mode and returns its result.
//
// In ThreadDriven mode, fn runs on the reactor thread; Run blocks the
// calling goroutine for at most Timeout. If the reactor never executes fn
// within Timeout, Run treats this as the fatal violation spec.md I7
// describes and calls fatal.Abort — Run does not return in that case.
//
// Only one concurrent Run per Task is permitted (spec.md §4.6); callers
// must serialize their own calls (a Task is not meant to be shared across
// concurrently-racing application threads without external coordination).
func (t *Task[Result]) Run(fn func() Result) Result {
	switch t.mode {
	case Polling:
		t.pollingLock.mu.Lock()
		defer t.pollingLock.mu.Unlock()
		return fn()
	default:
		return t.runThreadDriven(fn)
	}
}

func (t *Task[Result]) runThreadDriven(fn func() Result) Result {
	t.mu.Lock()
	t.done = false
	t.mu.Unlock()

	handlerDone := make(chan struct{})
	var result Result
	event := t.reactor.RegisterSoftwareEvent(func() {
		result = fn()
		t.mu.Lock()
		t.done = true
		t.mu.Unlock()
		t.cond.Signal()
		close(handlerDone)
	})
	t.mu.Lock()
	t.event = event
	t.mu.Unlock()
	defer event.Unregister()

	event.Trigger()

	waitDone := make(chan struct{})
	go func() {
		t.mu.Lock()
		for !t.done {
			t.cond.Wait()
		}
		t.mu.Unlock()
		close(waitDone)
	}()

	select {
	case <-waitDone:
		return result
	case <-time.After(Timeout):
		fatal.Abort("synctask: reactor did not execute closure within timeout",
			"timeout", Timeout.String())
		var zero Result
		return zero // unreachable: fatal.Abort terminates the process
	}
}

// Close unregisters the Task's software event. It is a no-op for
// Polling-mode tasks.
func (t *Task[Result]) Close() {
	t.mu.Lock()
	event := t.event
	t.mu.Unlock()
	if event != nil {
		event.Unregister()
	}
}
