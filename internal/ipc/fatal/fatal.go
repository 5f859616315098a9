// Package fatal implements the single abort-with-context helper named in
// spec.md §9 ("invariant violations call a single abort_with_context(msg,
// location) that logs and terminates") for the "Configuration / invariant
// violation" and "Timeout" error kinds of spec.md §7: double-register,
// unexpected ReactorSyncTask state, receive-size mismatch, reactor
// unregister failure, and the ReactorSyncTask 10s timeout.
package fatal

import (
	"os"
	"runtime"

	"github.com/marmos91/ara-ipcbinding/internal/logger"
)

// abortFn is the actual termination call. It is a variable so a test can
// install a non-exiting stand-in and assert that Abort was reached, without
// killing the test binary.
var abortFn = func() { os.Exit(1) }

// SetAbortFunc overrides the termination call, for tests. Passing nil
// restores the default os.Exit(1) behavior.
func SetAbortFunc(fn func()) {
	if fn == nil {
		fn = func() { os.Exit(1) }
	}
	abortFn = fn
}

// Abort logs msg and args at Error level together with the caller's
// file:line, then calls the abort function. With the default os.Exit(1) it
// never returns; a stand-in installed by SetAbortFunc may return.
func Abort(msg string, args ...any) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "unknown", 0
	}
	fields := append([]any{"location", file, "line", line}, args...)
	logger.Error("fatal invariant violation: "+msg, fields...)
	abortFn()
}
