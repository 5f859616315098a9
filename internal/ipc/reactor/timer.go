package reactor

import "time"

// Timer is a one-shot timer whose callback is guaranteed to run on the
// reactor thread (spec.md §2: "one-shot timers" alongside software events
// and I/O readiness).
type Timer struct {
	t *time.Timer
}

// AfterFunc schedules fn to run on the reactor thread after d elapses. The
// returned Timer's Stop cancels it if it has not fired yet.
func (r *Reactor) AfterFunc(d time.Duration, fn func()) *Timer {
	t := time.AfterFunc(d, func() {
		r.Post(fn)
	})
	return &Timer{t: t}
}

// Stop cancels the timer. It reports false if the timer already fired or
// was already stopped.
func (t *Timer) Stop() bool {
	return t.t.Stop()
}
