package tardy

import (
	"sync"
	"time"

	"braces.dev/errtrace"
)

// Handle is the caller-facing lifecycle wrapper around a timeout. It owns
// exactly one [Timer] generation at a time: Stop invalidates the current
// generation, Reset swaps in a fresh one carrying the same callback and
// duration, so the handle's identity stays stable across restarts.
//
// A Handle is created with [Scheduler.NewHandle] and captures the identity
// of the execution context it was created on; deliveries are routed there.
// Reset re-captures the context it is called from.
type Handle struct {
	sched    *Scheduler
	duration time.Duration
	cb       Callback

	mu      sync.Mutex
	tm      *Timer
	started bool
	closed  bool
}

// NewHandle creates a new timeout [Handle] owned by the calling context.
// The duration must be positive and the callback non-nil; violations are
// reported synchronously with [ErrInvalidArgument].
//
// The handle is created unarmed: nothing fires until [Handle.Start].
func (s *Scheduler) NewHandle(duration time.Duration, cb Callback) (*Handle, error) {
	if s.State() == SchedulerStateStopped {
		return nil, errtrace.Wrap(ErrSchedulerClosed)
	}
	tm, err := NewTimer(duration, cb, s.host.CurrentContext())
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &Handle{
		sched:    s,
		duration: duration,
		cb:       cb,
		tm:       tm,
	}, nil
}

// Start arms the current timer generation, recording the start time, and
// registers it with the scheduler. Calling Start again without an
// intervening Stop or Reset is caller error and reported with
// [ErrHandleStarted]; starting a stopped generation is reported with
// [ErrHandleStopped] (use [Handle.Reset] to re-arm).
func (h *Handle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errtrace.Wrap(ErrHandleClosed)
	}
	if h.started {
		return errtrace.Wrap(ErrHandleStarted)
	}
	if !h.tm.Valid() {
		return errtrace.Wrap(ErrHandleStopped)
	}

	h.tm.arm(time.Now())
	if err := h.sched.Start(h.tm); err != nil {
		return errtrace.Wrap(err)
	}
	h.started = true
	return nil
}

// Stop invalidates the current timer generation and removes it from the
// scheduler. After a Stop that completed before the delivery's validity
// re-check, the callback is guaranteed never to run for this generation; a
// Stop racing an in-flight delivery may or may not suppress it. Stop is
// idempotent.
func (h *Handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *Handle) stopLocked() {
	if h.tm == nil {
		return
	}
	h.sched.Stop(h.tm)
	h.started = false
}

// Reset atomically replaces the current timer generation with a fresh one
// carrying the same callback and duration, arms it with a fresh start time
// and registers it with the scheduler. The old generation is invalidated and
// deregistered first, so it can never fire after Reset returns. Reset also
// works as the initial arm if the handle was never started.
func (h *Handle) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errtrace.Wrap(ErrHandleClosed)
	}

	h.stopLocked()
	tm, err := NewTimer(h.duration, h.cb, h.sched.host.CurrentContext())
	if err != nil {
		return errtrace.Wrap(err)
	}
	tm.arm(time.Now())
	if err := h.sched.Start(tm); err != nil {
		return errtrace.Wrap(err)
	}
	h.tm = tm
	h.started = true
	return nil
}

// Close releases the handle: any still-armed generation is invalidated and
// deregistered, so no registry reference is left behind, and further Start
// or Reset calls fail with [ErrHandleClosed]. Close is idempotent.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.stopLocked()
	h.closed = true
	return nil
}
