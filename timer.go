package tardy

import (
	"log/slog"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"
)

// Timer is the record of one armed timeout: a callback, an immutable
// duration, the monotonic timestamp it was armed at and the identity of the
// execution context that owns it.
//
// A Timer is single-shot and single-generation: once invalidated — by
// [Scheduler.Stop], by a successful delivery or by closing its [Handle] — it
// never fires again and is never re-armed. [Handle.Reset] replaces the timer
// with a fresh generation sharing the same callback and duration.
type Timer struct {
	cb       Callback
	duration time.Duration
	origin   ContextID

	startedAt atomic.Pointer[time.Time]
	valid     atomic.Bool
}

// NewTimer creates a new valid, unarmed [Timer] owned by the given context.
// The duration must be positive and the callback non-nil.
func NewTimer(duration time.Duration, cb Callback, origin ContextID) (*Timer, error) {
	if duration <= 0 {
		return nil, errtrace.Wrap(NewInvalidArgumentError("non-positive duration %s", duration))
	}
	if cb == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil callback"))
	}

	tm := &Timer{
		cb:       cb,
		duration: duration,
		origin:   origin,
	}
	tm.valid.Store(true)
	return tm, nil
}

// Duration returns the timeout length the timer was created with.
func (tm *Timer) Duration() time.Duration {
	if tm == nil {
		return 0
	}
	return tm.duration
}

// Context returns the identity of the execution context that owns the timer.
// Delivery is routed to this context.
func (tm *Timer) Context() ContextID {
	if tm == nil {
		return 0
	}
	return tm.origin
}

// StartedAt returns the timestamp the timer was armed at, or the zero time
// if it was never armed.
func (tm *Timer) StartedAt() time.Time {
	if tm == nil {
		return time.Time{}
	}
	if at := tm.startedAt.Load(); at != nil {
		return *at
	}
	return time.Time{}
}

// Valid reports whether the timer may still fire. Once false it stays false.
func (tm *Timer) Valid() bool {
	if tm == nil {
		return false
	}
	return tm.valid.Load()
}

// LogValue implements [slog.LogValuer].
func (tm *Timer) LogValue() slog.Value {
	if tm == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.Int64("context", int64(tm.origin)),
		slog.Duration("duration", tm.duration),
		slog.Time("started_at", tm.StartedAt()),
		slog.Bool("valid", tm.Valid()),
	)
}

// arm records the timer's start time.
func (tm *Timer) arm(at time.Time) {
	tm.startedAt.Store(&at)
}

// invalidate clears the validity flag. The timer must never fire afterwards,
// even if a scan already matched it: deliveries re-check validity right
// before invoking the callback.
func (tm *Timer) invalidate() {
	tm.valid.Store(false)
}
