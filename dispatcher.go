package tardy

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/tardy/internal/errorutil"
	"github.com/ghettovoice/tardy/internal/types"
)

// DeliveryPath identifies how a timeout callback reached its context.
type DeliveryPath string

const (
	// DeliveryPathDeferred is the privileged-context path: the callback was
	// queued through the host's pending-call facility.
	DeliveryPathDeferred DeliveryPath = "deferred"
	// DeliveryPathHooked is the ordinary-context path: the callback was
	// injected through a one-shot instrumentation-hook takeover.
	DeliveryPathHooked DeliveryPath = "hooked"
)

// Delivery describes one callback delivery. It is passed to handlers
// registered with [Scheduler.OnDelivery] right before the user callback
// runs, on the delivering context.
type Delivery struct {
	Timer     *Timer
	Context   ContextID
	StartedAt time.Time
	Elapsed   time.Duration
	Path      DeliveryPath
}

// DeliveryHandler observes deliveries. See [Scheduler.OnDelivery].
type DeliveryHandler = func(d Delivery)

// dispatcher routes an expired timer's callback onto its originating
// context: a deferred-call handoff for the privileged context, a one-shot
// instrumentation-hook takeover for any other context.
type dispatcher struct {
	host      Host
	stats     *StatsRecorder
	observers *types.CallbackManager[DeliveryHandler]
	log       *slog.Logger
}

// deliver arranges the callback delivery for an expired timer. It never
// invokes the callback itself: both paths run it later, on the target
// context. A returned error wrapping [ErrPendingCallRejected] means the
// submission must be retried on a later scan pass; any other error means the
// attempt was abandoned.
func (d *dispatcher) deliver(tm *Timer) error {
	if !tm.Valid() {
		d.stats.suppressed.Add(1)
		return nil
	}
	if tm.Context() == d.host.PrivilegedContext() {
		return errtrace.Wrap(d.deliverDeferred(tm))
	}
	return errtrace.Wrap(d.deliverHooked(tm))
}

func isRetryableDelivery(err error) bool {
	return errors.Is(err, ErrPendingCallRejected)
}

func (d *dispatcher) deliverDeferred(tm *Timer) error {
	err := d.host.SubmitPendingCall(func() error {
		return d.invoke(tm, DeliveryPathDeferred)
	})
	if err != nil {
		d.stats.submitRetries.Add(1)
		return errtrace.Wrap(errorutil.NewWrapperError(ErrPendingCallRejected, err))
	}
	return nil
}

func (d *dispatcher) deliverHooked(tm *Timer) error {
	unlock, err := d.host.LockHooks()
	if err != nil {
		d.stats.takeoverFailures.Add(1)
		return errtrace.Wrap(errorutil.NewWrapperError(ErrHookLockUnavailable, err))
	}
	defer unlock()

	id := tm.Context()
	prev, err := d.host.Hook(id)
	if err != nil {
		d.stats.takeoverFailures.Add(1)
		return errtrace.Wrap(err)
	}
	c := &capsule{disp: d, tm: tm, prev: prev}
	if err := d.host.SetHook(id, Hook{Fn: capsuleStep, Data: c}); err != nil {
		d.stats.takeoverFailures.Add(1)
		return errtrace.Wrap(err)
	}
	return nil
}

// invoke runs on the target context. It re-checks validity immediately
// before the callback: a Stop that completed before this point always wins;
// a Stop racing this check may or may not suppress the call. That race is
// accepted and documented, not a bug: cancellation is cooperative, there is
// no preemptive termination of an in-flight delivery.
//
// The callback's error is returned untouched so the fault propagates in the
// target context exactly as if it had been raised at the interception point.
func (d *dispatcher) invoke(tm *Timer, path DeliveryPath) error {
	if !tm.valid.CompareAndSwap(true, false) {
		d.stats.suppressed.Add(1)
		return nil
	}

	startedAt := tm.StartedAt()
	dl := Delivery{
		Timer:     tm,
		Context:   tm.Context(),
		StartedAt: startedAt,
		Elapsed:   time.Since(startedAt),
		Path:      path,
	}
	for fn := range d.observers.All() {
		fn(dl)
	}
	switch path {
	case DeliveryPathDeferred:
		d.stats.deferredDeliveries.Add(1)
	case DeliveryPathHooked:
		d.stats.hookedDeliveries.Add(1)
	}
	d.log.LogAttrs(context.Background(), slog.LevelDebug, "timeout delivered",
		slog.Any("timer", tm), slog.String("path", string(path)),
		slog.Duration("elapsed", dl.Elapsed))

	return tm.cb(startedAt)
}

// Capsule takeover states. The restore-before-callback contract is kept as
// an explicit tagged state value so it can be audited and tested, not
// implied by control-flow ordering.
const (
	// capsuleInstalled: hook installed, waiting for the context's next step.
	capsuleInstalled int32 = iota
	// capsuleRestoring: first step taken, reinstalling the captured hook.
	capsuleRestoring
	// capsuleDelivering: captured hook restored, invoking the user callback.
	capsuleDelivering
)

// capsule captures the hook installed on the target context at takeover
// time and keeps the Timer alive by shared ownership until delivery. Each
// installation captures and restores independently, so nested takeovers on
// the same context unwind in proper stack order.
type capsule struct {
	disp  *dispatcher
	tm    *Timer
	prev  Hook
	state atomic.Int32
}

func capsuleStep(data any, id ContextID) error {
	c, ok := data.(*capsule)
	if !ok {
		return nil
	}
	return c.step(id)
}

// step runs on the target context, on its first instrumented step after the
// takeover. The takeover is one-shot: it never intercepts more than this
// single step.
func (c *capsule) step(id ContextID) error {
	if !c.state.CompareAndSwap(capsuleInstalled, capsuleRestoring) {
		// already fired once; fall through to the captured chain
		if c.prev.Fn != nil {
			return c.prev.Fn(c.prev.Data, id)
		}
		return nil
	}

	// reinstall the captured hook before anything else, so the callback
	// observes the context as if the takeover never happened. The host runs
	// hooks under the exclusion LockHooks acquires ([Host.LockHooks]), so no
	// concurrent takeover can slip between its capture and this restore.
	if err := c.disp.host.SetHook(id, c.prev); err != nil {
		c.disp.log.LogAttrs(context.Background(), slog.LevelError,
			"restore captured hook failed",
			slog.Int64("context", int64(id)), slog.Any("error", err))
	}
	c.state.Store(capsuleDelivering)

	return c.disp.invoke(c.tm, DeliveryPathHooked)
}
