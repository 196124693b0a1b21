// Package tardy detects when a unit of work exceeds a caller-specified
// duration and delivers the timeout callback on the same execution context
// that runs the slow work, at that context's next safe execution step.
//
// Unlike a plain watchdog reporting from a foreign thread, the callback runs
// inline with the target context's own call stack: it can inspect live state
// or unwind the slow code by returning a fault. Delivery is the full extent
// of intervention — what the callback does is entirely caller-defined.
//
// The engine is runtime-agnostic: it consumes the embedding runtime through
// the [Host] interface (context identity, deferred calls for the privileged
// context, per-context instrumentation hooks). A [Scheduler] owns the live
// timer registry and a single lazily-started polling goroutine; callers arm
// timeouts through [Handle] or the scoped [Scheduler.Watch].
//
// Expiry detection is approximate by design: a timer with duration D is
// detected no earlier than D and no later than D plus the polling
// resolution (see [DefaultResolution]).
package tardy
