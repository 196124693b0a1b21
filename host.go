package tardy

import "time"

// ContextID identifies an execution context of the host runtime: a logical
// thread of control with its own call stack and its own instrumentation
// hook slot.
type ContextID int64

// Callback is a user timeout callback. It is invoked on the context that
// armed the timer, at the context's next safe execution step after expiry,
// with the timestamp recorded when the timer was armed. A non-nil error is
// treated as a fault and propagates into the target context's control flow
// exactly as if it had been raised at the point of interception.
type Callback func(startedAt time.Time) error

// HookFunc is an instrumentation hook invoked by the host runtime on every
// low-level execution step of a context. The data argument is the auxiliary
// value the hook was installed with.
type HookFunc func(data any, id ContextID) error

// Hook is an instrumentation hook slot value: a step function plus the
// auxiliary data it was installed with. The zero Hook means "no hook
// installed".
type Hook struct {
	Fn   HookFunc
	Data any
}

// PendingCall is a deferred call submitted to the host's privileged context.
// A non-nil error propagates in the privileged context as a fault at the
// safe point where the call ran.
type PendingCall func() error

// Host is the capability surface the embedding runtime must provide.
// The engine is runtime-agnostic: any environment that can identify its
// execution contexts, queue a deferred call for its privileged context and
// expose per-context instrumentation hooks can bind this interface.
// See package tardytest for an in-memory implementation.
//
//go:generate go tool mockgen -source=host.go -destination=internal/testutil/hostmock/host.go -package=hostmock
type Host interface {
	// CurrentContext returns the identity of the execution context the
	// calling code runs on.
	CurrentContext() ContextID
	// PrivilegedContext returns the identity of the single distinguished
	// context that can only be interrupted via SubmitPendingCall, never via
	// a direct hook takeover.
	PrivilegedContext() ContextID
	// SubmitPendingCall schedules fn to run on the privileged context at its
	// next safe point. It may fail transiently, e.g. when the host's pending
	// queue is full; the caller is expected to retry later.
	SubmitPendingCall(fn PendingCall) error
	// Hook returns the instrumentation hook currently installed for the
	// context, so it can be captured for later restoration.
	Hook(id ContextID) (Hook, error)
	// SetHook installs the instrumentation hook for the context, replacing
	// the current one. The zero Hook uninstalls.
	SetHook(id ContextID, h Hook) error
	// LockHooks acquires the host-wide mutual exclusion required to safely
	// mutate another context's instrumentation state. The host must run
	// every hook invocation under the same exclusion: while the lock is
	// held no hook executes, and while a hook executes the lock cannot be
	// acquired. Without that guarantee a takeover could capture a hook
	// that a concurrently running hook is about to reinstall, and one of
	// the two would be silently lost. The returned unlock must be called
	// exactly once.
	LockHooks() (unlock func(), err error)
}
