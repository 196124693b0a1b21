package tardy

import "github.com/ghettovoice/tardy/internal/errorutil"

// Common errors.
const (
	ErrInvalidArgument = errorutil.ErrInvalidArgument
)

// Scheduler errors.
const (
	// ErrSchedulerClosed is returned when attempting to use a closed scheduler.
	ErrSchedulerClosed Error = "scheduler closed"
	// ErrPendingCallRejected is returned by a delivery when the host rejected
	// the deferred call submission. The scheduler keeps the timer and retries
	// on a later pass.
	ErrPendingCallRejected Error = "pending call rejected"
	// ErrHookLockUnavailable is returned by a delivery when the host-wide hook
	// lock could not be acquired. The delivery attempt is abandoned.
	ErrHookLockUnavailable Error = "hook lock unavailable"
)

// Handle errors.
const (
	ErrHandleClosed  Error = "handle closed"
	ErrHandleStarted Error = "handle already started"
	// ErrHandleStopped is returned by Start after Stop: a stopped generation
	// is never re-armed, use Reset instead.
	ErrHandleStopped Error = "handle stopped"
)

// Error represents a tardy error.
// See [errorutil.Error].
type Error = errorutil.Error

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}
