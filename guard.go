package tardy

import (
	"time"

	"braces.dev/errtrace"
)

// Watch runs fn under a timeout watch: a handle is armed on the calling
// context before fn starts and stopped when fn returns, so cb is delivered
// into fn's own call stack if fn overruns the duration. The error returned
// by fn is passed through.
//
// Watch covers the common scoped case; callers that need to re-arm inside
// the scope use [Scheduler.NewHandle] and [Handle.Reset] directly.
func (s *Scheduler) Watch(duration time.Duration, cb Callback, fn func() error) error {
	h, err := s.NewHandle(duration, cb)
	if err != nil {
		return errtrace.Wrap(err)
	}
	defer h.Close() //nolint:errcheck

	if err := h.Start(); err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(fn())
}
