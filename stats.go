package tardy

import (
	"sync/atomic"
	"time"
)

// StatsReport is a point-in-time snapshot of scheduler statistics.
type StatsReport struct {
	// Time is the snapshot timestamp.
	Time time.Time `json:"time"`
	// State is the scheduler lifecycle state at snapshot time.
	State SchedulerState `json:"state"`
	// TimersLive is the number of timers currently in the registry or staged
	// for addition.
	TimersLive int `json:"timers_live"`
	// TimersArmed is the total number of timers registered.
	TimersArmed uint64 `json:"timers_armed"`
	// TimersStopped is the total number of timers cancelled before firing.
	TimersStopped uint64 `json:"timers_stopped"`
	// DeferredDeliveries is the number of callbacks delivered through the
	// privileged context's pending-call facility.
	DeferredDeliveries uint64 `json:"deferred_deliveries"`
	// HookedDeliveries is the number of callbacks delivered through an
	// instrumentation-hook takeover.
	HookedDeliveries uint64 `json:"hooked_deliveries"`
	// SuppressedDeliveries is the number of delivery attempts that found the
	// timer invalidated, whether at dispatch time or at the final validity
	// re-check on the target context.
	SuppressedDeliveries uint64 `json:"suppressed_deliveries"`
	// SubmitRetries is the number of pending-call submissions rejected by the
	// host and left for a later scan pass.
	SubmitRetries uint64 `json:"submit_retries"`
	// TakeoverFailures is the number of hook takeovers abandoned because the
	// hook lock or hook installation failed.
	TakeoverFailures uint64 `json:"takeover_failures"`
}

// StatsRecorder records scheduler and delivery counters.
type StatsRecorder struct {
	armed              atomic.Uint64
	stopped            atomic.Uint64
	deferredDeliveries atomic.Uint64
	hookedDeliveries   atomic.Uint64
	suppressed         atomic.Uint64
	submitRetries      atomic.Uint64
	takeoverFailures   atomic.Uint64
}

// Stats returns a snapshot of the scheduler's counters.
func (s *Scheduler) Stats() StatsReport {
	s.mu.Lock()
	live := len(s.registry) + s.pendingAdd.Len()
	s.mu.Unlock()

	return StatsReport{
		Time:                 time.Now(),
		State:                s.State(),
		TimersLive:           live,
		TimersArmed:          s.stats.armed.Load(),
		TimersStopped:        s.stats.stopped.Load(),
		DeferredDeliveries:   s.stats.deferredDeliveries.Load(),
		HookedDeliveries:     s.stats.hookedDeliveries.Load(),
		SuppressedDeliveries: s.stats.suppressed.Load(),
		SubmitRetries:        s.stats.submitRetries.Load(),
		TakeoverFailures:     s.stats.takeoverFailures.Load(),
	}
}
