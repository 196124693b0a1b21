package tardy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/tardy/internal/types"
	"github.com/ghettovoice/tardy/log"
)

// SchedulerState represents the lifecycle state of a [Scheduler].
type SchedulerState string

const (
	// SchedulerStateIdle indicates the registry is empty and the polling
	// goroutine, if started, is parked.
	SchedulerStateIdle SchedulerState = "idle"
	// SchedulerStateRunning indicates the polling goroutine is actively
	// scanning live timers.
	SchedulerStateRunning SchedulerState = "running"
	// SchedulerStateStopped indicates the scheduler was closed and the
	// polling goroutine joined.
	SchedulerStateStopped SchedulerState = "stopped"
)

const (
	schedEvtArm   = "arm"
	schedEvtDrain = "drain"
	schedEvtClose = "close"
)

const (
	// DefaultResolution is the default polling resolution. Expiry detection is
	// guaranteed no later than duration + resolution, never exactly at
	// duration: the scan is an approximation, not exact-deadline delivery.
	DefaultResolution = 5 * time.Millisecond

	// sleepGranularity is the coarse sleep step the poll loop takes when the
	// minimum remaining time across live timers exceeds the resolution.
	sleepGranularity = time.Millisecond
)

// SchedulerOptions are the options for a [Scheduler].
type SchedulerOptions struct {
	// Resolution is the polling resolution bounding worst-case detection
	// latency. If 0, [DefaultResolution] is used.
	Resolution time.Duration
	// Logger is the logger.
	// If nil, the [log.Default] is used.
	Logger *slog.Logger
}

func (o *SchedulerOptions) resolution() time.Duration {
	if o == nil || o.Resolution <= 0 {
		return DefaultResolution
	}
	return o.Resolution
}

func (o *SchedulerOptions) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// Scheduler owns the live timer registry and the single background polling
// goroutine that detects expired timers and hands them to delivery.
//
// The goroutine is started lazily on the first [Scheduler.Start], parks when
// the registry drains and wakes again when a new timer arrives. All
// caller-facing operations may be invoked concurrently from any context.
type Scheduler struct {
	host       Host
	resolution time.Duration
	log        *slog.Logger

	disp  *dispatcher
	stats *StatsRecorder

	// mu guards the registry, the staging queues, the scanning flag,
	// loopAlive and all FSM fires. It is held only for O(registry) scan
	// bookkeeping or O(1) staging, never across a delivery.
	mu         sync.Mutex
	fsm        *stateless.StateMachine
	registry   map[*Timer]struct{}
	pendingAdd types.Deque[*Timer]
	pendingDel types.Deque[*Timer]
	scanning   bool
	loopAlive  bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}

	onDelivery types.CallbackManager[DeliveryHandler]
}

// NewScheduler creates a new [Scheduler] bound to the host runtime.
// Options are optional, if nil, default values are used (see [SchedulerOptions]).
func NewScheduler(host Host, opts *SchedulerOptions) (*Scheduler, error) {
	if host == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil host"))
	}

	s := &Scheduler{
		host:       host,
		resolution: opts.resolution(),
		log:        opts.log(),
		stats:      new(StatsRecorder),
		registry:   make(map[*Timer]struct{}),
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	s.disp = &dispatcher{
		host:      host,
		stats:     s.stats,
		observers: &s.onDelivery,
		log:       s.log,
	}
	s.initFSM(SchedulerStateIdle)
	return s, nil
}

func (s *Scheduler) initFSM(start SchedulerState) {
	s.fsm = stateless.NewStateMachine(start)

	s.fsm.Configure(SchedulerStateIdle).
		Permit(schedEvtArm, SchedulerStateRunning).
		Permit(schedEvtClose, SchedulerStateStopped).
		Ignore(schedEvtDrain)

	s.fsm.Configure(SchedulerStateRunning).
		OnEntry(s.actRunning).
		Ignore(schedEvtArm).
		Permit(schedEvtDrain, SchedulerStateIdle).
		Permit(schedEvtClose, SchedulerStateStopped)

	s.fsm.Configure(SchedulerStateStopped).
		OnEntry(s.actStopped).
		Ignore(schedEvtArm).
		Ignore(schedEvtDrain).
		Ignore(schedEvtClose)
}

func (s *Scheduler) actRunning(ctx context.Context, _ ...any) error {
	s.log.LogAttrs(ctx, slog.LevelDebug, "scheduler running")
	return nil
}

func (s *Scheduler) actStopped(ctx context.Context, _ ...any) error {
	s.log.LogAttrs(ctx, slog.LevelDebug, "scheduler stopped")
	return nil
}

// State returns the current scheduler lifecycle state.
func (s *Scheduler) State() SchedulerState {
	return s.fsm.MustState().(SchedulerState) //nolint:forcetypeassert
}

// Start registers the timer with the scheduler and wakes the polling
// goroutine. If the timer was never armed, it is armed now. While a scan is
// in flight the timer is staged and merged at the end of the pass, so
// producers never block on the scan.
func (s *Scheduler) Start(tm *Timer) error {
	if tm == nil {
		return errtrace.Wrap(NewInvalidArgumentError("nil timer"))
	}
	if !tm.Valid() {
		return errtrace.Wrap(NewInvalidArgumentError("invalidated timer"))
	}
	if tm.StartedAt().IsZero() {
		tm.arm(time.Now())
	}

	s.mu.Lock()
	if s.State() == SchedulerStateStopped {
		s.mu.Unlock()
		return errtrace.Wrap(ErrSchedulerClosed)
	}
	if s.State() == SchedulerStateRunning {
		s.pendingAdd.Append(tm)
	} else {
		s.registry[tm] = struct{}{}
		s.fireLocked(schedEvtArm)
	}
	if !s.loopAlive {
		s.loopAlive = true
		go s.run()
	}
	s.mu.Unlock()

	s.stats.armed.Add(1)
	s.signalWake()
	return nil
}

// Stop invalidates the timer so it can never fire — even if a delivery is
// already in flight, the dispatcher re-checks validity right before the
// callback — and removes it from the registry, staging the removal when a
// scan is in flight. Stop is idempotent.
func (s *Scheduler) Stop(tm *Timer) {
	if tm == nil {
		return
	}
	if tm.Valid() {
		tm.invalidate()
		s.stats.stopped.Add(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registry[tm]; !ok {
		// either never registered or still staged in pending-additions;
		// staged additions of invalidated timers are dropped at merge time
		return
	}
	if s.scanning {
		s.pendingDel.Append(tm)
		return
	}
	delete(s.registry, tm)
}

// Close shuts the scheduler down: no further timers are accepted and the
// polling goroutine, if it ever started, is joined. Close is idempotent and
// safe to call even if no timer was ever started.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.State() == SchedulerStateStopped {
		s.mu.Unlock()
		return nil
	}
	s.fireLocked(schedEvtClose)
	alive := s.loopAlive
	s.mu.Unlock()

	close(s.quit)
	if alive {
		<-s.done
	}
	s.log.LogAttrs(context.Background(), slog.LevelDebug, "scheduler closed",
		slog.Any("stats", log.FmtValue(s.Stats(), false)))
	return nil
}

// OnDelivery registers fn to be called on every delivery, right before the
// user callback, on the delivering context. The returned remove function
// unregisters it.
func (s *Scheduler) OnDelivery(fn DeliveryHandler) (remove func()) {
	return s.onDelivery.Add(fn)
}

func (s *Scheduler) fireLocked(evt string) {
	if err := s.fsm.Fire(evt); err != nil {
		panic(fmt.Errorf("fire %q in state %q: %w", evt, s.State(), err))
	}
}

func (s *Scheduler) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) quitting() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

// run is the body of the single background polling goroutine.
func (s *Scheduler) run() {
	defer close(s.done)
	s.log.LogAttrs(context.Background(), slog.LevelDebug, "polling goroutine started")

	for {
		for s.State() == SchedulerStateRunning {
			if s.quitting() {
				return
			}
			minLeft, scanCost := s.scanPass()
			// poll on the fixed resolution: sleep one coarse step only when
			// every live timer still has more than a resolution left,
			// otherwise rescan immediately
			if minLeft-scanCost > s.resolution {
				if !s.sleep(sleepGranularity) {
					return
				}
			}
		}
		if s.State() == SchedulerStateStopped {
			return
		}
		select {
		case <-s.wake:
		case <-s.quit:
			return
		}
	}
}

// scanPass performs one full scan over the live registry: expired timers are
// handed to the dispatcher outside the registry lock, then staged removals
// and additions are merged (removals first). It returns the minimum
// remaining time across live timers and the cost of the pass.
func (s *Scheduler) scanPass() (minLeft, scanCost time.Duration) {
	start := time.Now()

	s.mu.Lock()
	s.scanning = true
	live := make([]*Timer, 0, len(s.registry))
	for tm := range s.registry {
		live = append(live, tm)
	}
	s.mu.Unlock()

	minLeft = time.Duration(math.MaxInt64)
	var fired, dead []*Timer
	for _, tm := range live {
		if s.quitting() {
			break
		}
		if !tm.Valid() {
			dead = append(dead, tm)
			continue
		}
		elapsed := time.Since(tm.StartedAt())
		if elapsed > tm.Duration() {
			if err := s.disp.deliver(tm); err != nil {
				if isRetryableDelivery(err) {
					// an expired timer is never silently dropped: keep it in
					// the registry, detection degrades to a later pass
					s.log.LogAttrs(context.Background(), slog.LevelWarn,
						"delivery submission rejected, will retry",
						slog.Any("timer", tm), slog.Any("error", err))
					continue
				}
				s.log.LogAttrs(context.Background(), slog.LevelError,
					"delivery failed",
					slog.Any("timer", tm), slog.Any("error", err))
			}
			fired = append(fired, tm)
			continue
		}
		if left := tm.Duration() - elapsed; left < minLeft {
			minLeft = left
		}
	}

	s.mu.Lock()
	for _, tm := range fired {
		delete(s.registry, tm)
	}
	for _, tm := range dead {
		delete(s.registry, tm)
	}
	// removals first, then additions: a timer generation cancelled and
	// replaced within the same window must not be spuriously dropped
	for _, tm := range s.pendingDel.Drain() {
		delete(s.registry, tm)
	}
	for _, tm := range s.pendingAdd.Drain() {
		if !tm.Valid() {
			continue
		}
		s.registry[tm] = struct{}{}
		// remaining time of merged timers is unknown to this pass
		minLeft = 0
	}
	if len(s.registry) == 0 && s.State() == SchedulerStateRunning {
		s.fireLocked(schedEvtDrain)
	}
	s.scanning = false
	s.mu.Unlock()

	return minLeft, time.Since(start)
}

// sleep blocks for d, a wake signal or teardown.
// It reports false when the scheduler is quitting.
func (s *Scheduler) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.wake:
		return true
	case <-s.quit:
		return false
	}
}
