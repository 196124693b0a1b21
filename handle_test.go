package tardy_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ghettovoice/tardy"
	"github.com/ghettovoice/tardy/tardytest"
)

func TestHandle_StartTwice(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, tardytest.NewHost())
	h, err := sched.NewHandle(time.Minute, func(time.Time) error { return nil })
	if err != nil {
		t.Fatalf("sched.NewHandle() error = %v, want nil", err)
	}
	defer h.Close() //nolint:errcheck

	if err := h.Start(); err != nil {
		t.Fatalf("h.Start() error = %v, want nil", err)
	}
	if err := h.Start(); !errors.Is(err, tardy.ErrHandleStarted) {
		t.Fatalf("second h.Start() error = %v, want %v", err, tardy.ErrHandleStarted)
	}
}

func TestHandle_StartAfterStop(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, tardytest.NewHost())
	h, err := sched.NewHandle(time.Minute, func(time.Time) error { return nil })
	if err != nil {
		t.Fatalf("sched.NewHandle() error = %v, want nil", err)
	}
	defer h.Close() //nolint:errcheck

	if err := h.Start(); err != nil {
		t.Fatalf("h.Start() error = %v, want nil", err)
	}
	h.Stop()
	// a stopped generation is dead, only Reset re-arms
	if err := h.Start(); !errors.Is(err, tardy.ErrHandleStopped) {
		t.Fatalf("h.Start() after Stop() error = %v, want %v", err, tardy.ErrHandleStopped)
	}
}

func TestHandle_StopIdempotent(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, tardytest.NewHost())
	h, err := sched.NewHandle(time.Minute, func(time.Time) error { return nil })
	if err != nil {
		t.Fatalf("sched.NewHandle() error = %v, want nil", err)
	}
	defer h.Close() //nolint:errcheck

	// stopping an unstarted handle is a no-op
	h.Stop()
	if err := h.Start(); !errors.Is(err, tardy.ErrHandleStopped) {
		t.Fatalf("h.Start() error = %v, want %v", err, tardy.ErrHandleStopped)
	}
	h.Stop()
	h.Stop()
}

func TestHandle_Reset(t *testing.T) {
	t.Parallel()

	host := tardytest.NewHost()
	sched := newTestScheduler(t, host)

	var fires atomic.Uint64
	h, err := sched.NewHandle(10*time.Millisecond, func(time.Time) error {
		fires.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("sched.NewHandle() error = %v, want nil", err)
	}
	defer h.Close() //nolint:errcheck

	if err := h.Start(); err != nil {
		t.Fatalf("h.Start() error = %v, want nil", err)
	}
	time.Sleep(5 * time.Millisecond)

	// reset swaps in a fresh generation, the old one must never fire
	if err := h.Reset(); err != nil {
		t.Fatalf("h.Reset() error = %v, want nil", err)
	}

	deadline := time.Now().Add(time.Second)
	for fires.Load() == 0 && time.Now().Before(deadline) {
		if err := host.Privileged().Step(); err != nil {
			t.Fatalf("Step() error = %v, want nil", err)
		}
		time.Sleep(100 * time.Microsecond)
	}
	if got := fires.Load(); got != 1 {
		t.Fatalf("fires = %d, want 1", got)
	}

	// past both windows, still exactly one delivery
	if err := host.Privileged().StepFor(30 * time.Millisecond); err != nil {
		t.Fatalf("StepFor() error = %v, want nil", err)
	}
	if got := fires.Load(); got != 1 {
		t.Errorf("fires = %d, want 1", got)
	}
}

func TestHandle_ResetAsInitialArm(t *testing.T) {
	t.Parallel()

	host := tardytest.NewHost()
	sched := newTestScheduler(t, host)

	var fired atomic.Bool
	h, err := sched.NewHandle(5*time.Millisecond, func(time.Time) error {
		fired.Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("sched.NewHandle() error = %v, want nil", err)
	}
	defer h.Close() //nolint:errcheck

	// Reset on a never-started handle arms it
	if err := h.Reset(); err != nil {
		t.Fatalf("h.Reset() error = %v, want nil", err)
	}
	deadline := time.Now().Add(time.Second)
	for !fired.Load() && time.Now().Before(deadline) {
		if err := host.Privileged().Step(); err != nil {
			t.Fatalf("Step() error = %v, want nil", err)
		}
		time.Sleep(100 * time.Microsecond)
	}
	if !fired.Load() {
		t.Fatal("callback never fired after Reset()")
	}
}

func TestHandle_Close(t *testing.T) {
	t.Parallel()

	host := tardytest.NewHost()
	sched := newTestScheduler(t, host)

	var fired atomic.Bool
	h, err := sched.NewHandle(10*time.Millisecond, func(time.Time) error {
		fired.Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("sched.NewHandle() error = %v, want nil", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("h.Start() error = %v, want nil", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("first h.Close() error = %v, want nil", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second h.Close() error = %v, want nil", err)
	}

	if err := h.Start(); !errors.Is(err, tardy.ErrHandleClosed) {
		t.Errorf("h.Start() after Close() error = %v, want %v", err, tardy.ErrHandleClosed)
	}
	if err := h.Reset(); !errors.Is(err, tardy.ErrHandleClosed) {
		t.Errorf("h.Reset() after Close() error = %v, want %v", err, tardy.ErrHandleClosed)
	}

	if err := host.Privileged().StepFor(30 * time.Millisecond); err != nil {
		t.Fatalf("StepFor() error = %v, want nil", err)
	}
	if fired.Load() {
		t.Error("callback fired after Close()")
	}
}

func TestNewHandle_InvalidArgs(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, tardytest.NewHost())

	if _, err := sched.NewHandle(0, func(time.Time) error { return nil }); !errors.Is(err, tardy.ErrInvalidArgument) {
		t.Errorf("sched.NewHandle(0, cb) error = %v, want %v", err, tardy.ErrInvalidArgument)
	}
	if _, err := sched.NewHandle(time.Second, nil); !errors.Is(err, tardy.ErrInvalidArgument) {
		t.Errorf("sched.NewHandle(d, nil) error = %v, want %v", err, tardy.ErrInvalidArgument)
	}
}
