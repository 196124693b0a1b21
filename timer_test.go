package tardy_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ghettovoice/tardy"
)

func TestNewTimer(t *testing.T) {
	t.Parallel()

	noop := func(time.Time) error { return nil }

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		tm, err := tardy.NewTimer(10*time.Millisecond, noop, 42)
		if err != nil {
			t.Fatalf("NewTimer() error = %v, want nil", err)
		}
		if got := tm.Duration(); got != 10*time.Millisecond {
			t.Errorf("tm.Duration() = %v, want %v", got, 10*time.Millisecond)
		}
		if got := tm.Context(); got != 42 {
			t.Errorf("tm.Context() = %v, want 42", got)
		}
		if !tm.StartedAt().IsZero() {
			t.Errorf("tm.StartedAt() = %v, want zero before arming", tm.StartedAt())
		}
		if !tm.Valid() {
			t.Error("tm.Valid() = false, want true")
		}
	})

	t.Run("non-positive duration", func(t *testing.T) {
		t.Parallel()

		for _, d := range []time.Duration{0, -time.Second} {
			if _, err := tardy.NewTimer(d, noop, 1); !errors.Is(err, tardy.ErrInvalidArgument) {
				t.Errorf("NewTimer(%v) error = %v, want %v", d, err, tardy.ErrInvalidArgument)
			}
		}
	})

	t.Run("nil callback", func(t *testing.T) {
		t.Parallel()

		if _, err := tardy.NewTimer(time.Second, nil, 1); !errors.Is(err, tardy.ErrInvalidArgument) {
			t.Errorf("NewTimer() error = %v, want %v", err, tardy.ErrInvalidArgument)
		}
	})
}

func TestTimer_NilReceiver(t *testing.T) {
	t.Parallel()

	var tm *tardy.Timer
	if got := tm.Duration(); got != 0 {
		t.Errorf("nil tm.Duration() = %v, want 0", got)
	}
	if got := tm.Context(); got != 0 {
		t.Errorf("nil tm.Context() = %v, want 0", got)
	}
	if !tm.StartedAt().IsZero() {
		t.Errorf("nil tm.StartedAt() = %v, want zero", tm.StartedAt())
	}
	if tm.Valid() {
		t.Error("nil tm.Valid() = true, want false")
	}
}
