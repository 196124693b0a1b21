// Package tardytest provides an in-memory [tardy.Host] implementation with
// explicitly steppable execution contexts. It is used by this module's own
// tests and lets embedders exercise timeout delivery without binding a real
// language runtime.
package tardytest

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/tardy"
	"github.com/ghettovoice/tardy/internal/types"
)

// Host errors.
const (
	// ErrUnknownContext is returned for hook operations on a context the host
	// never created.
	ErrUnknownContext tardy.Error = "unknown context"
	// ErrPendingQueueFull is returned by SubmitPendingCall while rejection is
	// forced with [Host.RejectPendingCalls].
	ErrPendingQueueFull tardy.Error = "pending call queue full"
)

// Host is an in-memory host runtime. Contexts are created with
// [Host.NewContext], bound to goroutines with [Context.Attach] and advanced
// with [Context.Step]: every step invokes the installed instrumentation hook,
// and a step of the privileged context first drains the pending-call queue —
// its safe point.
type Host struct {
	mu            sync.Mutex
	hooks         map[tardy.ContextID]tardy.Hook
	pending       types.Deque[tardy.PendingCall]
	rejectPending int
	hookLockErr   error
	goros         map[uint64]tardy.ContextID
	nextID        tardy.ContextID

	// lockMu is the host-wide hook lock handed out by LockHooks. It also
	// covers every hook invocation (see Context.Step), so hook mutation and
	// hook execution are mutually exclusive.
	lockMu sync.Mutex

	priv *Context
}

// NewHost creates a new [Host] with its privileged context already present.
func NewHost() *Host {
	h := &Host{
		hooks:  make(map[tardy.ContextID]tardy.Hook),
		goros:  make(map[uint64]tardy.ContextID),
		nextID: 1,
	}
	h.priv = &Context{host: h, id: 1, privileged: true}
	return h
}

// Privileged returns the host's privileged context.
func (h *Host) Privileged() *Context { return h.priv }

// NewContext creates a new ordinary execution context.
func (h *Host) NewContext() *Context {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.mu.Unlock()
	return &Context{host: h, id: id}
}

// RejectPendingCalls forces the next n SubmitPendingCall calls to fail with
// [ErrPendingQueueFull].
func (h *Host) RejectPendingCalls(n int) {
	h.mu.Lock()
	h.rejectPending = n
	h.mu.Unlock()
}

// SetHookLockError makes LockHooks fail with err until cleared with nil.
func (h *Host) SetHookLockError(err error) {
	h.mu.Lock()
	h.hookLockErr = err
	h.mu.Unlock()
}

// PendingLen returns the number of queued pending calls.
func (h *Host) PendingLen() int {
	return h.pending.Len()
}

// CurrentContext implements [tardy.Host]. Goroutines not bound to any
// context with [Context.Attach] count as the privileged context, mirroring
// a runtime's main thread.
func (h *Host) CurrentContext() tardy.ContextID {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id, ok := h.goros[goid()]; ok {
		return id
	}
	return h.priv.id
}

// PrivilegedContext implements [tardy.Host].
func (h *Host) PrivilegedContext() tardy.ContextID { return h.priv.id }

// SubmitPendingCall implements [tardy.Host].
func (h *Host) SubmitPendingCall(fn tardy.PendingCall) error {
	if fn == nil {
		return errtrace.Wrap(tardy.NewInvalidArgumentError("nil pending call"))
	}

	h.mu.Lock()
	if h.rejectPending > 0 {
		h.rejectPending--
		h.mu.Unlock()
		return errtrace.Wrap(ErrPendingQueueFull)
	}
	h.mu.Unlock()

	h.pending.Append(fn)
	return nil
}

// Hook implements [tardy.Host].
func (h *Host) Hook(id tardy.ContextID) (tardy.Hook, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.knownLocked(id) {
		return tardy.Hook{}, errtrace.Wrap(ErrUnknownContext)
	}
	return h.hooks[id], nil
}

// SetHook implements [tardy.Host].
func (h *Host) SetHook(id tardy.ContextID, hk tardy.Hook) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.knownLocked(id) {
		return errtrace.Wrap(ErrUnknownContext)
	}
	if hk.Fn == nil {
		delete(h.hooks, id)
		return nil
	}
	h.hooks[id] = hk
	return nil
}

// LockHooks implements [tardy.Host].
func (h *Host) LockHooks() (func(), error) {
	h.mu.Lock()
	err := h.hookLockErr
	h.mu.Unlock()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	h.lockMu.Lock()
	var once sync.Once
	return func() { once.Do(h.lockMu.Unlock) }, nil
}

func (h *Host) knownLocked(id tardy.ContextID) bool {
	return id >= 1 && id <= h.nextID
}

func (h *Host) popPending() tardy.PendingCall {
	fn, ok := h.pending.PopFirst()
	if !ok {
		return nil
	}
	return fn
}

func (h *Host) hook(id tardy.ContextID) tardy.Hook {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hooks[id]
}

// Context is one steppable execution context of a [Host].
type Context struct {
	host       *Host
	id         tardy.ContextID
	privileged bool
}

// ID returns the context identity.
func (c *Context) ID() tardy.ContextID { return c.id }

// Attach binds the calling goroutine to the context, so
// [Host.CurrentContext] resolves to it. Pair with [Context.Detach].
func (c *Context) Attach() {
	c.host.mu.Lock()
	c.host.goros[goid()] = c.id
	c.host.mu.Unlock()
}

// Detach unbinds the calling goroutine from the context.
func (c *Context) Detach() {
	c.host.mu.Lock()
	delete(c.host.goros, goid())
	c.host.mu.Unlock()
}

// Run executes fn with the calling goroutine bound to the context.
func (c *Context) Run(fn func() error) error {
	c.Attach()
	defer c.Detach()
	return errtrace.Wrap(fn())
}

// Step advances the context by one instrumented execution step: the
// privileged context first drains its pending-call queue, then the installed
// hook, if any, is invoked. An error returned by a pending call or a hook is
// the context's fault and propagates to the caller.
//
// The hook read and invocation run under the host-wide hook lock, as the
// [tardy.Host] contract requires: no takeover can capture or install while a
// hook is mid-flight, and a hook's own restore cannot be interleaved with a
// concurrent capture.
func (c *Context) Step() error {
	if c.privileged {
		for {
			fn := c.host.popPending()
			if fn == nil {
				break
			}
			if err := fn(); err != nil {
				return errtrace.Wrap(err)
			}
		}
	}

	c.host.lockMu.Lock()
	defer c.host.lockMu.Unlock()
	if hk := c.host.hook(c.id); hk.Fn != nil {
		return errtrace.Wrap(hk.Fn(hk.Data, c.id))
	}
	return nil
}

// StepFor keeps stepping the context until d elapses or a step faults,
// simulating a busy run of instrumented work.
func (c *Context) StepFor(d time.Duration) error {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if err := c.Step(); err != nil {
			return errtrace.Wrap(err)
		}
		time.Sleep(50 * time.Microsecond)
	}
	return nil
}

func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(s, ' '); i > 0 {
		if id, err := strconv.ParseUint(string(s[:i]), 10, 64); err == nil {
			return id
		}
	}
	return 0
}
