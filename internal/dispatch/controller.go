package dispatch

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/modkit/internal/hook"
	"github.com/dshills/modkit/internal/target"
)

// Controller owns the redirection of host functions to their interceptor
// chains. It implements the registry's Applier contract: a non-empty
// chain installs or updates the target's redirection, an empty chain
// removes it and restores the original pass-through.
//
// Dispatch runs on the host's main thread. Chain updates swap an atomic
// snapshot pointer, so a dispatch already walking a chain finishes on
// the snapshot it started with.
type Controller struct {
	mu       sync.Mutex
	logger   *zap.Logger
	table    *target.Table
	installs map[string]*installState
	failures atomic.Uint64
}

// installState is the per-target redirection state.
type installState struct {
	tgt   *target.Target
	chain atomic.Pointer[hook.Chain]

	// depth tracks dispatch nesting. A target called from inside its own
	// chain goes straight to the original implementation instead of
	// walking the chain again.
	depth atomic.Int32
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a dispatch controller over a host function table.
func NewController(table *target.Table, opts ...Option) *Controller {
	c := &Controller{
		logger:   zap.NewNop(),
		table:    table,
		installs: make(map[string]*installState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Apply installs, updates, or removes the redirection for a target to
// match the given chain. It is safe to call with the same chain twice.
func (c *Controller) Apply(targetID string, chain *hook.Chain) error {
	tgt, err := c.table.Lookup(targetID)
	if err != nil {
		return fmt.Errorf("apply chain: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st, installed := c.installs[targetID]

	if chain.IsEmpty() {
		if installed {
			st.tgt.Restore()
			delete(c.installs, targetID)
			c.logger.Debug("redirection removed", zap.String("target", targetID))
		}
		return nil
	}

	if installed {
		st.chain.Store(chain)
		return nil
	}

	st = &installState{tgt: tgt}
	st.chain.Store(chain)
	if err := tgt.Redirect(func(args []any) (any, error) {
		return c.run(st, args)
	}); err != nil {
		// The slot is held by something this controller did not install.
		return fmt.Errorf("%w: %s", ErrInstallConflict, targetID)
	}
	c.installs[targetID] = st
	c.logger.Debug("redirection installed",
		zap.String("target", targetID),
		zap.Int("entries", chain.Len()))
	return nil
}

// Uninstall removes a target's redirection if present. A no-op when the
// target is not installed.
func (c *Controller) Uninstall(targetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.installs[targetID]; ok {
		st.tgt.Restore()
		delete(c.installs, targetID)
	}
}

// Installed reports whether a target currently has a redirection.
func (c *Controller) Installed(targetID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.installs[targetID]
	return ok
}

// Count returns the number of targets with an installed redirection.
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.installs)
}

// Failures returns the number of interceptor panics absorbed so far.
func (c *Controller) Failures() uint64 {
	return c.failures.Load()
}

// RestoreAll removes every installed redirection.
func (c *Controller) RestoreAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, st := range c.installs {
		st.tgt.Restore()
		delete(c.installs, id)
	}
}

// run walks the target's current chain snapshot. Each step receives a
// continuation to the rest of the chain; the innermost continuation is
// the original implementation.
func (c *Controller) run(st *installState, args []any) (any, error) {
	if st.depth.Load() > 0 {
		// Re-entrant call from inside the chain.
		return st.tgt.Original()(args)
	}

	chain := st.chain.Load()
	entries := chain.Entries()
	if len(entries) == 0 {
		return st.tgt.Original()(args)
	}

	st.depth.Add(1)
	defer st.depth.Add(-1)

	var step func(i int) (any, error)
	step = func(i int) (any, error) {
		if i >= len(entries) {
			return st.tgt.Original()(args)
		}
		e := entries[i]
		inv := hook.NewInvocation(st.tgt.ID(), args, func() (any, error) {
			return step(i + 1)
		})
		result, err, panicked := c.invoke(e, inv)
		if panicked {
			// A panicking interceptor is dropped from this dispatch;
			// proceed as if it had called Next.
			return step(i + 1)
		}
		return result, err
	}
	return step(0)
}

// invoke calls one interceptor, absorbing panics.
func (c *Controller) invoke(e *hook.Entry, inv *hook.Invocation) (result any, err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			c.failures.Add(1)
			c.logger.Error("interceptor panicked",
				zap.String("target", inv.Target()),
				zap.String("entry", e.Key()),
				zap.Any("panic", r))
		}
	}()
	result, err = e.Fn(inv)
	return result, err, false
}
