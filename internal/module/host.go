package module

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/modkit/internal/module/api"
	mlua "github.com/dshills/modkit/internal/module/lua"
	"github.com/dshills/modkit/internal/runtime"
)

// Lifecycle functions a module may define; all optional.
const (
	fnSetup      = "setup"
	fnActivate   = "activate"
	fnDeactivate = "deactivate"
)

// Host runs a single module: one sandboxed Lua state with the mk API
// installed, plus the module's lifecycle state machine.
type Host struct {
	mu sync.RWMutex

	name     string
	manifest *Manifest

	state  *mlua.State
	bridge *mlua.Bridge
	api    *api.API

	moduleState State
	err         error
}

// NewHost creates a host for the given manifest. The module is not
// loaded until Load is called.
func NewHost(manifest *Manifest) (*Host, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}
	return &Host{
		name:        manifest.Name,
		manifest:    manifest,
		moduleState: StateUnloaded,
	}, nil
}

// Name returns the module name.
func (h *Host) Name() string {
	return h.name
}

// Manifest returns the module manifest.
func (h *Host) Manifest() *Manifest {
	return h.manifest
}

// State returns the current lifecycle state.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.moduleState
}

// Err returns the error that put the module into StateError, if any.
func (h *Host) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Load creates the Lua state, installs the mk API bound to this module,
// runs the entry file, and calls the module's setup function if defined.
func (h *Host) Load(ctx context.Context, rt *runtime.Runtime) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if h.moduleState != StateUnloaded {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, h.name)
	}

	h.state = mlua.NewState()
	h.bridge = mlua.NewBridge(h.state.LuaState())

	a, err := api.Install(h.state, rt, h.name, h.manifest.FieldDefaults())
	if err != nil {
		h.fail(err)
		h.teardownLocked()
		return fmt.Errorf("load %s: %w", h.name, err)
	}
	h.api = a

	if err := h.state.DoFile(h.manifest.MainPath()); err != nil {
		h.fail(err)
		h.teardownLocked()
		return fmt.Errorf("load %s: %w", h.name, err)
	}

	if h.state.HasGlobal(fnSetup) {
		if _, err := h.state.Call(fnSetup); err != nil {
			h.fail(err)
			h.teardownLocked()
			return fmt.Errorf("setup %s: %w", h.name, err)
		}
	}

	h.moduleState = StateLoaded
	return nil
}

// Activate calls the module's activate function if defined.
func (h *Host) Activate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if h.moduleState == StateActive {
		return nil
	}
	if h.moduleState != StateLoaded {
		return fmt.Errorf("%w: %s is %s", ErrNotLoaded, h.name, h.moduleState)
	}

	if h.state.HasGlobal(fnActivate) {
		if _, err := h.state.Call(fnActivate); err != nil {
			h.fail(err)
			return fmt.Errorf("activate %s: %w", h.name, err)
		}
	}
	h.moduleState = StateActive
	return nil
}

// Deactivate calls the module's deactivate function if defined.
func (h *Host) Deactivate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if h.moduleState != StateActive {
		return nil
	}

	if h.state.HasGlobal(fnDeactivate) {
		if _, err := h.state.Call(fnDeactivate); err != nil {
			h.fail(err)
			return fmt.Errorf("deactivate %s: %w", h.name, err)
		}
	}
	h.moduleState = StateLoaded
	return nil
}

// Unload closes the Lua state. The caller sweeps the module's runtime
// resources (hooks, subscriptions, records) first.
func (h *Host) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if h.moduleState == StateUnloaded {
		return nil
	}

	if h.api != nil {
		h.api.Cleanup()
	}
	if h.state != nil {
		h.state.Close()
	}
	h.state = nil
	h.bridge = nil
	h.api = nil
	h.moduleState = StateUnloaded
	h.err = nil
	return nil
}

// Call invokes a global function in the module with Go values.
func (h *Host) Call(fn string, args ...any) ([]any, error) {
	h.mu.RLock()
	state := h.state
	bridge := h.bridge
	usable := h.moduleState.IsUsable()
	h.mu.RUnlock()

	if !usable {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, h.name)
	}

	results, err := state.Call(fn, bridge.ToLuaSlice(args)...)
	if err != nil {
		return nil, err
	}
	return bridge.ToGoSlice(results), nil
}

// HasFunction reports whether the module defines a global function.
func (h *Host) HasFunction(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.moduleState.IsUsable() {
		return false
	}
	return h.state.HasGlobal(name)
}

// fail records an error state. Caller holds mu.
func (h *Host) fail(err error) {
	h.moduleState = StateError
	h.err = err
}

// teardownLocked closes the Lua state after a failed load so no
// interceptor or handler can dispatch into it. Caller holds mu and
// sweeps the module's runtime resources separately.
func (h *Host) teardownLocked() {
	if h.api != nil {
		h.api.Cleanup()
	}
	if h.state != nil {
		h.state.Close()
	}
	h.state = nil
	h.bridge = nil
	h.api = nil
}
