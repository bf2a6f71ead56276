package api

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/modkit/internal/event"
	"github.com/dshills/modkit/internal/extstate"
	"github.com/dshills/modkit/internal/hook"
	mlua "github.com/dshills/modkit/internal/module/lua"
	"github.com/dshills/modkit/internal/runtime"
)

// API is one module's Lua-facing surface. Install wires it into the
// module's Lua state under the `mk` global:
//
//	mk.hooks.register / unregister / enable / set_tier
//	mk.events.on / off / emit / post
//	mk.fields.get / set
//	mk.host.call
//
// All callbacks run on the goroutine that owns the module's Lua state;
// cross-thread events reach Lua only through the runtime's tick.
type API struct {
	rt     *runtime.Runtime
	module string
	st     *mlua.State
	bridge *mlua.Bridge

	mu    sync.Mutex
	subs  map[string]event.Subscription
	hooks map[string]hook.Handle
}

// Install builds the API for a module and registers the `mk` global.
// fieldDefaults seeds each instance's extension record. Installing
// twice for one module fails: the previous registration must be swept
// first, or a retried load would keep the old field defaults.
func Install(st *mlua.State, rt *runtime.Runtime, module string, fieldDefaults map[string]any) (*API, error) {
	a := &API{
		rt:     rt,
		module: module,
		st:     st,
		bridge: mlua.NewBridge(st.LuaState()),
		subs:   make(map[string]event.Subscription),
		hooks:  make(map[string]hook.Handle),
	}

	// The module's extension record type. A reload re-registers after
	// the unload sweep removed the old registration.
	err := a.rt.State().RegisterType(module, extstate.TypeSpec{
		New: func(id extstate.InstanceID) any {
			rec := make(map[string]any, len(fieldDefaults))
			for k, v := range fieldDefaults {
				rec[k] = v
			}
			return rec
		},
	})
	if err != nil {
		return nil, fmt.Errorf("install api for %s: %w", module, err)
	}

	L := st.LuaState()
	mk := L.NewTable()
	L.SetField(mk, "hooks", a.hooksTable(L))
	L.SetField(mk, "events", a.eventsTable(L))
	L.SetField(mk, "fields", a.fieldsTable(L))
	L.SetField(mk, "host", a.hostTable(L))
	L.SetGlobal("mk", mk)
	return a, nil
}

// Module returns the owning module id.
func (a *API) Module() string {
	return a.module
}

// Cleanup drops the API's local bookkeeping. The runtime's module
// unload sweep removes the hooks, subscriptions, and records themselves.
func (a *API) Cleanup() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = make(map[string]event.Subscription)
	a.hooks = make(map[string]hook.Handle)
}

// pushErr pushes the Lua convention for failures: nil plus a message.
func pushErr(L *lua.LState, msg string) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(msg))
	return 2
}

// tableStrings reads a field of a spec table as a string array.
func tableStrings(tbl *lua.LTable, field string) []string {
	v, ok := tbl.RawGetString(field).(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	v.ForEach(func(_, item lua.LValue) {
		if s, ok := item.(lua.LString); ok {
			out = append(out, string(s))
		}
	})
	return out
}

// tableString reads a string field of a spec table, "" when absent.
func tableString(tbl *lua.LTable, field string) string {
	if s, ok := tbl.RawGetString(field).(lua.LString); ok {
		return string(s)
	}
	return ""
}
