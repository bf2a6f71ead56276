package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/modkit/internal/hook"
)

func (a *API) hooksTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "register", L.NewFunction(a.hookRegister))
	L.SetField(t, "unregister", L.NewFunction(a.hookUnregister))
	L.SetField(t, "enable", L.NewFunction(a.hookEnable))
	L.SetField(t, "set_tier", L.NewFunction(a.hookSetTier))
	return t
}

// mk.hooks.register{target=, name=, tier=, before={}, after={}, fn=} -> handle | nil, err
func (a *API) hookRegister(L *lua.LState) int {
	spec := L.CheckTable(1)

	targetID := tableString(spec, "target")
	if targetID == "" {
		return pushErr(L, "hooks.register: target is required")
	}
	fn, ok := spec.RawGetString("fn").(*lua.LFunction)
	if !ok {
		return pushErr(L, "hooks.register: fn is required")
	}
	tier, err := hook.ParseTier(tableString(spec, "tier"))
	if err != nil {
		return pushErr(L, "hooks.register: "+err.Error())
	}

	entry := &hook.Entry{
		Module: a.module,
		Name:   tableString(spec, "name"),
		Target: targetID,
		Tier:   tier,
		Before: tableStrings(spec, "before"),
		After:  tableStrings(spec, "after"),
		Fn:     a.interceptor(fn),
	}

	h, err := a.rt.RegisterHook(entry, nil)
	if err != nil {
		return pushErr(L, err.Error())
	}

	a.mu.Lock()
	a.hooks[string(h)] = h
	a.mu.Unlock()

	L.Push(lua.LString(string(h)))
	return 1
}

// mk.hooks.unregister(handle) -> true | nil, err
func (a *API) hookUnregister(L *lua.LState) int {
	h := hook.Handle(L.CheckString(1))
	if err := a.rt.Hooks().Unregister(h); err != nil {
		return pushErr(L, err.Error())
	}
	a.mu.Lock()
	delete(a.hooks, string(h))
	a.mu.Unlock()

	L.Push(lua.LTrue)
	return 1
}

// mk.hooks.enable(handle, enabled) -> true | nil, err
func (a *API) hookEnable(L *lua.LState) int {
	h := hook.Handle(L.CheckString(1))
	enabled := L.CheckBool(2)
	if err := a.rt.Hooks().SetEnabled(h, enabled); err != nil {
		return pushErr(L, err.Error())
	}
	L.Push(lua.LTrue)
	return 1
}

// mk.hooks.set_tier(handle, tier) -> true | nil, err
func (a *API) hookSetTier(L *lua.LState) int {
	h := hook.Handle(L.CheckString(1))
	tier, err := hook.ParseTier(L.CheckString(2))
	if err != nil {
		return pushErr(L, err.Error())
	}
	if err := a.rt.Hooks().SetPriority(h, tier); err != nil {
		return pushErr(L, err.Error())
	}
	L.Push(lua.LTrue)
	return 1
}

// interceptor adapts a Lua function into a hook interceptor. The Lua
// function receives (args, next): args is a table it may mutate, next
// is a callable continuation. Mutations to args made before calling
// next are visible to later chain steps and the original.
func (a *API) interceptor(fn *lua.LFunction) hook.Interceptor {
	return func(inv *hook.Invocation) (any, error) {
		L := a.st.LuaState()

		argsTbl := L.NewTable()
		for _, arg := range inv.Args() {
			argsTbl.Append(a.bridge.ToLua(arg))
		}

		next := L.NewFunction(func(L *lua.LState) int {
			// Write table mutations back before running the rest of the
			// chain.
			args := inv.Args()
			for i := range args {
				args[i] = a.bridge.ToGo(argsTbl.RawGetInt(i + 1))
			}
			res, err := inv.Next()
			if err != nil {
				return pushErr(L, err.Error())
			}
			L.Push(a.bridge.ToLua(res))
			return 1
		})

		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, argsTbl, next); err != nil {
			return nil, err
		}
		ret := L.Get(-1)
		L.Pop(1)
		return a.bridge.ToGo(ret), nil
	}
}
