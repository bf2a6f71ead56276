package api

import (
	lua "github.com/yuin/gopher-lua"
)

func (a *API) hostTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "call", L.NewFunction(a.hostCall))
	t.RawSetString("module", lua.LString(a.module))
	return t
}

// mk.host.call(id, ...) -> result | nil, err
//
// Invokes a host function by its stable identifier, through any
// installed interceptor chain.
func (a *API) hostCall(L *lua.LState) int {
	id := L.CheckString(1)

	var args []any
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, a.bridge.ToGo(L.Get(i)))
	}

	result, err := a.rt.Call(id, args)
	if err != nil {
		return pushErr(L, err.Error())
	}
	L.Push(a.bridge.ToLua(result))
	return 1
}
