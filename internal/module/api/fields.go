package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/modkit/internal/extstate"
)

func (a *API) fieldsTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "get", L.NewFunction(a.fieldGet))
	L.SetField(t, "set", L.NewFunction(a.fieldSet))
	return t
}

// record fetches the module's extension record for an instance,
// creating it on first access.
func (a *API) record(instance string) (map[string]any, error) {
	st, err := a.rt.State().GetOrCreate(a.module, extstate.InstanceID(instance))
	if err != nil {
		return nil, err
	}
	return st.(map[string]any), nil
}

// mk.fields.get(instance, key) -> value | nil, err
func (a *API) fieldGet(L *lua.LState) int {
	instance := L.CheckString(1)
	key := L.CheckString(2)

	rec, err := a.record(instance)
	if err != nil {
		return pushErr(L, err.Error())
	}
	L.Push(a.bridge.ToLua(rec[key]))
	return 1
}

// mk.fields.set(instance, key, value) -> true | nil, err
func (a *API) fieldSet(L *lua.LState) int {
	instance := L.CheckString(1)
	key := L.CheckString(2)
	value := a.bridge.ToGo(L.Get(3))

	rec, err := a.record(instance)
	if err != nil {
		return pushErr(L, err.Error())
	}
	rec[key] = value
	L.Push(lua.LTrue)
	return 1
}
