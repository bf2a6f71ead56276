package api

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/modkit/internal/event"
	"github.com/dshills/modkit/internal/event/topic"
)

func (a *API) eventsTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "on", L.NewFunction(a.eventOn))
	L.SetField(t, "off", L.NewFunction(a.eventOff))
	L.SetField(t, "emit", L.NewFunction(a.eventEmit))
	L.SetField(t, "post", L.NewFunction(a.eventPost))
	return t
}

// mk.events.on(pattern, fn [, opts]) -> id | nil, err
//
// opts: priority ("critical"|"high"|"normal"|"low"), once (bool),
// instance (string). The handler receives a table {topic, payload,
// source, id}; returning "stop" halts delivery to later handlers.
func (a *API) eventOn(L *lua.LState) int {
	pattern := L.CheckString(1)
	fn := L.CheckFunction(2)

	opts := []event.SubscriptionOption{event.WithModule(a.module)}
	if L.GetTop() >= 3 {
		optTbl := L.CheckTable(3)
		if p := tableString(optTbl, "priority"); p != "" {
			prio, err := parsePriority(p)
			if err != nil {
				return pushErr(L, err.Error())
			}
			opts = append(opts, event.WithPriority(prio))
		}
		if b, ok := optTbl.RawGetString("once").(lua.LBool); ok && bool(b) {
			opts = append(opts, event.WithOnce())
		}
		if inst := tableString(optTbl, "instance"); inst != "" {
			opts = append(opts, event.WithInstance(inst))
		}
	}

	sub, err := a.rt.Events().SubscribeFunc(topic.Topic(pattern), a.eventHandler(fn), opts...)
	if err != nil {
		return pushErr(L, err.Error())
	}

	a.mu.Lock()
	a.subs[sub.ID()] = sub
	a.mu.Unlock()

	L.Push(lua.LString(sub.ID()))
	return 1
}

// mk.events.off(id) -> true | nil, err
func (a *API) eventOff(L *lua.LState) int {
	id := L.CheckString(1)

	a.mu.Lock()
	sub, ok := a.subs[id]
	delete(a.subs, id)
	a.mu.Unlock()

	if !ok {
		return pushErr(L, "events.off: unknown subscription "+id)
	}
	if err := a.rt.Events().Unsubscribe(sub); err != nil {
		return pushErr(L, err.Error())
	}
	L.Push(lua.LTrue)
	return 1
}

// mk.events.emit(topic, payload) -> true | nil, err
//
// Synchronous delivery: every matching handler runs before emit returns.
func (a *API) eventEmit(L *lua.LState) int {
	t := L.CheckString(1)
	var payload any
	if L.GetTop() >= 2 {
		payload = a.bridge.ToGo(L.Get(2))
	}

	if err := a.rt.Events().Publish(event.New(topic.Topic(t), payload, a.module)); err != nil {
		return pushErr(L, err.Error())
	}
	L.Push(lua.LTrue)
	return 1
}

// mk.events.post(topic, payload) -> true | nil, err
//
// Queued delivery at the next tick.
func (a *API) eventPost(L *lua.LState) int {
	t := L.CheckString(1)
	var payload any
	if L.GetTop() >= 2 {
		payload = a.bridge.ToGo(L.Get(2))
	}

	if err := a.rt.Events().Post(event.New(topic.Topic(t), payload, a.module)); err != nil {
		return pushErr(L, err.Error())
	}
	L.Push(lua.LTrue)
	return 1
}

// eventHandler adapts a Lua function into an event handler.
func (a *API) eventHandler(fn *lua.LFunction) event.HandlerFunc {
	return func(ev event.Event) (event.Propagation, error) {
		L := a.st.LuaState()

		tbl := L.NewTable()
		L.SetField(tbl, "topic", lua.LString(ev.Topic))
		L.SetField(tbl, "payload", a.bridge.ToLua(ev.Payload))
		L.SetField(tbl, "source", lua.LString(ev.Meta.Source))
		L.SetField(tbl, "id", lua.LString(ev.Meta.ID))

		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, tbl); err != nil {
			return event.Continue, err
		}
		ret := L.Get(-1)
		L.Pop(1)

		if s, ok := ret.(lua.LString); ok && string(s) == "stop" {
			return event.Stop, nil
		}
		return event.Continue, nil
	}
}

// parsePriority maps a priority name to its value.
func parsePriority(s string) (event.Priority, error) {
	switch s {
	case "critical":
		return event.PriorityCritical, nil
	case "high":
		return event.PriorityHigh, nil
	case "normal":
		return event.PriorityNormal, nil
	case "low":
		return event.PriorityLow, nil
	default:
		return event.PriorityNormal, fmt.Errorf("unknown priority %q", s)
	}
}
