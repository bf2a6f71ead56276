package lua

import (
	"errors"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestState_DoStringAndCall(t *testing.T) {
	s := NewState()
	defer s.Close()

	if err := s.DoString(`function add(a, b) return a + b end`); err != nil {
		t.Fatalf("DoString() failed: %v", err)
	}
	if !s.HasGlobal("add") {
		t.Error("HasGlobal(add) = false")
	}

	results, err := s.Call("add", lua.LNumber(19), lua.LNumber(23))
	if err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	if len(results) != 1 || results[0] != lua.LNumber(42) {
		t.Errorf("Call() = %v", results)
	}
}

func TestState_CallErrors(t *testing.T) {
	s := NewState()
	defer s.Close()

	if _, err := s.Call("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("expected ErrFunctionNotFound, got %v", err)
	}

	s.SetGlobal("notfn", lua.LNumber(1))
	if _, err := s.Call("notfn"); !errors.Is(err, ErrNotAFunction) {
		t.Errorf("expected ErrNotAFunction, got %v", err)
	}

	s.DoString(`function boom() error("bad") end`)
	if _, err := s.Call("boom"); err == nil {
		t.Error("expected error from Lua error()")
	}
}

func TestState_NoReturnValues(t *testing.T) {
	s := NewState()
	defer s.Close()

	s.DoString(`function noop() end`)
	results, err := s.Call("noop")
	if err != nil {
		t.Fatalf("Call() failed: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("Call() = %v, want empty non-nil slice", results)
	}
}

func TestState_SandboxExcludesUnsafeLibs(t *testing.T) {
	s := NewState()
	defer s.Close()

	for _, lib := range []string{"io", "os", "debug", "package"} {
		if err := s.DoString(`if ` + lib + ` ~= nil then error("open") end`); err != nil {
			t.Errorf("unsafe library %s is available: %v", lib, err)
		}
	}
	// Safe libraries stay available.
	if err := s.DoString(`return string.upper("x"), math.floor(1.5), table.concat({"a"})`); err != nil {
		t.Errorf("safe libraries unavailable: %v", err)
	}
}

func TestState_Closed(t *testing.T) {
	s := NewState()
	s.Close()

	if err := s.DoString(`x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("expected ErrStateClosed, got %v", err)
	}
	if _, err := s.Call("f"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("expected ErrStateClosed, got %v", err)
	}
	if !s.IsClosed() {
		t.Error("IsClosed() = false")
	}
	// Double close is fine.
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestState_RegisterModule(t *testing.T) {
	s := NewState()
	defer s.Close()

	got := ""
	s.RegisterModule("hostmod", map[string]lua.LGFunction{
		"ping": func(L *lua.LState) int {
			got = L.CheckString(1)
			L.Push(lua.LString("pong"))
			return 1
		},
	})

	if err := s.DoString(`reply = hostmod.ping("hello")`); err != nil {
		t.Fatalf("DoString() failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("Go function received %q", got)
	}
	if s.LuaState().GetGlobal("reply") != lua.LString("pong") {
		t.Error("reply global not set")
	}
}
